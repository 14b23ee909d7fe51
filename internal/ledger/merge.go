package ledger

import (
	"sort"
	"strings"
)

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Extraction is one spreadsheet's worth of freshly extracted records, keyed
// the same way the ledger collections are.
type Extraction struct {
	BPERs        map[string]*ExceptionRecord
	Attestations map[string]*AttestationRecord
	Documents    map[string]*DocumentRecord
	Checks       map[string]*CheckRecord
}

// NewExtraction returns an empty extraction batch.
func NewExtraction() *Extraction {
	return &Extraction{
		BPERs:        map[string]*ExceptionRecord{},
		Attestations: map[string]*AttestationRecord{},
		Documents:    map[string]*DocumentRecord{},
		Checks:       map[string]*CheckRecord{},
	}
}

// Empty reports whether the extraction holds no records at all.
func (e *Extraction) Empty() bool {
	return len(e.BPERs) == 0 && len(e.Attestations) == 0 &&
		len(e.Documents) == 0 && len(e.Checks) == 0
}

// Merge folds an extraction batch into the ledger. An entry is appended for
// (key, SCC) only when that exact pair is not already present, so running the
// pull pipeline twice over unchanged input does not grow any list. TLA is
// OR-accumulated onto an existing exception entry, never cleared.
func (l *Ledger) Merge(e *Extraction) {
	for key, rec := range e.BPERs {
		if existing := findExceptionEntry(l.BPERs[key], rec.SCC); existing != nil {
			if rec.TLA && !existing.TLA {
				existing.TLA = true
			}
			continue
		}
		l.BPERs[key] = append(l.BPERs[key], rec)
	}

	for key, rec := range e.Attestations {
		if hasAttestationEntry(l.Attestations[key], rec.SCC) {
			continue
		}
		l.Attestations[key] = append(l.Attestations[key], rec)
	}

	for key, rec := range e.Documents {
		if hasDocumentEntry(l.Documents[key], rec.SCC) {
			continue
		}
		l.Documents[key] = append(l.Documents[key], rec)
	}

	for id, rec := range e.Checks {
		l.Checks[id] = rec
	}
}

func findExceptionEntry(entries []*ExceptionRecord, scc string) *ExceptionRecord {
	for _, e := range entries {
		if e.SCC == scc {
			return e
		}
	}
	return nil
}

func hasAttestationEntry(entries []*AttestationRecord, scc string) bool {
	for _, e := range entries {
		if e.SCC == scc {
			return true
		}
	}
	return false
}

func hasDocumentEntry(entries []*DocumentRecord, scc string) bool {
	for _, e := range entries {
		if e.SCC == scc {
			return true
		}
	}
	return false
}

// Normalize collapses each key's entry list down to at most one entry per
// SCC, keeping the first seen. Repeated full pulls with the old append-only
// merge could double and triple up entries; this pass cleans those ledgers.
func (l *Ledger) Normalize() {
	for key, entries := range l.BPERs {
		seen := map[string]bool{}
		out := entries[:0]
		for _, e := range entries {
			if seen[e.SCC] {
				continue
			}
			seen[e.SCC] = true
			out = append(out, e)
		}
		l.BPERs[key] = out
	}
	for key, entries := range l.Attestations {
		seen := map[string]bool{}
		out := entries[:0]
		for _, e := range entries {
			if seen[e.SCC] {
				continue
			}
			seen[e.SCC] = true
			out = append(out, e)
		}
		l.Attestations[key] = out
	}
	for key, entries := range l.Documents {
		seen := map[string]bool{}
		out := entries[:0]
		for _, e := range entries {
			if seen[e.SCC] {
				continue
			}
			seen[e.SCC] = true
			out = append(out, e)
		}
		l.Documents[key] = out
	}
}

// RemoveSCC purges every record referencing the named SCC. Keys whose entry
// list empties out are dropped entirely.
func (l *Ledger) RemoveSCC(name string) {
	for key, entries := range l.BPERs {
		kept := entries[:0]
		for _, e := range entries {
			if e.SCC != name {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(l.BPERs, key)
		} else {
			l.BPERs[key] = kept
		}
	}
	for key, entries := range l.Attestations {
		kept := entries[:0]
		for _, e := range entries {
			if e.SCC != name {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(l.Attestations, key)
		} else {
			l.Attestations[key] = kept
		}
	}
	for key, entries := range l.Documents {
		kept := entries[:0]
		for _, e := range entries {
			if e.SCC != name {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(l.Documents, key)
		} else {
			l.Documents[key] = kept
		}
	}
	for path, info := range l.SCCs {
		if info != nil && info.Name == name {
			delete(l.SCCs, path)
		}
	}
	for id, check := range l.Checks {
		if check.SCC == name {
			delete(l.Checks, id)
		}
	}
}

// NotGatheredItem is one missing piece of evidence, for dashboards and the
// Not_gathered.txt report.
type NotGatheredItem struct {
	SCC      string
	Category string // "BPERs", "Attestations", "Documents"
	Key      string
	TLA      bool
}

// NotGathered lists every non-false-positive record whose evidence has not
// been gathered, grouped by SCC and sorted for stable output.
func (l *Ledger) NotGathered() []NotGatheredItem {
	var items []NotGatheredItem
	for key, entries := range l.BPERs {
		for _, e := range entries {
			if e.FalsePositive {
				continue
			}
			if !e.Gathered || e.TLA {
				items = append(items, NotGatheredItem{SCC: e.SCC, Category: "BPERs", Key: key, TLA: e.TLA})
			}
		}
	}
	for key, entries := range l.Attestations {
		for _, a := range entries {
			if !a.FalsePositive && !a.Gathered {
				items = append(items, NotGatheredItem{SCC: a.SCC, Category: "Attestations", Key: key})
			}
		}
	}
	for key, entries := range l.Documents {
		for _, d := range entries {
			if !d.FalsePositive && !d.Gathered {
				items = append(items, NotGatheredItem{SCC: d.SCC, Category: "Documents", Key: key})
			}
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SCC != items[j].SCC {
			return items[i].SCC < items[j].SCC
		}
		return items[i].Key < items[j].Key
	})
	return items
}
