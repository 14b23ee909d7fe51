package ledger

import "fmt"

// Category names match the ledger's top-level keys.
const (
	CategoryBPERs        = "BPERs"
	CategoryAttestations = "Attestations"
	CategoryDocuments    = "Documents"
)

// MarkFalsePositive flags the (key, scc) entry in the named category so the
// reconciler and renderer skip it. An empty scc flags every entry for the key.
func (l *Ledger) MarkFalsePositive(category, key, scc string) error {
	n := 0
	switch category {
	case CategoryBPERs:
		for _, e := range l.BPERs[key] {
			if scc == "" || e.SCC == scc {
				e.FalsePositive = true
				n++
			}
		}
	case CategoryAttestations:
		for _, e := range l.Attestations[key] {
			if scc == "" || e.SCC == scc {
				e.FalsePositive = true
				n++
			}
		}
	case CategoryDocuments:
		for _, e := range l.Documents[key] {
			if scc == "" || e.SCC == scc {
				e.FalsePositive = true
				n++
			}
		}
	default:
		return fmt.Errorf("unknown category %q", category)
	}
	if n == 0 {
		return fmt.Errorf("no %s entry for %q", category, key)
	}
	return nil
}

// LinkFile records a manual evidence-file override for the (key, scc) entry.
// The override wins over naming-convention and fuzzy matching. For documents
// with multiple per-SCC entries the link applies to all of them, since they
// describe the same underlying file.
func (l *Ledger) LinkFile(category, key, scc, path string) error {
	n := 0
	switch category {
	case CategoryBPERs:
		for _, e := range l.BPERs[key] {
			if scc == "" || e.SCC == scc {
				e.ManualLink = path
				n++
			}
		}
	case CategoryAttestations:
		for _, e := range l.Attestations[key] {
			if scc == "" || e.SCC == scc {
				e.ManualLink = path
				n++
			}
		}
	case CategoryDocuments:
		entries := l.Documents[key]
		if len(entries) > 1 {
			for _, e := range entries {
				e.ManualLink = path
				n++
			}
		} else {
			for _, e := range entries {
				if scc == "" || e.SCC == scc {
					e.ManualLink = path
					n++
				}
			}
		}
	default:
		return fmt.Errorf("unknown category %q", category)
	}
	if n == 0 {
		return fmt.Errorf("no %s entry for %q", category, key)
	}
	return nil
}
