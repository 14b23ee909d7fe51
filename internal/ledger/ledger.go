// Package ledger is the canonical JSON-backed record set for a TDL project.
// The on-disk file is the sole source of truth between pipeline stages: every
// stage loads the whole file, mutates in memory, and writes the whole file
// back atomically.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Ledger aggregates every tracked entity for a project.
type Ledger struct {
	BPERs        map[string][]*ExceptionRecord
	Attestations map[string][]*AttestationRecord
	Documents    map[string][]*DocumentRecord
	SCCs         map[string]*SCCRecord
	Checks       map[string]*CheckRecord
	Settings     Settings
}

// ledgerJSON pins the legacy top-level key names and list tolerance.
type ledgerJSON struct {
	BPERs        map[string]exceptionList   `json:"BPERs"`
	Attestations map[string]attestationList `json:"Attestations"`
	Documents    map[string]documentList    `json:"Documents"`
	SCCs         map[string]*SCCRecord      `json:"SCC"`
	Checks       map[string]*CheckRecord    `json:"Checks"`
	Settings     Settings                   `json:"Program Settings"`
}

// New returns an empty ledger with all collections initialized.
func New() *Ledger {
	return &Ledger{
		BPERs:        map[string][]*ExceptionRecord{},
		Attestations: map[string][]*AttestationRecord{},
		Documents:    map[string][]*DocumentRecord{},
		SCCs:         map[string]*SCCRecord{},
		Checks:       map[string]*CheckRecord{},
	}
}

// Load reads a ledger file. A missing file yields an empty ledger, not an
// error, so a fresh project starts clean.
func Load(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var raw ledgerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", path, err)
	}

	l := New()
	for k, v := range raw.BPERs {
		l.BPERs[k] = v
	}
	for k, v := range raw.Attestations {
		l.Attestations[k] = v
	}
	for k, v := range raw.Documents {
		l.Documents[k] = v
	}
	if raw.SCCs != nil {
		l.SCCs = raw.SCCs
	}
	if raw.Checks != nil {
		l.Checks = raw.Checks
	}
	l.Settings = raw.Settings
	return l, nil
}

// Save writes the whole ledger atomically: marshal, write a temp file in the
// same directory, rename over the target.
func (l *Ledger) Save(path string) error {
	raw := ledgerJSON{
		BPERs:        map[string]exceptionList{},
		Attestations: map[string]attestationList{},
		Documents:    map[string]documentList{},
		SCCs:         l.SCCs,
		Checks:       l.Checks,
		Settings:     l.Settings,
	}
	for k, v := range l.BPERs {
		raw.BPERs[k] = v
	}
	for k, v := range l.Attestations {
		raw.Attestations[k] = v
	}
	for k, v := range l.Documents {
		raw.Documents[k] = v
	}

	data, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".progress-*.json")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// SCCNames returns the canonical SCC names present in the ledger, sorted.
func (l *Ledger) SCCNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, info := range l.SCCs {
		if info == nil || info.Name == "" || seen[info.Name] {
			continue
		}
		seen[info.Name] = true
		names = append(names, info.Name)
	}
	sort.Strings(names)
	return names
}

// FindSCC returns the SCC record with the given canonical name, if any.
func (l *Ledger) FindSCC(name string) (string, *SCCRecord) {
	for path, info := range l.SCCs {
		if info != nil && info.Name == name {
			return path, info
		}
	}
	return "", nil
}

// SetSCC stores rec under its canonical name. An existing record with the
// same name is replaced whatever key it sat under, so ledgers written by
// older tool versions that keyed SCCs by source file path collapse to a
// single entry, and the operational fields a fresh spreadsheet validation
// cannot recompute carry over from the replaced record.
func (l *Ledger) SetSCC(rec *SCCRecord) {
	if key, prev := l.FindSCC(rec.Name); prev != nil {
		rec.CarryOperational(prev)
		delete(l.SCCs, key)
	}
	l.SCCs[rec.Name] = rec
}

// MethodsForSCC collects the distinct evidence-method strings (lowercased)
// declared by an SCC's checks.
func (l *Ledger) MethodsForSCC(name string) []string {
	seen := map[string]bool{}
	var methods []string
	for _, check := range l.Checks {
		if check.SCC != name {
			continue
		}
		m := lower(check.Method)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// HasAttestations reports whether any attestation entry references the SCC.
func (l *Ledger) HasAttestations(name string) bool {
	for _, entries := range l.Attestations {
		for _, a := range entries {
			if a.SCC == name {
				return true
			}
		}
	}
	return false
}
