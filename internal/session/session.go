// Package session resolves the working paths for a run and carries the open
// ledger between commands. Directory values resolve explicit overrides first
// (flags or config file), then whatever the ledger recorded last time, so a
// ledger moved to a new machine keeps working once re-pointed.
package session

import (
	"fmt"
	"path/filepath"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
)

// LedgerFileName is the progress ledger's conventional name inside a project
// directory.
const LedgerFileName = "progress.json"

// Overrides are caller-supplied path values, typically merged from flags and
// the config file. Empty fields fall back to ledger settings.
type Overrides struct {
	ProjectDir        string
	SCCDir            string
	BPERDir           string
	AttestationDir    string
	SupportingDocsDir string
	TemplateDir       string
}

// Session is one command invocation's resolved context.
type Session struct {
	LedgerPath string
	Ledger     *ledger.Ledger

	ProjectDir        string
	SCCDir            string
	BPERDir           string
	AttestationDir    string
	SupportingDocsDir string
	TemplateDir       string
}

// Open loads the ledger at ledgerPath (an empty path defaults to
// progress.json under the project override) and resolves all directories.
// Resolved values are written back onto the ledger settings so the next Save
// records them.
func Open(ledgerPath string, o Overrides) (*Session, error) {
	if ledgerPath == "" {
		if o.ProjectDir == "" {
			return nil, fmt.Errorf("session: no ledger path and no project directory to derive one from")
		}
		ledgerPath = filepath.Join(o.ProjectDir, LedgerFileName)
	}

	l, err := ledger.Load(ledgerPath)
	if err != nil {
		return nil, err
	}

	s := &Session{
		LedgerPath:        ledgerPath,
		Ledger:            l,
		ProjectDir:        resolve(o.ProjectDir, l.Settings.ProjectDir),
		SCCDir:            resolve(o.SCCDir, l.Settings.SCCDir),
		BPERDir:           resolve(o.BPERDir, l.Settings.BPERDir),
		AttestationDir:    resolve(o.AttestationDir, l.Settings.AttestationDir),
		SupportingDocsDir: resolve(o.SupportingDocsDir, l.Settings.SupportingDocsDir),
		TemplateDir:       resolve(o.TemplateDir, l.Settings.TemplateDir),
	}
	if s.ProjectDir == "" {
		s.ProjectDir = filepath.Dir(ledgerPath)
	}

	l.Settings.ProjectDir = s.ProjectDir
	l.Settings.SCCDir = s.SCCDir
	l.Settings.BPERDir = s.BPERDir
	l.Settings.AttestationDir = s.AttestationDir
	l.Settings.SupportingDocsDir = s.SupportingDocsDir
	l.Settings.TemplateDir = s.TemplateDir
	return s, nil
}

// Save writes the ledger back to its path atomically.
func (s *Session) Save() error {
	return s.Ledger.Save(s.LedgerPath)
}

// RequireDirs errors unless every named directory resolved to a value.
// Commands call this up front so a half-configured run fails before touching
// anything.
func (s *Session) RequireDirs(names ...string) error {
	byName := map[string]string{
		"project":         s.ProjectDir,
		"scc":             s.SCCDir,
		"bper":            s.BPERDir,
		"attestation":     s.AttestationDir,
		"supporting-docs": s.SupportingDocsDir,
		"template":        s.TemplateDir,
	}
	for _, name := range names {
		val, ok := byName[name]
		if !ok {
			return fmt.Errorf("session: unknown directory %q", name)
		}
		if val == "" {
			return fmt.Errorf("session: %s directory not configured (set it via flag or config)", name)
		}
	}
	return nil
}

func resolve(override, stored string) string {
	if override != "" {
		return override
	}
	return stored
}
