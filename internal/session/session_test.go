package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
)

func TestOpenResolutionOrder(t *testing.T) {
	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "progress.json")

	l := ledger.New()
	l.Settings.ProjectDir = "/stored/project"
	l.Settings.SCCDir = "/stored/scc"
	if err := l.Save(ledgerPath); err != nil {
		t.Fatal(err)
	}

	s, err := Open(ledgerPath, Overrides{SCCDir: "/flag/scc"})
	if err != nil {
		t.Fatal(err)
	}

	// Overrides beat stored settings; stored settings fill the gaps.
	if s.SCCDir != "/flag/scc" {
		t.Errorf("SCCDir = %q", s.SCCDir)
	}
	if s.ProjectDir != "/stored/project" {
		t.Errorf("ProjectDir = %q", s.ProjectDir)
	}

	// Resolved values land back on the settings for the next save.
	if s.Ledger.Settings.SCCDir != "/flag/scc" {
		t.Errorf("settings not updated: %q", s.Ledger.Settings.SCCDir)
	}
}

func TestOpenDerivesLedgerPath(t *testing.T) {
	dir := t.TempDir()
	s, err := Open("", Overrides{ProjectDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if s.LedgerPath != filepath.Join(dir, "progress.json") {
		t.Errorf("LedgerPath = %q", s.LedgerPath)
	}

	if _, err := Open("", Overrides{}); err == nil {
		t.Error("want error with neither ledger path nor project dir")
	}
}

func TestOpenMissingLedgerStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "progress.json")
	s, err := Open(path, Overrides{ProjectDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Ledger.SCCs) != 0 {
		t.Error("expected empty ledger")
	}

	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("ledger not written: %v", err)
	}
}

func TestRequireDirs(t *testing.T) {
	s := &Session{ProjectDir: "/p"}
	if err := s.RequireDirs("project"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := s.RequireDirs("template"); err == nil {
		t.Error("want error for unset template dir")
	}
	if err := s.RequireDirs("bogus"); err == nil {
		t.Error("want error for unknown dir name")
	}
}
