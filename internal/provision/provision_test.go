package provision

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
	"github.com/kaizen-tdl/kaizen/internal/stage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func provisioningLedger() *ledger.Ledger {
	l := ledger.New()
	l.SCCs["scc/SCC-DB-ORACLE_03.xlsx"] = &ledger.SCCRecord{
		Name:            "SCC-DB-ORACLE",
		EvidenceMethods: []string{"automated", "manual-screenshot", "manual-document"},
	}
	l.Attestations["771100"] = []*ledger.AttestationRecord{{SCC: "SCC-DB-ORACLE"}}
	l.Checks["2.1.1"] = &ledger.CheckRecord{SCC: "SCC-DB-ORACLE", Method: "Automated"}
	l.Checks["2.1.2"] = &ledger.CheckRecord{SCC: "SCC-DB-ORACLE", Method: "Manual-Screenshot"}
	l.Checks["2.1.3"] = &ledger.CheckRecord{SCC: "SCC-DB-ORACLE", Method: "Manual-Document"}
	return l
}

func TestBuildDirsLayout(t *testing.T) {
	dir := t.TempDir()
	l := provisioningLedger()
	b := &Builder{ProjectDir: dir, Log: discardLogger()}

	results := b.BuildDirs(l)
	if len(results) != 1 || results[0].Outcome != stage.OK {
		t.Fatalf("unexpected results: %+v", results)
	}

	want := []string{
		"SCC-DB-ORACLE/Exceptions and Deviations",
		"SCC-DB-ORACLE/Supporting Documents",
		"SCC-DB-ORACLE/Attestations",
		"SCC-DB-ORACLE/Automated",
		"SCC-DB-ORACLE/Manual/Screenshots",
		"SCC-DB-ORACLE/Manual/Documents",
	}
	for _, rel := range want {
		info, err := os.Stat(filepath.Join(dir, rel))
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s: %v", rel, err)
		}
	}
	if !l.SCCs["scc/SCC-DB-ORACLE_03.xlsx"].DirectoryBuilt {
		t.Error("built flag not set")
	}
}

func TestBuildDirsSkipsBuilt(t *testing.T) {
	dir := t.TempDir()
	l := provisioningLedger()
	l.SCCs["scc/SCC-DB-ORACLE_03.xlsx"].DirectoryBuilt = true

	b := &Builder{ProjectDir: dir, Log: discardLogger()}
	results := b.BuildDirs(l)
	if results[0].Outcome != stage.Skipped {
		t.Fatalf("want skip, got %+v", results[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "SCC-DB-ORACLE")); !os.IsNotExist(err) {
		t.Error("directory created despite built flag")
	}
}

func TestBuildDirsNoAttestationsFolder(t *testing.T) {
	dir := t.TempDir()
	l := provisioningLedger()
	l.Attestations = map[string][]*ledger.AttestationRecord{}

	b := &Builder{ProjectDir: dir, Log: discardLogger()}
	b.BuildDirs(l)
	if _, err := os.Stat(filepath.Join(dir, "SCC-DB-ORACLE", "Attestations")); !os.IsNotExist(err) {
		t.Error("Attestations folder created with no attestations on record")
	}
}

type recordingEditor struct {
	calls map[string]map[string]string
}

func (r *recordingEditor) ReplaceText(path string, repl map[string]string) error {
	if r.calls == nil {
		r.calls = map[string]map[string]string{}
	}
	r.calls[filepath.Base(path)] = repl
	return nil
}

func TestBuildTemplates(t *testing.T) {
	projectDir := t.TempDir()
	templateDir := t.TempDir()
	for _, name := range []string{
		tmplDocumentEvidence, tmplEvidenceValid, tmplManualControl,
		tmplDeviceGapList, tmplRemediation, tmplScreenshot,
	} {
		if err := os.WriteFile(filepath.Join(templateDir, name), []byte("template"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	l := provisioningLedger()
	b := &Builder{ProjectDir: projectDir, Log: discardLogger()}
	if res := b.BuildDirs(l); res[0].Outcome != stage.OK {
		t.Fatalf("build dirs: %v", res[0].Err)
	}

	editor := &recordingEditor{}
	tp := &Templater{ProjectDir: projectDir, TemplateDir: templateDir, Editor: editor, Log: discardLogger()}
	results := tp.BuildTemplates(l)
	if len(results) != 1 || results[0].Outcome != stage.OK {
		t.Fatalf("unexpected results: %+v", results)
	}

	want := []string{
		"SCC-DB-ORACLE/Manual/!SCC-DB-ORACLE-Document_Evidence.xlsx",
		"SCC-DB-ORACLE/Manual/!SCC-DB-ORACLE-Manual_Control_Evidence.xlsx",
		"SCC-DB-ORACLE/Automated/!SCC-DB-ORACLE-EvidenceValidation.xlsx",
		"SCC-DB-ORACLE/!SCC-DB-ORACLE-DeviceGapList.xlsx",
		"SCC-DB-ORACLE/!SCC-DB-ORACLE-Remediation.xlsx",
		"SCC-DB-ORACLE/Manual/Screenshots/2.1.2.docx",
	}
	for _, rel := range want {
		if _, err := os.Stat(filepath.Join(projectDir, rel)); err != nil {
			t.Errorf("expected template %s: %v", rel, err)
		}
	}

	repl := editor.calls["2.1.2.docx"]
	if repl["FILENAMEINSERT"] != "SCC-DB-ORACLE" || repl["STIGIDINSERT"] != "2.1.2" {
		t.Errorf("placeholder replacements wrong: %v", repl)
	}
}

func TestBuildTemplatesMissingTemplateDir(t *testing.T) {
	l := provisioningLedger()
	tp := &Templater{ProjectDir: t.TempDir(), TemplateDir: filepath.Join(t.TempDir(), "none"), Log: discardLogger()}
	results := tp.BuildTemplates(l)
	if len(results) != 1 || results[0].Outcome != stage.Failed {
		t.Fatalf("want failure when templates are missing, got %+v", results)
	}
}
