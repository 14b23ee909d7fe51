package export

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
)

func TestWriteWorkbook(t *testing.T) {
	l := ledger.New()
	l.Settings.ProjectDir = "/audits/tdl-2026"
	l.SCCs["scc/SCC-OS-LINUX_04.xlsx"] = &ledger.SCCRecord{
		Name:              "SCC-OS-LINUX",
		Version:           "04",
		SCMName:           "Linux Hardening Baseline",
		ReviewedWithin180: true,
	}
	l.BPERs["BPER0012345"] = []*ledger.ExceptionRecord{{SCC: "SCC-OS-LINUX", Gathered: true, TLA: true, ApprovalStatus: "Approved"}}
	l.Attestations["482913"] = []*ledger.AttestationRecord{{SCC: "SCC-OS-LINUX", ValidTo: "2026-12-31"}}
	l.Documents["access_control_policy"] = []*ledger.DocumentRecord{{SCC: "SCC-OS-LINUX", Version: "03"}}
	l.Checks["1.1.1"] = &ledger.CheckRecord{SCC: "SCC-OS-LINUX", Method: "Automated"}

	path := filepath.Join(t.TempDir(), "progress.xlsx")
	if err := WriteWorkbook(l, path); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	wantSheets := []string{"BPERs", "Attestations", "Documents", "SCC", "Checks", "Program Settings"}
	got := f.GetSheetList()
	for _, sheet := range wantSheets {
		found := false
		for _, name := range got {
			if name == sheet {
				found = true
			}
		}
		if !found {
			t.Errorf("missing sheet %s in %v", sheet, got)
		}
	}

	cell := func(sheet, ref string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, ref)
		if err != nil {
			t.Fatalf("%s!%s: %v", sheet, ref, err)
		}
		return v
	}

	if cell("BPERs", "A2") != "BPER0012345" || cell("BPERs", "C2") != "yes" || cell("BPERs", "D2") != "yes" {
		t.Error("BPER row wrong")
	}
	if cell("Attestations", "A2") != "482913" || cell("Attestations", "E2") != "2026-12-31" {
		t.Error("attestation row wrong")
	}
	if cell("SCC", "A2") != "SCC-OS-LINUX" || cell("SCC", "E2") != "yes" {
		t.Error("SCC row wrong")
	}
	if cell("Checks", "A2") != "1.1.1" || cell("Checks", "C2") != "Automated" {
		t.Error("check row wrong")
	}
	if cell("Program Settings", "B2") != "/audits/tdl-2026" {
		t.Error("settings row wrong")
	}
}
