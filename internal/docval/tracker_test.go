package docval

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
)

func writeTemplate(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for _, sheet := range []string{sheetSCCs, sheetSCCSCM, sheetDocuments, sheetBPERs, sheetAttestations} {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "Document Validation.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUpdateTracker(t *testing.T) {
	l := ledger.New()
	l.SCCs["scc/SCC-OS-LINUX_04.xlsx"] = &ledger.SCCRecord{
		Name:            "SCC-OS-LINUX",
		Version:         "04",
		SCMName:         "Linux Hardening Baseline",
		LastReviewDate:  "2026-03-14T00:00:00",
		SystemScope:     true,
		ExceptionColumn: true,
	}
	l.BPERs["BPER0012345"] = []*ledger.ExceptionRecord{{
		SCC:            "SCC-OS-LINUX",
		Gathered:       true,
		GatheredAt:     "2026-01-21 16:30:00",
		ApprovalStatus: "Approved",
		ValidTo:        "2026-12-31",
	}}
	l.Attestations["482913"] = []*ledger.AttestationRecord{{
		SCC:            "SCC-OS-LINUX",
		ApprovalStatus: "approve open",
	}}
	l.Documents["access_control_policy"] = []*ledger.DocumentRecord{{
		SCC:      "SCC-OS-LINUX",
		Name:     "access_control_policy",
		Gathered: true,
	}}

	path := writeTemplate(t)
	if err := UpdateTracker(l, path); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	cell := func(sheet, ref string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, ref)
		if err != nil {
			t.Fatalf("%s!%s: %v", sheet, ref, err)
		}
		return v
	}

	// T00:00:00 suffix is stripped from review dates.
	if got := cell(sheetSCCs, "D2"); got != "2026-03-14" {
		t.Errorf("review date = %q", got)
	}
	if cell(sheetSCCs, "F2") != "X" || cell(sheetSCCs, "G2") != "X" || cell(sheetSCCs, "K2") != "" {
		t.Error("presence indicators wrong on SCC tab")
	}

	if cell(sheetSCCSCM, "A2") != "SCC-OS-LINUX" || cell(sheetSCCSCM, "B2") != "Linux Hardening Baseline" {
		t.Error("SCM mapping wrong")
	}

	// Gathered date keeps only the day portion.
	if cell(sheetBPERs, "D2") != "2026-01-21" || cell(sheetBPERs, "E2") != "X" {
		t.Error("BPER tab wrong")
	}

	if cell(sheetAttestations, "B2") != "482913" || cell(sheetAttestations, "E2") != "X" {
		t.Error("attestation tab wrong")
	}

	if cell(sheetDocuments, "B2") != "access_control_policy" || cell(sheetDocuments, "D2") != "X" {
		t.Error("document tab wrong")
	}
}
