package checklist

import (
	"strings"
	"testing"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
)

func fixtureLedger() *ledger.Ledger {
	l := ledger.New()
	l.SCCs["scc/SCC-OS-LINUX_04.xlsx"] = &ledger.SCCRecord{
		Name:            "SCC-OS-LINUX",
		Version:         "4.2",
		SCMName:         "Linux Hardening Baseline",
		LastReviewDate:  "2026-03-14",
		GuidanceSource:  true,
		PolicyProcedure: true,
		ExceptionColumn: true,
		TLAColumn:       true,
		MethodColumn:    true,
	}
	l.Attestations["482913"] = []*ledger.AttestationRecord{{
		SCC:            "SCC-OS-LINUX",
		Gathered:       true,
		ApprovalStatus: "Approved",
		ValidTo:        "2026-12-31",
	}}
	l.BPERs["BPER0012345"] = []*ledger.ExceptionRecord{{
		SCC:            "SCC-OS-LINUX",
		ApprovalStatus: "Pending",
		TLA:            true,
	}}
	l.Documents["access_control_policy"] = []*ledger.DocumentRecord{{
		SCC:        "SCC-OS-LINUX",
		Gathered:   true,
		Version:    "03",
		LastUpdate: "2026-01-05",
	}}
	l.Checks["1.1.1"] = &ledger.CheckRecord{SCC: "SCC-OS-LINUX", Method: "automated"}
	l.Checks["1.1.2"] = &ledger.CheckRecord{SCC: "SCC-OS-LINUX", Method: "manual"}
	return l
}

func TestRenderInfoDocRows(t *testing.T) {
	l := fixtureLedger()
	out := RenderInfoDoc(l, l.SCCs["scc/SCC-OS-LINUX_04.xlsx"])

	wantRows := []string{
		"| [x]      | 482913",
		"| [ ]      | BPER0012345",
		"| [x]      | access_control_policy",
		"- [x] SCC Guidance source",
		"- [ ] Deviation Column",
		"| AUTOMATED | MANUAL |",
		"| 1.1.1     | 1.1.2  |",
	}
	for _, row := range wantRows {
		if !strings.Contains(out, row) {
			t.Errorf("info doc missing row %q", row)
		}
	}
}

func TestRenderInfoDocSkipsFalsePositives(t *testing.T) {
	l := fixtureLedger()
	l.BPERs["BPER0012345"][0].FalsePositive = true

	out := RenderInfoDoc(l, l.SCCs["scc/SCC-OS-LINUX_04.xlsx"])
	if strings.Contains(out, "BPER0012345") {
		t.Fatal("false positive BPER should not be rendered")
	}
}

func TestRenderChecklistAlignment(t *testing.T) {
	l := fixtureLedger()
	out := RenderChecklist(l, l.SCCs["scc/SCC-OS-LINUX_04.xlsx"])

	var attLine, bperLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "482913") {
			attLine = line
		}
		if strings.Contains(line, "BPER0012345") {
			bperLine = line
		}
	}
	if attLine == "" || bperLine == "" {
		t.Fatalf("checklist missing entry lines:\n%s", out)
	}

	// Both value labels land at the same column regardless of name length
	// or the TLA marker.
	attCol := strings.Index(attLine, "Valid to:")
	bperCol := strings.Index(bperLine, "Valid to:")
	if attCol != bperCol {
		t.Errorf("misaligned value columns: %d vs %d\n%q\n%q", attCol, bperCol, attLine, bperLine)
	}
	if !strings.Contains(bperLine, "[ ] Add TLA Docs") {
		t.Errorf("missing TLA marker on %q", bperLine)
	}
	if !strings.HasPrefix(attLine, "\t\t[x] ") {
		t.Errorf("attestation should be checked: %q", attLine)
	}
	if !strings.HasPrefix(bperLine, "\t\t[ ] ") {
		t.Errorf("ungathered BPER should be unchecked: %q", bperLine)
	}
}

func TestRenderChecklistLongNameTruncated(t *testing.T) {
	l := fixtureLedger()
	long := strings.Repeat("x", 90)
	l.Documents[long] = []*ledger.DocumentRecord{{SCC: "SCC-OS-LINUX"}}

	out := RenderChecklist(l, l.SCCs["scc/SCC-OS-LINUX_04.xlsx"])
	if strings.Contains(out, long) {
		t.Fatal("document name should be truncated")
	}
	if !strings.Contains(out, strings.Repeat("x", 75)) {
		t.Fatal("truncated document name missing")
	}
}

func TestCheckedRowPrefixTruncation(t *testing.T) {
	got := checkedRowPrefix("BPER0012345678", bperNameWidth)
	want := "| [x]      | BPER00123456"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
