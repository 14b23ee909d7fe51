package tenable

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
	"github.com/kaizen-tdl/kaizen/internal/stage"
)

func scanLedger() *ledger.Ledger {
	l := ledger.New()
	l.SCCs["scc/SCC-OS-LINUX_04.xlsx"] = &ledger.SCCRecord{
		Name:            "SCC-OS-LINUX",
		EvidenceMethods: []string{"Automated", "Manual-Auto Info"},
	}
	l.SCCs["scc/SCC-APP-POLICY_01.xlsx"] = &ledger.SCCRecord{
		Name:            "SCC-APP-POLICY",
		EvidenceMethods: []string{"Manual-Document"},
	}
	return l
}

func TestCheckInventories(t *testing.T) {
	dir := t.TempDir()
	l := scanLedger()

	invDir := filepath.Join(dir, "SCC-OS-LINUX")
	if err := os.MkdirAll(invDir, 0755); err != nil {
		t.Fatal(err)
	}
	invPath := filepath.Join(invDir, "SCC-OS-LINUX-Inventory.txt")
	if err := os.WriteFile(invPath, []byte("10.0.0.1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 1, 21, 16, 30, 0, 0, time.UTC)
	results := CheckInventories(l, dir, now, discardLogger())
	if got := stage.Summarize(results); got.OK != 1 || got.Skipped != 1 {
		t.Fatalf("want 1 found and 1 skipped, got %+v", got)
	}

	if got := l.SCCs["scc/SCC-OS-LINUX_04.xlsx"].InventoryFile; got != invPath {
		t.Errorf("inventory path not recorded: %q", got)
	}
	if got := l.SCCs["scc/SCC-APP-POLICY_01.xlsx"].InventoryFile; got != "" {
		t.Errorf("inventory path set without a file: %q", got)
	}
	if l.Settings.LastInventoryCheck != "2026-01-21 16:30:00" {
		t.Errorf("check timestamp wrong: %q", l.Settings.LastInventoryCheck)
	}
}

func TestInventoryRequired(t *testing.T) {
	auto := &ledger.SCCRecord{EvidenceMethods: []string{"Automated"}}
	manualInfo := &ledger.SCCRecord{EvidenceMethods: []string{"Manual-Auto Info"}}
	docOnly := &ledger.SCCRecord{EvidenceMethods: []string{"Manual-Document"}}

	if !InventoryRequired(auto) || !InventoryRequired(manualInfo) {
		t.Error("scanning methods should require an inventory")
	}
	if InventoryRequired(docOnly) {
		t.Error("document-only SCC should not require an inventory")
	}
}

func TestInitiateScans(t *testing.T) {
	sc := newFakeSC()
	sc.addScan("TDL-SCC-OS-LINUX-PassFail")
	sc.addScan("TDL-SCC-OS-LINUX-Info")
	client := testClient(t, sc)

	l := scanLedger()
	l.SCCs["scc/SCC-OS-LINUX_04.xlsx"].InventoryFile = writeInventory(t, 4)

	o := &Orchestrator{
		Client:       client,
		StartTime:    "20260121T163000",
		ChunkSize:    6,
		TargetUserID: "156",
		Log:          discardLogger(),
	}
	results, err := o.InitiateScans(context.Background(), l, "")
	if err != nil {
		t.Fatal(err)
	}
	// One chunk per rollout, plus a skip for the SCC without inventory.
	if got := stage.Summarize(results); got.OK != 2 || got.Skipped != 1 {
		t.Fatalf("unexpected results: %+v (%s)", results, got)
	}

	info := l.SCCs["scc/SCC-OS-LINUX_04.xlsx"]
	if info.PassFailStatus != "Queued" || info.InfoStatus != "Queued" {
		t.Errorf("statuses not queued: %q %q", info.PassFailStatus, info.InfoStatus)
	}
	if sc.byName("TDL-SCC-OS-LINUX-PassFail (1of1)") == nil {
		t.Error("PassFail chunk scan not created")
	}
	if sc.byName("TDL-SCC-OS-LINUX-Info (1of1)") == nil {
		t.Error("Info chunk scan not created")
	}
}

func TestInitiateScansUnknownSCC(t *testing.T) {
	sc := newFakeSC()
	client := testClient(t, sc)
	o := &Orchestrator{Client: client, Log: discardLogger()}

	if _, err := o.InitiateScans(context.Background(), scanLedger(), "SCC-NOPE"); err == nil {
		t.Fatal("want error for unknown SCC filter")
	}
}
