package snow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
	"github.com/kaizen-tdl/kaizen/internal/match"
	"github.com/kaizen-tdl/kaizen/internal/stage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

func TestMatchName(t *testing.T) {
	ids := SysIDs{
		"Access Control Policy":         "sys-aaa",
		"Incident Response Procedure":   "sys-bbb",
		"Configuration Management Plan": "sys-ccc",
	}

	matched, sysID, ok := ids.MatchName("access_control_policy.docx", match.SysIDThreshold)
	if !ok || sysID != "sys-aaa" {
		t.Fatalf("got %q %q %v", matched, sysID, ok)
	}

	if _, _, ok := ids.MatchName("zzzz qqqq totally unrelated 9999", match.SysIDThreshold); ok {
		t.Error("unrelated name should not match")
	}
}

type fakeFetcher struct {
	docs, bpers, attestations []string

	attestationDir string
	attestationExt string
	failBPERs      bool
}

func (f *fakeFetcher) FetchDocuments(_ context.Context, names []string, _ string) error {
	f.docs = append(f.docs, names...)
	return nil
}

func (f *fakeFetcher) FetchBPERs(_ context.Context, names []string, _ string) error {
	if f.failBPERs {
		return errors.New("session expired")
	}
	f.bpers = append(f.bpers, names...)
	return nil
}

func (f *fakeFetcher) FetchAttestations(_ context.Context, ids []string, destDir string) error {
	f.attestations = append(f.attestations, ids...)
	ext := f.attestationExt
	if ext == "" {
		ext = ".pdf"
	}
	for _, id := range ids {
		if err := os.WriteFile(filepath.Join(destDir, id+ext), []byte("attestation"), 0644); err != nil {
			return err
		}
	}
	return nil
}

func gatherLedger() *ledger.Ledger {
	l := ledger.New()
	l.Documents["access_control_policy"] = []*ledger.DocumentRecord{{SCC: "SCC-OS-LINUX"}}
	l.Documents["already_have_this"] = []*ledger.DocumentRecord{{SCC: "SCC-OS-LINUX", Gathered: true}}
	l.BPERs["BPER0012345"] = []*ledger.ExceptionRecord{{SCC: "SCC-OS-LINUX"}}
	l.BPERs["BPER0099999"] = []*ledger.ExceptionRecord{{SCC: "SCC-OS-LINUX"}}
	l.Attestations["482913"] = []*ledger.AttestationRecord{{SCC: "SCC-OS-LINUX"}}
	return l
}

func newGatherer(t *testing.T, f *fakeFetcher) *Gatherer {
	t.Helper()
	return &Gatherer{
		DocSysIDs:      SysIDs{"Access Control Policy": "sys-aaa"},
		BPERSysIDs:     SysIDs{"BPER0012345": "sys-bper"},
		Fetch:          f,
		BPERDir:        t.TempDir(),
		AttestationDir: t.TempDir(),
		DocumentDir:    t.TempDir(),
		Log:            discardLogger(),
		Now:            func() time.Time { return time.Date(2026, 1, 21, 16, 30, 0, 0, time.UTC) },
	}
}

func TestGathererRun(t *testing.T) {
	l := gatherLedger()
	f := &fakeFetcher{}
	g := newGatherer(t, f)

	results := g.Run(context.Background(), l)
	sum := stage.Summarize(results)
	if sum.Failed != 0 {
		t.Fatalf("unexpected failures: %+v", results)
	}

	doc := l.Documents["access_control_policy"][0]
	if !doc.Gathered || doc.GatheredAt != "2026-01-21 16:30:00" {
		t.Errorf("document not marked gathered: %+v", doc)
	}
	if len(f.docs) != 1 || f.docs[0] != "Access Control Policy" {
		t.Errorf("fetched wrong documents: %v", f.docs)
	}

	if !l.Attestations["482913"][0].Gathered {
		t.Error("attestation not marked gathered")
	}

	if !l.BPERs["BPER0012345"][0].Gathered {
		t.Error("registered BPER not marked gathered")
	}
	if l.BPERs["BPER0099999"][0].Gathered {
		t.Error("unregistered BPER should stay ungathered")
	}

	if l.Settings.GatherSortDate != "2026-01-21 16:30:00" {
		t.Errorf("gather timestamp wrong: %q", l.Settings.GatherSortDate)
	}
}

func TestGathererSkipsGatheredDocuments(t *testing.T) {
	l := gatherLedger()
	l.Documents["access_control_policy"][0].Gathered = true
	f := &fakeFetcher{}
	g := newGatherer(t, f)

	g.Run(context.Background(), l)
	if len(f.docs) != 0 {
		t.Errorf("re-fetched gathered documents: %v", f.docs)
	}
}

func TestGathererBPERFetchFailure(t *testing.T) {
	l := gatherLedger()
	f := &fakeFetcher{failBPERs: true}
	g := newGatherer(t, f)

	results := g.Run(context.Background(), l)
	if sum := stage.Summarize(results); sum.Failed == 0 {
		t.Fatalf("want failures surfaced: %+v", results)
	}
	if l.BPERs["BPER0012345"][0].Gathered {
		t.Error("BPER marked gathered despite fetch failure")
	}
}

func TestLoadSysIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc_sysids.json")
	if err := os.WriteFile(path, []byte(`{"Access Control Policy": "sys-aaa"}`), 0644); err != nil {
		t.Fatal(err)
	}
	ids, err := LoadSysIDs(path)
	if err != nil {
		t.Fatal(err)
	}
	if ids["Access Control Policy"] != "sys-aaa" {
		t.Errorf("unexpected registry: %v", ids)
	}

	if _, err := LoadSysIDs(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("want error for missing registry")
	}
}
