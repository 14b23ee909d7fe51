package snow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestFetcher(t *testing.T, downloads string, landName string) *BrowserFetcher {
	t.Helper()
	return &BrowserFetcher{
		BaseURL:      "https://grc.example.com/",
		DownloadsDir: downloads,
		BPERSysIDs:   SysIDs{"BPER0012345": "abc123"},
		DocSysIDs:    SysIDs{"Access Control Policy": "def456"},
		OpenURL: func(rawURL string) error {
			// Simulate the browser landing a file shortly after the tab opens.
			return os.WriteFile(filepath.Join(downloads, landName), []byte("pdf-bytes"), 0o644)
		},
		WaitTimeout: 2 * time.Second,
		Poll:        10 * time.Millisecond,
		Log:         discardLogger(),
	}
}

func TestFetchBPERsRenamesDownload(t *testing.T) {
	downloads := t.TempDir()
	dest := t.TempDir()
	f := newTestFetcher(t, downloads, "sn_compliance_bulk_policy_exception.pdf")

	if err := f.FetchBPERs(context.Background(), []string{"BPER0012345"}, dest); err != nil {
		t.Fatalf("FetchBPERs: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "BPER0012345.pdf")); err != nil {
		t.Errorf("renamed BPER file missing: %v", err)
	}
	if entries, _ := os.ReadDir(downloads); len(entries) != 0 {
		t.Errorf("downloads folder not drained, %d entries remain", len(entries))
	}
}

func TestFetchBPERsUnknownKey(t *testing.T) {
	f := newTestFetcher(t, t.TempDir(), "x.pdf")
	err := f.FetchBPERs(context.Background(), []string{"BPER0099999"}, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "no sys_id registered") {
		t.Fatalf("err = %v, want missing sys_id error", err)
	}
}

func TestFetchDocumentsKeepsLandedName(t *testing.T) {
	downloads := t.TempDir()
	dest := t.TempDir()
	f := newTestFetcher(t, downloads, "Access_Control_Policy_03.docx")

	if err := f.FetchDocuments(context.Background(), []string{"Access Control Policy"}, dest); err != nil {
		t.Fatalf("FetchDocuments: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "Access_Control_Policy_03.docx")); err != nil {
		t.Errorf("document missing at destination: %v", err)
	}
}

func TestWaitForDownloadIgnoresPartials(t *testing.T) {
	downloads := t.TempDir()
	f := &BrowserFetcher{
		DownloadsDir: downloads,
		WaitTimeout:  200 * time.Millisecond,
		Poll:         10 * time.Millisecond,
		Log:          discardLogger(),
	}
	if err := os.WriteFile(filepath.Join(downloads, "export.pdf.part"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := f.waitForDownload(context.Background(), downloads, time.Now().Add(-time.Minute))
	if err == nil {
		t.Fatal("expected timeout while only a partial file exists")
	}
}

func TestWaitForDownloadHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &BrowserFetcher{
		DownloadsDir: t.TempDir(),
		WaitTimeout:  5 * time.Second,
		Poll:         10 * time.Millisecond,
		Log:          discardLogger(),
	}
	if _, err := f.waitForDownload(ctx, f.DownloadsDir, time.Now()); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
