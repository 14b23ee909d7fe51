package snow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// ServiceNow record URLs. Evidence leaves the instance through the browser:
// there is no API access for these record types, so the fetcher opens each
// record's export URL in the analyst's logged-in browser session and waits
// for the file to land in the downloads folder.
const (
	loginPath           = "now/nav/ui/classic/params/target/home.do"
	docAttachmentPath   = "sys_attachment.do?sys_id=%s"
	bperExportPath      = "sn_compliance_bulk_policy_exception.do?sys_id=%s&PDF&sysparm_view=&related_list_filter=&sysparm_domain="
	attestationListPath = "sn_compliance_attestation_list.do?sysparm_query=number=%s"
)

// partialSuffixes are in-progress download artifacts the poll loop ignores.
var partialSuffixes = []string{".part", ".crdownload", ".tmp", ".download"}

// BrowserFetcher downloads evidence through the system browser. It assumes
// the analyst has already signed in; OpenLogin starts that session.
type BrowserFetcher struct {
	BaseURL      string // instance root, e.g. https://example.servicenowservices.com/
	DownloadsDir string // where the browser lands files, default ~/Downloads
	DocSysIDs    SysIDs
	BPERSysIDs   SysIDs

	OpenURL     func(rawURL string) error // nil means the OS default browser
	WaitTimeout time.Duration             // per download, default 60s
	Poll        time.Duration             // default 1s

	Log *slog.Logger
}

// OpenLogin opens the instance home page so the analyst can authenticate
// before any downloads start.
func (f *BrowserFetcher) OpenLogin() error {
	return f.open(f.instanceURL(loginPath))
}

// FetchDocuments downloads each named document's attachment. The browser
// decides the landed filename, so the file is moved as-is; a clash in the
// destination gets a timestamp suffix instead of overwriting.
func (f *BrowserFetcher) FetchDocuments(ctx context.Context, names []string, destDir string) error {
	for _, name := range names {
		sysID, ok := f.DocSysIDs[name]
		if !ok {
			return fmt.Errorf("no sys_id registered for document %q", name)
		}
		if _, err := f.fetchOne(ctx, fmt.Sprintf(docAttachmentPath, url.QueryEscape(sysID)), destDir, ""); err != nil {
			return fmt.Errorf("fetch document %q: %w", name, err)
		}
	}
	return nil
}

// FetchBPERs downloads each BPER's PDF export and renames it to {key}.pdf,
// the name the reconciler looks for.
func (f *BrowserFetcher) FetchBPERs(ctx context.Context, names []string, destDir string) error {
	for _, name := range names {
		sysID, ok := f.BPERSysIDs[name]
		if !ok {
			return fmt.Errorf("no sys_id registered for BPER %q", name)
		}
		if _, err := f.fetchOne(ctx, fmt.Sprintf(bperExportPath, url.QueryEscape(sysID)), destDir, name+".pdf"); err != nil {
			return fmt.Errorf("fetch BPER %q: %w", name, err)
		}
	}
	return nil
}

// FetchAttestations opens each attestation's record view for the analyst to
// export. Attestations have no direct export URL, so a download may or may
// not arrive per record; the caller checks what actually landed.
func (f *BrowserFetcher) FetchAttestations(ctx context.Context, ids []string, destDir string) error {
	for _, id := range ids {
		path, err := f.fetchOne(ctx, fmt.Sprintf(attestationListPath, url.QueryEscape(id)), destDir, "")
		if err != nil {
			f.log().Info("no download for attestation", "attestation", id, "err", err)
			continue
		}
		// Key the landed file by attestation number so presence checks work.
		keyed := filepath.Join(destDir, id+filepath.Ext(path))
		if path != keyed {
			if err := moveFile(path, keyed); err != nil {
				return fmt.Errorf("rename attestation %q: %w", id, err)
			}
		}
	}
	return nil
}

// fetchOne opens one URL and waits for a new file in the downloads folder,
// then moves it into destDir. rename, when non-empty, is the destination
// basename; otherwise the landed name is kept.
func (f *BrowserFetcher) fetchOne(ctx context.Context, path, destDir, rename string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	downloads := f.downloadsDir()
	since := time.Now()

	rawURL := f.instanceURL(path)
	f.log().Debug("opening record", "url", rawURL)
	if err := f.open(rawURL); err != nil {
		return "", fmt.Errorf("open browser: %w", err)
	}

	landed, err := f.waitForDownload(ctx, downloads, since)
	if err != nil {
		return "", err
	}

	destName := rename
	if destName == "" {
		destName = filepath.Base(landed)
	}
	dest := filepath.Join(destDir, destName)
	if _, err := os.Stat(dest); err == nil && rename == "" {
		ext := filepath.Ext(destName)
		base := strings.TrimSuffix(destName, ext)
		dest = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", base, time.Now().Unix(), ext))
	}
	if err := moveFile(landed, dest); err != nil {
		return "", err
	}
	f.log().Info("downloaded", "file", dest)
	return dest, nil
}

// waitForDownload polls the downloads folder for a file modified after the
// fetch started, skipping the browser's partial-download artifacts.
func (f *BrowserFetcher) waitForDownload(ctx context.Context, dir string, since time.Time) (string, error) {
	timeout := f.WaitTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	poll := f.Poll
	if poll == 0 {
		poll = time.Second
	}

	deadline := time.Now().Add(timeout)
	for {
		if path := newestSince(dir, since); path != "" {
			return path, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("no download arrived in %s within %s", dir, timeout)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(poll):
		}
	}
}

func newestSince(dir string, since time.Time) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTime time.Time
	for _, e := range entries {
		if e.IsDir() || isPartial(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(since) && info.ModTime().After(bestTime) {
			best = filepath.Join(dir, e.Name())
			bestTime = info.ModTime()
		}
	}
	return best
}

func isPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func (f *BrowserFetcher) instanceURL(path string) string {
	return strings.TrimSuffix(f.BaseURL, "/") + "/" + path
}

func (f *BrowserFetcher) downloadsDir() string {
	if f.DownloadsDir != "" {
		return f.DownloadsDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

func (f *BrowserFetcher) open(rawURL string) error {
	if f.OpenURL != nil {
		return f.OpenURL(rawURL)
	}
	switch runtime.GOOS {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL).Start()
	case "darwin":
		return exec.Command("open", rawURL).Start()
	default:
		return exec.Command("xdg-open", rawURL).Start()
	}
}

func (f *BrowserFetcher) log() *slog.Logger {
	if f.Log != nil {
		return f.Log
	}
	return slog.Default()
}

// moveFile renames, falling back to copy-and-remove for cross-device moves
// (downloads folder and project tree are often on different volumes).
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
