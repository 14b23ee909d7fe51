package tenable

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kaizen-tdl/kaizen/internal/stage"
)

// Report is the subset of SecurityCenter report fields this tool works with.
type Report struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Owner      Owner  `json:"owner"`
	StartTime  string `json:"startTime"`
	FinishTime string `json:"finishTime"`
}

type reportListEnvelope struct {
	Response struct {
		Usable []Report `json:"usable"`
	} `json:"response"`
}

type reportEnvelope struct {
	Response Report `json:"response"`
}

// ListReports retrieves all reports visible to the authenticated user.
func (c *Client) ListReports(ctx context.Context) ([]Report, error) {
	params := url.Values{"fields": {"id,name,owner,status,startTime,finishTime"}}
	var env reportListEnvelope
	if err := c.get(ctx, "report", params, &env); err != nil {
		return nil, err
	}
	return env.Response.Usable, nil
}

// FilterReportsByOwner keeps only the reports owned by the given username.
// Listing everyone's reports and filtering locally is far faster than asking
// the server to scope the query.
func FilterReportsByOwner(reports []Report, username string) []Report {
	var out []Report
	for _, r := range reports {
		if r.Owner.Username == username {
			out = append(out, r)
		}
	}
	return out
}

// FindReportByName returns the first report whose name matches, ignoring
// case.
func FindReportByName(reports []Report, name string) *Report {
	for i := range reports {
		if strings.EqualFold(reports[i].Name, name) {
			return &reports[i]
		}
	}
	return nil
}

// CreateScanReport submits a PDF report of a scan's output against a report
// template and returns the new report's ID.
func (c *Client) CreateScanReport(ctx context.Context, scanID, templateID string) (string, error) {
	body := map[string]any{
		"definition": map[string]any{
			"name":     fmt.Sprintf("Report for Scan %s", scanID),
			"type":     "pdf",
			"template": map[string]string{"id": templateID},
			"chapters": []map[string]string{
				{"type": "scan", "scanID": scanID},
			},
		},
	}
	var env reportEnvelope
	if err := c.post(ctx, "report", body, &env); err != nil {
		return "", err
	}
	return env.Response.ID, nil
}

// GetReportStatus fetches a report's current generation status.
func (c *Client) GetReportStatus(ctx context.Context, reportID string) (string, error) {
	var env reportEnvelope
	if err := c.get(ctx, "report/"+reportID, nil, &env); err != nil {
		return "", err
	}
	return env.Response.Status, nil
}

// DownloadReport fetches a finished report's bytes and the file extension
// implied by the response content type.
func (c *Client) DownloadReport(ctx context.Context, reportID string) ([]byte, string, error) {
	resp, err := c.do(ctx, "POST", "report/"+reportID+"/download", nil, map[string]any{})
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("tenable: read report %s: %w", reportID, err)
	}
	return content, extensionForContentType(resp.Header.Get("Content-Type")), nil
}

// extensionForContentType maps a download's content type onto a file
// extension. Unknown types get none. lasr is checked before asr because the
// former contains the latter.
func extensionForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "pdf"):
		return ".pdf"
	case strings.Contains(contentType, "rtf"):
		return ".rtf"
	case strings.Contains(contentType, "csv"):
		return ".csv"
	case strings.Contains(contentType, "lasr"):
		return ".lasr"
	case strings.Contains(contentType, "asr"):
		return ".asr"
	case strings.Contains(contentType, "arf"):
		return ".arf"
	default:
		return ""
	}
}

// FetchGeneratedReport polls a report until it completes, then downloads it.
// Error and Cancelled states abort immediately.
func (c *Client) FetchGeneratedReport(ctx context.Context, reportID string, maxRetries int, delay time.Duration) ([]byte, string, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		status, err := c.GetReportStatus(ctx, reportID)
		if err != nil {
			return nil, "", err
		}
		switch status {
		case "Completed":
			return c.DownloadReport(ctx, reportID)
		case "Error", "Cancelled":
			return nil, "", fmt.Errorf("tenable: report %s generation failed: %s", reportID, status)
		}
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, "", fmt.Errorf("tenable: report %s generation timed out", reportID)
}

// Report names carry the scan name they were generated from, e.g.
// "TDL-PDF (Scan: TDL-SCC-OS-LINUX-PassFail (1of3))". The SCC name and the
// report flavor are recovered from that text to route the download.
var (
	reportPrefixRe = regexp.MustCompile(`^TDL-(PDF|CSV) \(Scan[_:] TDL-`)
	reportSuffixRe = regexp.MustCompile(`(.*?)(-(?:Info|PassFail).*)`)
)

// DownloadReportsForOwner downloads every report owned by the given user
// into the evidence folder its name routes to: Info reports land under
// Manual/Automated Info, PassFail reports under Automated.
func (c *Client) DownloadReportsForOwner(ctx context.Context, owner, projectDir string, log *slog.Logger) ([]stage.Result, error) {
	reports, err := c.ListReports(ctx)
	if err != nil {
		return nil, err
	}

	var results []stage.Result
	for _, report := range FilterReportsByOwner(reports, owner) {
		stripped := reportPrefixRe.ReplaceAllString(report.Name, "")
		stripped = strings.TrimSuffix(stripped, ")")

		m := reportSuffixRe.FindStringSubmatch(stripped)
		if m == nil {
			log.Warn("unexpected report name format", "report", report.Name)
			results = append(results, stage.Skip(report.Name, "unrecognized name format"))
			continue
		}
		sccName := strings.TrimSpace(m[1])
		suffix := m[2]

		content, ext, err := c.DownloadReport(ctx, report.ID)
		if err != nil {
			results = append(results, stage.Fail(report.Name, err))
			continue
		}

		var dir string
		switch {
		case strings.Contains(suffix, "Info"):
			dir = filepath.Join(projectDir, sccName, "Manual", "Automated Info")
		case strings.Contains(suffix, "PassFail"):
			dir = filepath.Join(projectDir, sccName, "Automated")
		default:
			dir = filepath.Join(projectDir, sccName)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			results = append(results, stage.Fail(report.Name, fmt.Errorf("create report dir: %w", err)))
			continue
		}

		dest := filepath.Join(dir, sccName+suffix+ext)
		if err := os.WriteFile(dest, content, 0644); err != nil {
			results = append(results, stage.Fail(report.Name, fmt.Errorf("write report: %w", err)))
			continue
		}
		log.Info("downloaded report", "report", report.Name, "dest", dest)
		results = append(results, stage.OKResult(report.Name))
	}
	return results, nil
}
