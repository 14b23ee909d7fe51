// Package evidence reads status fields out of gathered evidence files.
// BPER and attestation evidence arrives as PDF exports; the fields of
// interest are labeled values in the rendered text. Supporting documents
// carry no parseable status, so their last-update date comes from the file
// itself.
package evidence

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kaizen-tdl/kaizen/internal/reconcile"
)

const dateStamp = "2006-01-02 15:04:05"

// Label patterns tolerate the spacing PDF text extraction produces: labels
// and values can land on one run of text with no line breaks, so values are
// captured as a short word run or a date rather than "rest of line".
var (
	datePattern = `(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4})`

	validToRe    = regexp.MustCompile(`(?i)valid\s+to\s*:?\s*` + datePattern)
	reviewRe     = regexp.MustCompile(`(?i)review\s+date\s*:?\s*` + datePattern)
	assessmentRe = regexp.MustCompile(`(?i)assessment\s+date\s*:?\s*` + datePattern)

	approvalRe = regexp.MustCompile(`(?i)approval\s+status\s*:?\s*([A-Za-z]+(?:[ \t][A-Za-z]+)?)`)
	overallRe  = regexp.MustCompile(`(?i)overall\s+status\s*:?\s*([A-Za-z]+(?:[ \t][A-Za-z]+)?)`)

	tlaRe = regexp.MustCompile(`\bTLA\b`)
)

// PDFExtractor implements the reconciler's extractor interfaces against
// evidence files on disk.
type PDFExtractor struct {
	Log *slog.Logger
}

func (x PDFExtractor) ExtractBPER(path string) (reconcile.BPERInfo, error) {
	text, err := pdfText(path)
	if err != nil {
		return reconcile.BPERInfo{}, err
	}
	return ParseBPERText(text), nil
}

func (x PDFExtractor) ExtractAttestation(path string) (reconcile.AttestationInfo, error) {
	text, err := pdfText(path)
	if err != nil {
		return reconcile.AttestationInfo{}, err
	}
	return ParseAttestationText(text)
}

// ExtractDocument reports when a supporting document last changed. The
// documents are Word and Excel files with no embedded status block, so the
// filesystem modification time stands in for a document-internal date.
func (x PDFExtractor) ExtractDocument(path string) (reconcile.DocumentInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return reconcile.DocumentInfo{}, err
	}
	return reconcile.DocumentInfo{LastUpdate: fi.ModTime().Format(dateStamp)}, nil
}

// ParseBPERText pulls the exception fields out of extracted PDF text.
// Missing labels leave their fields empty; a BPER export with no status
// block is still a gathered BPER.
func ParseBPERText(text string) reconcile.BPERInfo {
	return reconcile.BPERInfo{
		ValidTo:        firstMatch(validToRe, text),
		ApprovalStatus: firstMatch(approvalRe, text),
		TLA:            tlaRe.MatchString(text),
	}
}

// ParseAttestationText pulls the attestation fields out of extracted PDF
// text. An export with no approval status at all is treated as unreadable
// rather than silently blanking the record.
func ParseAttestationText(text string) (reconcile.AttestationInfo, error) {
	approval := firstMatch(approvalRe, text)
	if approval == "" {
		return reconcile.AttestationInfo{}, fmt.Errorf("no approval status field in extracted text")
	}
	return reconcile.AttestationInfo{
		ApprovalStatus: approval,
		ValidTo:        firstMatch(validToRe, text),
		ReviewDate:     firstMatch(reviewRe, text),
		AssessmentDate: firstMatch(assessmentRe, text),
		OverallStatus:  firstMatch(overallRe, text),
	}, nil
}

func firstMatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", path, err)
	}
	return buf.String(), nil
}
