package sccparse

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
)

const (
	checkMaxRows = 150
	checkMaxCols = 50

	// ReviewWindowDays is the freshness window for the last-review-date check.
	ReviewWindowDays = 180
)

var (
	scmRe             = regexp.MustCompile(`(?i)SCM\d+`)
	guidanceRe        = regexp.MustCompile(`(?i)SCC Guidance Source`)
	policyProcedureRe = regexp.MustCompile(`(?i)SCC Policy and Procedures Source`)
	systemScopeRe     = regexp.MustCompile(`(?i)SCC System Scope`)
)

// dateLayouts covers the formats excelize renders date cells with, plus the
// ISO forms that show up in text cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01-02-06",
	"1/2/06",
	"1/2/2006",
	"01/02/2006",
	"1/2/06 15:04",
	"2-Jan-06",
	"02-Jan-06",
	"Jan 2, 2006",
}

// ParseCellDate attempts to interpret a cell's rendered value as a date.
func ParseCellDate(cell string) (time.Time, bool) {
	text := strings.TrimSpace(cell)
	if text == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate inspects a checklist spreadsheet for required structural elements
// and returns the SCC record describing compliance. Evidence methods are left
// empty here; they are populated from check records after extraction. An
// unreadable file yields nil.
func Validate(path string, now time.Time, log *slog.Logger) *ledger.SCCRecord {
	f, err := excelize.OpenFile(path)
	if err != nil {
		log.Error("unable to open spreadsheet, skipping checks", "path", path, "err", err)
		return nil
	}
	defer f.Close()

	base := baseName(path)
	info := &ledger.SCCRecord{
		Name:            ledger.CanonicalName(base),
		Version:         ledger.VersionFromName(base),
		EvidenceMethods: []string{},
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return info
	}

	cover, err := f.GetRows(sheets[0])
	if err == nil {
		// SCM identifier must match the whole trimmed cell; the presence
		// patterns tolerate a few characters of label padding.
		info.SCMName, _ = findInSheet(cover, scmRe, 0, checkMaxRows, checkMaxCols)
		_, info.GuidanceSource = findInSheet(cover, guidanceRe, 5, checkMaxRows, checkMaxCols)
		_, info.PolicyProcedure = findInSheet(cover, policyProcedureRe, 5, checkMaxRows, checkMaxCols)
		_, info.SystemScope = findInSheet(cover, systemScopeRe, 3, checkMaxRows, checkMaxCols)
	}

	if latest, ok := mostRecentDate(f, sheets, now); ok {
		info.LastReviewDate = latest.Format(time.RFC3339)
		info.ReviewedWithin180 = ReviewedWithin(latest, now, ReviewWindowDays)
	}

	info.ExceptionColumn = columnPresent(f, sheets, "exception")
	info.DeviationColumn = columnPresent(f, sheets, "deviation")
	info.TLAColumn = columnPresent(f, sheets, "tla")
	info.MethodColumn = columnPresent(f, sheets, "method")
	info.DocumentationColumn = columnPresent(f, sheets, "documentation")

	return info
}

// ReviewedWithin reports whether the review date falls within the window.
// A date exactly on the boundary counts as reviewed.
func ReviewedWithin(review, now time.Time, days int) bool {
	elapsed := int(now.Sub(review).Hours() / 24)
	return elapsed <= days
}

// mostRecentDate scans every sheet's first 150 rows for the latest date-typed
// cell value. Dates after now are ignored: "Valid to" cells hold future
// expiry dates, which must not pass for a review date.
func mostRecentDate(f *excelize.File, sheets []string, now time.Time) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for i, row := range rows {
			if i >= checkMaxRows {
				break
			}
			for _, cell := range row {
				if t, ok := ParseCellDate(cell); ok && !t.After(now) {
					if !found || t.After(latest) {
						latest = t
						found = true
					}
				}
			}
		}
	}
	return latest, found
}

// columnPresent checks every sheet after the first for a header cell
// containing the substring (case-insensitive).
func columnPresent(f *excelize.File, sheets []string, name string) bool {
	if len(sheets) < 2 {
		return false
	}
	for _, sheet := range sheets[1:] {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		limit := len(rows[0])
		if limit > checkMaxCols {
			limit = checkMaxCols
		}
		for j := 0; j < limit; j++ {
			if strings.Contains(strings.ToLower(rows[0][j]), name) {
				return true
			}
		}
	}
	return false
}
