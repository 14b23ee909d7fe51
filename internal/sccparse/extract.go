// Package sccparse reads security control checklist spreadsheets: the
// extractor pulls exception/attestation/document/check references out of the
// per-control sheets, the validator checks the cover sheet for required
// structural elements. Neither touches persistent state.
package sccparse

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
)

const maxHeaderCols = 50

var (
	bperRe        = regexp.MustCompile(`BPER\d{7}`)
	attestationRe = regexp.MustCompile(`\b\d{6}\b`)
	docSplitRe    = regexp.MustCompile(`\s{2,}|\r?\n`)
)

// sheetColumns locates the relevant columns on one sheet by header substring.
// Zero value means "not present" (column indexes are 1-based).
type sheetColumns struct {
	exception     int
	deviation     int
	tla           int
	documentation int
	method        int
}

func findColumns(header []string) sheetColumns {
	var cols sheetColumns
	limit := len(header)
	if limit > maxHeaderCols {
		limit = maxHeaderCols
	}
	for i := 0; i < limit; i++ {
		h := strings.ToLower(header[i])
		if h == "" {
			continue
		}
		switch {
		case strings.Contains(h, "exception"):
			cols.exception = i + 1
		case strings.Contains(h, "deviation"):
			cols.deviation = i + 1
		case strings.Contains(h, "tla"):
			cols.tla = i + 1
		case strings.Contains(h, "documentation"):
			cols.documentation = i + 1
		case strings.Contains(h, "method"):
			cols.method = i + 1
		}
	}
	return cols
}

// Extract parses one checklist spreadsheet into an extraction batch. A file
// that cannot be opened yields an empty batch and a log entry; the caller's
// loop over remaining files continues either way.
func Extract(path string, log *slog.Logger) *ledger.Extraction {
	out := ledger.NewExtraction()

	f, err := excelize.OpenFile(path)
	if err != nil {
		log.Error("unable to open spreadsheet, skipping", "path", path, "err", err)
		return out
	}
	defer f.Close()

	sccName := ledger.CanonicalName(baseName(path))
	sheets := f.GetSheetList()
	if len(sheets) < 2 {
		return out
	}

	// First sheet is the cover/summary sheet; control data starts after it.
	for _, sheet := range sheets[1:] {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) < 2 {
			continue
		}
		cols := findColumns(rows[0])

		for _, row := range rows[1:] {
			extractExceptions(out, row, cols, sccName)
			if cols.documentation > 0 {
				extractDocumentation(out, cellAt(row, cols.documentation), sccName)
			}
			if cols.method > 0 {
				method := strings.TrimSpace(cellAt(row, cols.method))
				checkID := strings.TrimSpace(cellAt(row, 1))
				if method != "" && checkID != "" {
					out.Checks[checkID] = &ledger.CheckRecord{SCC: sccName, Method: method}
				}
			}
		}
	}

	log.Info("extracted records",
		"path", path,
		"bpers", len(out.BPERs),
		"documents", len(out.Documents),
		"attestations", len(out.Attestations),
		"checks", len(out.Checks))
	return out
}

// extractExceptions runs the BPER pattern over the exception, deviation and
// TLA cells of one row. A hit in the TLA column sets the TLA flag; the flag
// is OR-accumulated and never cleared by a later non-TLA hit.
func extractExceptions(out *ledger.Extraction, row []string, cols sheetColumns, sccName string) {
	for _, src := range []struct {
		col int
		tla bool
	}{
		{cols.exception, false},
		{cols.deviation, false},
		{cols.tla, true},
	} {
		if src.col == 0 {
			continue
		}
		for _, id := range bperRe.FindAllString(cellAt(row, src.col), -1) {
			if existing, ok := out.BPERs[id]; ok {
				if src.tla {
					existing.TLA = true
				}
				continue
			}
			out.BPERs[id] = &ledger.ExceptionRecord{
				SCC:  sccName,
				Name: id,
				TLA:  src.tla,
			}
		}
	}
}

// extractDocumentation splits a documentation cell into candidate tokens and
// classifies each as an attestation (standalone 6-digit number, pattern wins)
// or a supporting document (cleaned name, 6-digit runs stripped). First
// occurrence per key wins.
func extractDocumentation(out *ledger.Extraction, cell, sccName string) {
	if cell == "" {
		return
	}
	for _, token := range docSplitRe.Split(cell, -1) {
		normalized := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(token, "\n", "")))
		if normalized == "" || normalized == "NA" || normalized == "N/A" ||
			normalized == "NO" || normalized == "NONE" {
			continue
		}

		if num := attestationRe.FindString(token); num != "" {
			if _, ok := out.Attestations[num]; !ok {
				out.Attestations[num] = &ledger.AttestationRecord{
					SCC:    sccName,
					Number: num,
				}
			}
			continue
		}

		name := strings.TrimSpace(attestationRe.ReplaceAllString(token, ""))
		if name == "" {
			continue
		}
		if _, ok := out.Documents[name]; !ok {
			out.Documents[name] = &ledger.DocumentRecord{
				SCC:  sccName,
				Name: name,
			}
		}
	}
}

// cellAt returns the 1-based column value from a GetRows row, tolerating the
// ragged rows excelize produces for trailing empty cells.
func cellAt(row []string, col int) string {
	if col < 1 || col > len(row) {
		return ""
	}
	return row[col-1]
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
