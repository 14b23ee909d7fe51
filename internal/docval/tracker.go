// Package docval refreshes the team's Document Validation tracker workbook
// from the ledger. The workbook is a shared artifact with a fixed tab layout;
// this code only fills cells, it never restructures the sheets.
package docval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
)

// Tab names in the tracker template.
const (
	sheetSCCs         = "SCC's"
	sheetSCCSCM       = "SCC-SCM"
	sheetDocuments    = "SCC-Documents"
	sheetBPERs        = "SCC-BPER"
	sheetAttestations = "SCC-Attestation"
)

// UpdateTracker rewrites the data rows of every tab in the tracker workbook
// at templatePath from the ledger and saves it in place.
func UpdateTracker(l *ledger.Ledger, templatePath string) error {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return fmt.Errorf("open tracker workbook: %w", err)
	}
	defer f.Close()

	if err := updateSCCsTab(f, l); err != nil {
		return err
	}
	if err := updateSCMTab(f, l); err != nil {
		return err
	}
	if err := updateDocumentsTab(f, l); err != nil {
		return err
	}
	if err := updateBPERTab(f, l); err != nil {
		return err
	}
	if err := updateAttestationTab(f, l); err != nil {
		return err
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("save tracker workbook: %w", err)
	}
	return nil
}

// setCell writes one value at (col, row), 1-based.
func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func presence(on bool) string {
	if on {
		return "X"
	}
	return ""
}

func updateSCCsTab(f *excelize.File, l *ledger.Ledger) error {
	row := 2
	for _, path := range sortedKeys(l.SCCs) {
		info := l.SCCs[path]
		reviewDate := strings.Replace(info.LastReviewDate, "T00:00:00", "", 1)

		cells := []struct {
			col   int
			value any
		}{
			{2, info.Name},
			{3, info.Version},
			{4, reviewDate},
			{6, presence(info.SCMName != "")},
			{7, presence(info.SystemScope)},
			{8, presence(info.PolicyProcedure)},
			{9, presence(info.MethodColumn)},
			{10, presence(info.ExceptionColumn)},
			{11, presence(info.DeviationColumn)},
			{12, presence(info.TLAColumn)},
			{13, presence(info.MethodColumn)},
			{14, presence(info.DocumentationColumn)},
		}
		for _, c := range cells {
			if err := setCell(f, sheetSCCs, c.col, row, c.value); err != nil {
				return fmt.Errorf("update %s: %w", sheetSCCs, err)
			}
		}
		row++
	}
	return nil
}

func updateSCMTab(f *excelize.File, l *ledger.Ledger) error {
	row := 2
	for _, path := range sortedKeys(l.SCCs) {
		info := l.SCCs[path]
		if err := setCell(f, sheetSCCSCM, 1, row, info.Name); err != nil {
			return fmt.Errorf("update %s: %w", sheetSCCSCM, err)
		}
		if info.SCMName != "" {
			if err := setCell(f, sheetSCCSCM, 2, row, info.SCMName); err != nil {
				return fmt.Errorf("update %s: %w", sheetSCCSCM, err)
			}
		}
		row++
	}
	return nil
}

func updateDocumentsTab(f *excelize.File, l *ledger.Ledger) error {
	row := 2
	for _, name := range sortedKeys(l.Documents) {
		for _, d := range l.Documents[name] {
			values := []any{d.SCC, d.Name, d.Version, presence(d.Gathered), d.GatheredAt, d.LastUpdate}
			for col, v := range values {
				if err := setCell(f, sheetDocuments, col+1, row, v); err != nil {
					return fmt.Errorf("update %s: %w", sheetDocuments, err)
				}
			}
			row++
		}
	}
	return nil
}

func updateBPERTab(f *excelize.File, l *ledger.Ledger) error {
	row := 2
	for _, name := range sortedKeys(l.BPERs) {
		for _, e := range l.BPERs[name] {
			gatheredDate := ""
			if e.GatheredAt != "" {
				gatheredDate = strings.Fields(e.GatheredAt)[0]
			}
			values := []any{e.SCC, name, presence(e.Gathered), gatheredDate, presence(e.ApprovalStatus == "Approved"), e.ValidTo}
			for col, v := range values {
				if err := setCell(f, sheetBPERs, col+1, row, v); err != nil {
					return fmt.Errorf("update %s: %w", sheetBPERs, err)
				}
			}
			row++
		}
	}
	return nil
}

func updateAttestationTab(f *excelize.File, l *ledger.Ledger) error {
	row := 2
	for _, num := range sortedKeys(l.Attestations) {
		for _, a := range l.Attestations[num] {
			values := []any{
				a.SCC, num, presence(a.Gathered), a.GatheredAt,
				presence(a.ApprovalStatus == "approve open"), a.ValidTo,
				a.ReviewDate, a.OverallStatus,
			}
			for col, v := range values {
				if err := setCell(f, sheetAttestations, col+1, row, v); err != nil {
					return fmt.Errorf("update %s: %w", sheetAttestations, err)
				}
			}
			row++
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
