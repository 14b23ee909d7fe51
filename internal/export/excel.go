// Package export renders the ledger as a spreadsheet for people who review
// progress in Excel rather than JSON.
package export

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
)

// WriteWorkbook writes progress.xlsx-style output: one sheet per ledger
// collection plus a program settings sheet.
func WriteWorkbook(l *ledger.Ledger, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeBPERSheet(f, l); err != nil {
		return err
	}
	if err := writeAttestationSheet(f, l); err != nil {
		return err
	}
	if err := writeDocumentSheet(f, l); err != nil {
		return err
	}
	if err := writeSCCSheet(f, l); err != nil {
		return err
	}
	if err := writeCheckSheet(f, l); err != nil {
		return err
	}
	if err := writeSettingsSheet(f, l); err != nil {
		return err
	}

	// Drop the workbook's default sheet.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save workbook: %w", err)
	}
	return nil
}

func newSheet(f *excelize.File, name string, header []any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("export: create sheet %s: %w", name, err)
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("export: write header %s: %w", name, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export: write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func writeBPERSheet(f *excelize.File, l *ledger.Ledger) error {
	const sheet = "BPERs"
	if err := newSheet(f, sheet, []any{"BPER", "SCC", "Gathered", "TLA", "Approval Status", "Valid To", "False Positive", "Linked File"}); err != nil {
		return err
	}
	row := 2
	for _, key := range sortedKeys(l.BPERs) {
		for _, e := range l.BPERs[key] {
			err := writeRow(f, sheet, row, []any{key, e.SCC, yesNo(e.Gathered), yesNo(e.TLA), e.ApprovalStatus, e.ValidTo, yesNo(e.FalsePositive), e.ManualLink})
			if err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeAttestationSheet(f *excelize.File, l *ledger.Ledger) error {
	const sheet = "Attestations"
	if err := newSheet(f, sheet, []any{"Attestation", "SCC", "Gathered", "Approval Status", "Valid To", "Review Date", "Overall Status", "False Positive"}); err != nil {
		return err
	}
	row := 2
	for _, key := range sortedKeys(l.Attestations) {
		for _, a := range l.Attestations[key] {
			err := writeRow(f, sheet, row, []any{key, a.SCC, yesNo(a.Gathered), a.ApprovalStatus, a.ValidTo, a.ReviewDate, a.OverallStatus, yesNo(a.FalsePositive)})
			if err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeDocumentSheet(f *excelize.File, l *ledger.Ledger) error {
	const sheet = "Documents"
	if err := newSheet(f, sheet, []any{"Document", "SCC", "Gathered", "Version", "Last Update", "False Positive", "Linked File"}); err != nil {
		return err
	}
	row := 2
	for _, key := range sortedKeys(l.Documents) {
		for _, d := range l.Documents[key] {
			err := writeRow(f, sheet, row, []any{key, d.SCC, yesNo(d.Gathered), d.Version, d.LastUpdate, yesNo(d.FalsePositive), d.ManualLink})
			if err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeSCCSheet(f *excelize.File, l *ledger.Ledger) error {
	const sheet = "SCC"
	header := []any{
		"SCC", "Version", "SCM Name", "Last Review Date", "Reviewed Within 180 Days",
		"Guidance Source", "Policy and Procedure", "System Scope", "Exception Column",
		"Deviation Column", "TLA Column", "Method Column", "Documentation Column",
		"Directory Built", "Inventory File", "PassFail Status", "Info Status",
	}
	if err := newSheet(f, sheet, header); err != nil {
		return err
	}
	row := 2
	for _, path := range sortedKeys(l.SCCs) {
		info := l.SCCs[path]
		values := []any{
			info.Name, info.Version, info.SCMName, info.LastReviewDate, yesNo(info.ReviewedWithin180),
			yesNo(info.GuidanceSource), yesNo(info.PolicyProcedure), yesNo(info.SystemScope), yesNo(info.ExceptionColumn),
			yesNo(info.DeviationColumn), yesNo(info.TLAColumn), yesNo(info.MethodColumn), yesNo(info.DocumentationColumn),
			yesNo(info.DirectoryBuilt), info.InventoryFile, info.PassFailStatus, info.InfoStatus,
		}
		if err := writeRow(f, sheet, row, values); err != nil {
			return err
		}
		row++
	}
	return nil
}

func writeCheckSheet(f *excelize.File, l *ledger.Ledger) error {
	const sheet = "Checks"
	if err := newSheet(f, sheet, []any{"Check ID", "SCC", "Evidence Method"}); err != nil {
		return err
	}
	row := 2
	for _, id := range sortedKeys(l.Checks) {
		check := l.Checks[id]
		if err := writeRow(f, sheet, row, []any{id, check.SCC, check.Method}); err != nil {
			return err
		}
		row++
	}
	return nil
}

func writeSettingsSheet(f *excelize.File, l *ledger.Ledger) error {
	const sheet = "Program Settings"
	if err := newSheet(f, sheet, []any{"Setting", "Value"}); err != nil {
		return err
	}
	s := l.Settings
	rows := [][2]string{
		{"Project Directory", s.ProjectDir},
		{"SCC Directory", s.SCCDir},
		{"BPERs Directory", s.BPERDir},
		{"Attestation Directory", s.AttestationDir},
		{"Supporting Documents Directory", s.SupportingDocsDir},
		{"Template Directory", s.TemplateDir},
		{"Directories Built", yesNo(s.DirectoriesBuilt)},
		{"Templates Built", yesNo(s.TemplatesBuilt)},
		{"Pull Info Date", s.PullInfoDate},
		{"Gather and Sort Date", s.GatherSortDate},
		{"Checklists Generated", s.ChecklistsGenDate},
		{"Doc Tracker Update", s.DocTrackerUpdate},
		{"Last Inventory Check", s.LastInventoryCheck},
	}
	for i, r := range rows {
		if err := writeRow(f, sheet, i+2, []any{r[0], r[1]}); err != nil {
			return err
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
