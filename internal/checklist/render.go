// Package checklist projects the ledger into human-editable artifacts and
// reads operator checkbox edits back. The exact column widths are load
// bearing: sync keys on literal substring presence of each record's checked
// row prefix, so render and sync must agree character for character.
package checklist

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
	"github.com/kaizen-tdl/kaizen/internal/stage"
)

// Field widths in the rendered artifacts.
const (
	bperNameWidth        = 13
	attestationNumWidth  = 18
	documentNameWidth    = 75
	approvalStatusWidth  = 15
	validToWidth         = 9
	versionWidth         = 7
	lastUpdateWidth      = 11
	checklistAlignColumn = 55
)

// Renderer writes per-SCC artifacts under the project directory: a markdown
// info doc inside each SCC folder and a plain-text checklist beside it.
type Renderer struct {
	ProjectDir string
	Log        *slog.Logger
}

// GenerateAll renders artifacts for every SCC in the ledger and records each
// info doc's path on its SCC record.
func (r *Renderer) GenerateAll(l *ledger.Ledger) []stage.Result {
	var results []stage.Result
	for _, path := range sortedKeys(l.SCCs) {
		info := l.SCCs[path]
		if info == nil || info.Name == "" {
			r.Log.Warn("SCC entry missing name, skipping", "path", path)
			results = append(results, stage.Skip(path, "missing SCC name"))
			continue
		}

		docPath := filepath.Join(r.ProjectDir, info.Name, info.Name+"_info.md")
		if err := os.MkdirAll(filepath.Dir(docPath), 0755); err != nil {
			results = append(results, stage.Fail(info.Name, fmt.Errorf("create SCC folder: %w", err)))
			continue
		}
		if err := os.WriteFile(docPath, []byte(RenderInfoDoc(l, info)), 0644); err != nil {
			results = append(results, stage.Fail(info.Name, fmt.Errorf("write info doc: %w", err)))
			continue
		}
		info.InfoDocPath = docPath

		txtPath := filepath.Join(r.ProjectDir, info.Name+".txt")
		if err := os.WriteFile(txtPath, []byte(RenderChecklist(l, info)), 0644); err != nil {
			results = append(results, stage.Fail(info.Name, fmt.Errorf("write checklist: %w", err)))
			continue
		}
		results = append(results, stage.OKResult(info.Name))
	}
	return results
}

// RenderInfoDoc builds the markdown info document for one SCC.
func RenderInfoDoc(l *ledger.Ledger, info *ledger.SCCRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", info.Name)
	fmt.Fprintf(&b, "**SCC Version:**            %s\n\n", info.Version)
	fmt.Fprintf(&b, "**SCM Name:**               %s\n\n", info.SCMName)
	fmt.Fprintf(&b, "**Last Review Date:**       %s\n\n", info.LastReviewDate)
	fmt.Fprintf(&b, "- [%s] SCC Guidance source\n", mark(info.GuidanceSource))
	fmt.Fprintf(&b, "- [%s] SCC Policy and Procedure\n", mark(info.PolicyProcedure))
	fmt.Fprintf(&b, "- [%s] SCC System Scope Presence\n", mark(info.SystemScope))
	fmt.Fprintf(&b, "- [%s] Exception Column\n", mark(info.ExceptionColumn))
	fmt.Fprintf(&b, "- [%s] Deviation Column\n", mark(info.DeviationColumn))
	fmt.Fprintf(&b, "- [%s] TLA Column\n", mark(info.TLAColumn))
	fmt.Fprintf(&b, "- [%s] Compliance Method Column\n", mark(info.MethodColumn))
	fmt.Fprintf(&b, "- [%s] Documentation Column\n\n", mark(info.DocumentationColumn))

	b.WriteString("## Attestations\n\n")
	b.WriteString("| Gathered | Attestation Number | Approval Status | Valid To  |\n")
	b.WriteString("| -------- | ------------------ | --------------- | --------- |\n")
	for _, key := range sortedKeys(l.Attestations) {
		for _, a := range l.Attestations[key] {
			if a.SCC != info.Name || a.FalsePositive {
				continue
			}
			fmt.Fprintf(&b, "| [%s]      | %s | %s | %s |\n",
				mark(a.Gathered),
				field(key, attestationNumWidth),
				field(a.ApprovalStatus, approvalStatusWidth),
				field(a.ValidTo, validToWidth))
		}
	}

	b.WriteString("\n## BPERs\n\n")
	b.WriteString("| Gathered | BPER Name     | Approval Status | Valid To  | TLA |\n")
	b.WriteString("| -------- | ------------- | --------------- | --------- | --- |\n")
	for _, key := range sortedKeys(l.BPERs) {
		for _, e := range l.BPERs[key] {
			if e.SCC != info.Name || e.FalsePositive {
				continue
			}
			fmt.Fprintf(&b, "| [%s]      | %s | %s | %s | [%s] |\n",
				mark(e.Gathered),
				field(key, bperNameWidth),
				field(e.ApprovalStatus, approvalStatusWidth),
				field(e.ValidTo, validToWidth),
				mark(e.TLA))
		}
	}

	b.WriteString("\n## Documents\n\n")
	b.WriteString("| Gathered | Document Name                                                               | Version | Last Update |\n")
	b.WriteString("| -------- | --------------------------------------------------------------------------- | ------- | ----------- |\n")
	for _, key := range sortedKeys(l.Documents) {
		for _, d := range l.Documents[key] {
			if d.SCC != info.Name || d.FalsePositive {
				continue
			}
			fmt.Fprintf(&b, "| [%s]      | %s | %s | %s |\n",
				mark(d.Gathered),
				field(key, documentNameWidth),
				field(d.Version, versionWidth),
				field(d.LastUpdate, lastUpdateWidth))
		}
	}

	b.WriteString("\n## Checks\n\n")
	b.WriteString(renderCheckTable(l, info.Name, true))
	return b.String()
}

// RenderChecklist builds the fixed plain-text checklist artifact for one SCC.
func RenderChecklist(l *ledger.Ledger, info *ledger.SCCRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", info.Name)
	fmt.Fprintf(&b, "Version: %s\n", info.Version)
	fmt.Fprintf(&b, "SCM Name: %s\n", info.SCMName)
	fmt.Fprintf(&b, "Last Review Date: %s\n", info.LastReviewDate)

	b.WriteString("\nAttestations:\n")
	for _, key := range sortedKeys(l.Attestations) {
		for _, a := range l.Attestations[key] {
			if a.SCC != info.Name || a.FalsePositive {
				continue
			}
			writeCheckboxLine(&b, a.Gathered, key, "", "Valid to", truncate(a.ValidTo, validToWidth))
		}
	}

	b.WriteString("\nBPERs:\n")
	for _, key := range sortedKeys(l.BPERs) {
		for _, e := range l.BPERs[key] {
			if e.SCC != info.Name || e.FalsePositive {
				continue
			}
			tlaMark := ""
			if e.TLA {
				tlaMark = "  [ ] Add TLA Docs"
			}
			writeCheckboxLine(&b, e.Gathered, key, tlaMark, "Valid to", truncate(e.ValidTo, validToWidth))
		}
	}

	b.WriteString("\nDocuments:\n")
	for _, key := range sortedKeys(l.Documents) {
		for _, d := range l.Documents[key] {
			if d.SCC != info.Name || d.FalsePositive {
				continue
			}
			writeCheckboxLine(&b, d.Gathered, key, "", "Last update", truncate(d.LastUpdate, lastUpdateWidth))
		}
	}

	b.WriteString("\n")
	b.WriteString(renderCheckTable(l, info.Name, false))
	return b.String()
}

// writeCheckboxLine emits one `\t\t[x] name<padding>Label: value` row aligned
// at column 55.
func writeCheckboxLine(b *strings.Builder, gathered bool, name, tlaMark, label, value string) {
	box := "[ ]"
	if gathered {
		box = "[x]"
	}
	name = truncate(name, documentNameWidth)
	padding := checklistAlignColumn - len(name) - len(tlaMark)
	if padding < 1 {
		padding = 1
	}
	fmt.Fprintf(b, "\t\t%s %s%s%s%s: %s\n", box, name, tlaMark, strings.Repeat(" ", padding), label, value)
}

// renderCheckTable groups check IDs by evidence method, one column per
// method, sorted by method then by ID.
func renderCheckTable(l *ledger.Ledger, sccName string, markdown bool) string {
	byMethod := map[string][]string{}
	for id, check := range l.Checks {
		if check.SCC != sccName {
			continue
		}
		method := strings.ReplaceAll(strings.ToUpper(check.Method), "NA", "N/A")
		byMethod[method] = append(byMethod[method], id)
	}
	if len(byMethod) == 0 {
		return "No checks found.\n"
	}

	methods := make([]string, 0, len(byMethod))
	maxRows := 0
	for m, ids := range byMethod {
		sort.Strings(ids)
		methods = append(methods, m)
		if len(ids) > maxRows {
			maxRows = len(ids)
		}
	}
	sort.Strings(methods)

	widths := make([]int, len(methods))
	for i, m := range methods {
		widths[i] = len(m)
		for _, id := range byMethod[m] {
			if len(id) > widths[i] {
				widths[i] = len(id)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i, c := range cells {
			fmt.Fprintf(&b, " %-*s |", widths[i], c)
		}
		b.WriteString("\n")
	}
	writeSeparator := func() {
		b.WriteString("+")
		for _, w := range widths {
			b.WriteString(strings.Repeat("-", w+2))
			b.WriteString("+")
		}
		b.WriteString("\n")
	}

	if markdown {
		writeRow(methods)
		dashes := make([]string, len(methods))
		for i, w := range widths {
			dashes[i] = strings.Repeat("-", w)
		}
		writeRow(dashes)
	} else {
		writeSeparator()
		writeRow(methods)
		writeSeparator()
	}

	for row := 0; row < maxRows; row++ {
		cells := make([]string, len(methods))
		for i, m := range methods {
			if row < len(byMethod[m]) {
				cells[i] = byMethod[m][row]
			}
		}
		writeRow(cells)
	}
	if !markdown {
		writeSeparator()
	}
	return b.String()
}

func mark(on bool) string {
	if on {
		return "x"
	}
	return " "
}

// field pads or truncates to an exact width.
func field(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

func truncate(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
