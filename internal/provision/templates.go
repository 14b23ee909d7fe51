package provision

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
	"github.com/kaizen-tdl/kaizen/internal/stage"
)

// Template file names expected in the template directory. Copies are renamed
// to the SCC with a leading "!" so they sort to the top of the folder.
const (
	tmplDocumentEvidence = "Teamname-Document_Evidence.xlsx"
	tmplEvidenceValid    = "Teamname-EvidenceValidation.xlsx"
	tmplManualControl    = "Teamname-Manual_Control_Evidence.xlsx"
	tmplDeviceGapList    = "Teamname-DeviceGapList.xlsx"
	tmplRemediation      = "Teamname-Remediation.xlsx"
	tmplScreenshot       = "Manual Screenshot Template.docx"
)

// TemplateEditor rewrites placeholder text inside a copied template file.
// Word documents need a real docx writer for this, so the dependency is
// injected rather than baked in.
type TemplateEditor interface {
	ReplaceText(path string, replacements map[string]string) error
}

// Templater copies evidence templates into the provisioned SCC trees.
type Templater struct {
	ProjectDir  string
	TemplateDir string
	Editor      TemplateEditor
	Log         *slog.Logger
}

// BuildTemplates seeds every SCC directory with the templates its evidence
// methods call for. Method-specific templates only land when the matching
// subfolder exists, so run BuildDirs first.
func (t *Templater) BuildTemplates(l *ledger.Ledger) []stage.Result {
	groups := map[string][]checkItem{}
	for id, check := range l.Checks {
		name := ledger.CanonicalName(check.SCC)
		groups[name] = append(groups[name], checkItem{id: id, method: strings.ToLower(check.Method)})
	}

	var results []stage.Result
	for _, scc := range sortedKeys(groups) {
		if err := t.buildForSCC(scc, groups[scc]); err != nil {
			results = append(results, stage.Fail(scc, err))
			continue
		}
		results = append(results, stage.OKResult(scc))
	}
	return results
}

type checkItem struct {
	id     string
	method string
}

func (t *Templater) buildForSCC(scc string, items []checkItem) error {
	mainDir := filepath.Join(t.ProjectDir, scc)
	manualDir := filepath.Join(mainDir, "Manual")
	automatedDir := filepath.Join(mainDir, "Automated")

	var hasAutomated, hasManual, hasManualDocument bool
	var screenshotIDs []string
	for _, item := range items {
		if strings.Contains(item.method, "automated") {
			hasAutomated = true
		}
		if strings.Contains(item.method, "manual") {
			hasManual = true
		}
		if item.method == "manual-document" {
			hasManualDocument = true
		}
		if item.method == "manual-screenshot" {
			screenshotIDs = append(screenshotIDs, item.id)
		}
	}

	if hasManualDocument && dirExists(manualDir) {
		if err := t.copyTemplate(tmplDocumentEvidence, filepath.Join(manualDir, "!"+scc+"-Document_Evidence.xlsx")); err != nil {
			return err
		}
	}
	if hasAutomated && dirExists(automatedDir) {
		if err := t.copyTemplate(tmplEvidenceValid, filepath.Join(automatedDir, "!"+scc+"-EvidenceValidation.xlsx")); err != nil {
			return err
		}
	}
	if hasManual && dirExists(manualDir) {
		if err := t.copyTemplate(tmplManualControl, filepath.Join(manualDir, "!"+scc+"-Manual_Control_Evidence.xlsx")); err != nil {
			return err
		}
	}

	// Gap list and remediation workbooks go in unconditionally.
	if err := t.copyTemplate(tmplDeviceGapList, filepath.Join(mainDir, "!"+scc+"-DeviceGapList.xlsx")); err != nil {
		return err
	}
	if err := t.copyTemplate(tmplRemediation, filepath.Join(mainDir, "!"+scc+"-Remediation.xlsx")); err != nil {
		return err
	}

	screenshotsDir := filepath.Join(manualDir, "Screenshots")
	if len(screenshotIDs) > 0 && dirExists(screenshotsDir) {
		for _, id := range screenshotIDs {
			dest := filepath.Join(screenshotsDir, id+".docx")
			if err := t.copyTemplate(tmplScreenshot, dest); err != nil {
				return err
			}
			if t.Editor == nil {
				continue
			}
			err := t.Editor.ReplaceText(dest, map[string]string{
				"FILENAMEINSERT": scc,
				"STIGIDINSERT":   id,
			})
			if err != nil {
				return fmt.Errorf("fill screenshot template %s: %w", id, err)
			}
		}
	}

	t.Log.Info("templates placed", "scc", scc)
	return nil
}

func (t *Templater) copyTemplate(name, dest string) error {
	src, err := os.Open(filepath.Join(t.TemplateDir, name))
	if err != nil {
		return fmt.Errorf("open template %s: %w", name, err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("copy template %s: %w", name, err)
	}
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
