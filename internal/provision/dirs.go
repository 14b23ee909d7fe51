// Package provision lays out the per-SCC evidence directory trees and seeds
// them with the team's document templates.
package provision

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

// Standard subfolders created under every SCC directory. Attestations is
// added only when the ledger holds attestation entries for the SCC.
var standardSubdirs = []string{
	"Exceptions and Deviations",
	"Supporting Documents",
}

// manualSubdirs maps an evidence-method keyword onto the subfolder it
// provisions under Manual/.
var manualSubdirs = []struct {
	keyword string
	folder  string
}{
	{"screenshot", "Screenshots"},
	{"auto info", "Automated Info"},
	{"script", "Scripts"},
	{"document", "Documents"},
	{"3rd party tool", "3rd party tools"},
}

// Builder creates SCC directory trees under the project directory.
type Builder struct {
	ProjectDir string
	Log        *slog.Logger
}

// BuildDirs provisions a directory tree for every SCC whose tree has not been
// built yet and flips the built flag on success. Already-built SCCs are
// skipped so repeated runs are cheap and never disturb gathered evidence.
func (b *Builder) BuildDirs(l *ledger.Ledger) []stage.Result {
	var results []stage.Result
	for _, path := range sortedKeys(l.SCCs) {
		info := l.SCCs[path]
		if info == nil || info.Name == "" {
			b.Log.Warn("SCC entry missing name, skipping", "path", path)
			results = append(results, stage.Skip(path, "missing SCC name"))
			continue
		}
		if info.DirectoryBuilt {
			results = append(results, stage.Skip(info.Name, "directory already built"))
			continue
		}
		if err := b.buildOne(l, info); err != nil {
			results = append(results, stage.Fail(info.Name, err))
			continue
		}
		info.DirectoryBuilt = true
		results = append(results, stage.OKResult(info.Name))
	}
	return results
}

func (b *Builder) buildOne(l *ledger.Ledger, info *ledger.SCCRecord) error {
	mainDir := filepath.Join(b.ProjectDir, info.Name)
	if err := os.MkdirAll(mainDir, 0755); err != nil {
		return fmt.Errorf("create SCC directory: %w", err)
	}

	subdirs := append([]string{}, standardSubdirs...)
	if l.HasAttestations(info.Name) {
		subdirs = append(subdirs, "Attestations")
	}
	for _, sub := range subdirs {
		if err := os.MkdirAll(filepath.Join(mainDir, sub), 0755); err != nil {
			return fmt.Errorf("create %s: %w", sub, err)
		}
	}

	methods := info.EvidenceMethods
	if len(methods) == 0 {
		methods = l.MethodsForSCC(info.Name)
	}
	manual := map[string]bool{}
	for _, method := range methods {
		method = strings.ToLower(method)
		if strings.Contains(method, "automated") {
			if err := os.MkdirAll(filepath.Join(mainDir, "Automated"), 0755); err != nil {
				return fmt.Errorf("create Automated: %w", err)
			}
		}
		if !strings.Contains(method, "manual") {
			continue
		}
		if err := os.MkdirAll(filepath.Join(mainDir, "Manual"), 0755); err != nil {
			return fmt.Errorf("create Manual: %w", err)
		}
		for _, ms := range manualSubdirs {
			if strings.Contains(method, ms.keyword) {
				manual[ms.folder] = true
			}
		}
	}
	for folder := range manual {
		if err := os.MkdirAll(filepath.Join(mainDir, "Manual", folder), 0755); err != nil {
			return fmt.Errorf("create Manual/%s: %w", folder, err)
		}
	}

	b.Log.Info("provisioned SCC directory tree", "scc", info.Name, "dir", mainDir)
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
