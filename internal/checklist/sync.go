package checklist

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
	"github.com/kaizen-tdl/kaizen/internal/stage"
)

// Sync reads operator checkbox edits out of each SCC's info doc and copies
// the gathered flags back onto the ledger records. Matching is a literal
// substring test on the checked row prefix, so reordered or hand-edited
// documents still sync as long as the row text itself is intact.
func Sync(l *ledger.Ledger, projectDir string, log *slog.Logger) []stage.Result {
	var results []stage.Result
	for _, path := range sortedKeys(l.SCCs) {
		info := l.SCCs[path]
		if info == nil || info.Name == "" {
			continue
		}
		docPath := info.InfoDocPath
		if docPath == "" {
			docPath = filepath.Join(projectDir, info.Name, info.Name+"_info.md")
		}
		raw, err := os.ReadFile(docPath)
		if err != nil {
			log.Warn("info doc not readable, skipping sync", "scc", info.Name, "path", docPath)
			results = append(results, stage.Skip(info.Name, "info doc missing"))
			continue
		}
		content := string(raw)

		for key, entries := range l.Attestations {
			syncEntries(content, info.Name, key, attestationNumWidth, entries, func(a *ledger.AttestationRecord) (*string, *bool) {
				return &a.SCC, &a.Gathered
			})
		}
		for key, entries := range l.BPERs {
			syncEntries(content, info.Name, key, bperNameWidth, entries, func(e *ledger.ExceptionRecord) (*string, *bool) {
				return &e.SCC, &e.Gathered
			})
		}
		for key, entries := range l.Documents {
			syncEntries(content, info.Name, key, documentNameWidth, entries, func(d *ledger.DocumentRecord) (*string, *bool) {
				return &d.SCC, &d.Gathered
			})
		}
		results = append(results, stage.OKResult(info.Name))
	}
	return results
}

// checkedRowPrefix is the leading text of a checked table row for a record
// key. It must stay in lockstep with the render format.
func checkedRowPrefix(key string, width int) string {
	return fmt.Sprintf("| [x]      | %s", truncate(key, width))
}

func syncEntries[T any](content, sccName, key string, width int, entries []*T, access func(*T) (*string, *bool)) {
	prefix := checkedRowPrefix(key, width)
	present := strings.Contains(content, prefix)
	for _, entry := range entries {
		scc, gathered := access(entry)
		if *scc != sccName {
			continue
		}
		*gathered = present
	}
}
