// Package snow gathers evidence documents out of ServiceNow. Records in the
// sys_id registries are maintained by hand, so document names rarely match
// the ledger exactly; lookup goes through fuzzy matching.
package snow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
	"github.com/kaizen-tdl/kaizen/internal/match"
	"github.com/kaizen-tdl/kaizen/internal/stage"
)

const timestampLayout = "2006-01-02 15:04:05"

// SysIDs maps a document or BPER name onto its ServiceNow sys_id.
type SysIDs map[string]string

// LoadSysIDs reads a registry file (doc_sysids.json or BPER_sysids.json).
func LoadSysIDs(path string) (SysIDs, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sys_id registry: %w", err)
	}
	var ids SysIDs
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("parse sys_id registry %s: %w", path, err)
	}
	return ids, nil
}

// MatchName finds the registry entry whose name is most similar to the given
// document name. Both sides are normalized before comparison. Returns false
// when the best similarity falls below the threshold.
func (s SysIDs) MatchName(name string, threshold float64) (matched, sysID string, ok bool) {
	clean := match.NormalizeDocName(name)
	best := 0.0
	for candidate, id := range s {
		ratio := match.Similarity(clean, match.NormalizeDocName(candidate))
		if ratio > best {
			best = ratio
			matched, sysID = candidate, id
		}
	}
	if best < threshold {
		return "", "", false
	}
	return matched, sysID, true
}

// Fetcher retrieves evidence files from ServiceNow into a destination
// directory. The browser-automation implementation lives with the CLI; tests
// substitute their own.
type Fetcher interface {
	FetchDocuments(ctx context.Context, names []string, destDir string) error
	FetchBPERs(ctx context.Context, names []string, destDir string) error
	FetchAttestations(ctx context.Context, ids []string, destDir string) error
}

// Gatherer drives the evidence download pass across a ledger.
type Gatherer struct {
	DocSysIDs  SysIDs
	BPERSysIDs SysIDs
	Fetch      Fetcher

	BPERDir        string
	AttestationDir string
	DocumentDir    string

	Log *slog.Logger
	Now func() time.Time
}

func (g *Gatherer) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Run downloads every document, attestation, and BPER the ledger still lists
// as ungathered and flips the gathered flags for what arrived. The gather
// timestamp lands in program settings.
func (g *Gatherer) Run(ctx context.Context, l *ledger.Ledger) []stage.Result {
	var results []stage.Result
	results = append(results, g.gatherDocuments(ctx, l)...)
	results = append(results, g.gatherAttestations(ctx, l)...)
	results = append(results, g.gatherBPERs(ctx, l)...)
	l.Settings.GatherSortDate = g.now().Format(timestampLayout)
	return results
}

func (g *Gatherer) gatherDocuments(ctx context.Context, l *ledger.Ledger) []stage.Result {
	var results []stage.Result
	matchedByKey := map[string]string{}
	var toFetch []string
	for _, key := range sortedKeys(l.Documents) {
		if !anyUngatheredDocs(l.Documents[key]) {
			continue
		}
		matched, _, ok := g.DocSysIDs.MatchName(key, match.SysIDThreshold)
		if !ok {
			g.Log.Warn("no registry match for document", "document", key)
			results = append(results, stage.Skip(key, "no sys_id match"))
			continue
		}
		matchedByKey[key] = matched
		toFetch = append(toFetch, matched)
	}

	if len(toFetch) > 0 {
		if err := g.Fetch.FetchDocuments(ctx, toFetch, g.DocumentDir); err != nil {
			for key := range matchedByKey {
				results = append(results, stage.Fail(key, err))
			}
			return results
		}
		now := g.now().Format(timestampLayout)
		for key := range matchedByKey {
			for _, d := range l.Documents[key] {
				d.Gathered = true
				d.GatheredAt = now
			}
			results = append(results, stage.OKResult(key))
		}
	}
	return results
}

func (g *Gatherer) gatherAttestations(ctx context.Context, l *ledger.Ledger) []stage.Result {
	ids := sortedKeys(l.Attestations)
	if len(ids) == 0 {
		return nil
	}
	if err := g.Fetch.FetchAttestations(ctx, ids, g.AttestationDir); err != nil {
		return []stage.Result{stage.Fail("attestations", err)}
	}

	var results []stage.Result
	for _, id := range ids {
		// The fetch lands either an html page or an exported pdf.
		got := fileExists(filepath.Join(g.AttestationDir, id+".html")) ||
			fileExists(filepath.Join(g.AttestationDir, id+".pdf"))
		for _, a := range l.Attestations[id] {
			a.Gathered = got
		}
		if got {
			results = append(results, stage.OKResult(id))
		} else {
			results = append(results, stage.Skip(id, "attestation not downloaded"))
		}
	}
	return results
}

func (g *Gatherer) gatherBPERs(ctx context.Context, l *ledger.Ledger) []stage.Result {
	var results []stage.Result
	var toFetch []string
	for _, key := range sortedKeys(l.BPERs) {
		if !anyUngatheredBPERs(l.BPERs[key]) {
			continue
		}
		if _, ok := g.BPERSysIDs[key]; !ok {
			g.Log.Warn("BPER missing from registry", "bper", key)
			results = append(results, stage.Skip(key, "no sys_id entry"))
			continue
		}
		toFetch = append(toFetch, key)
	}

	if len(toFetch) > 0 {
		if err := g.Fetch.FetchBPERs(ctx, toFetch, g.BPERDir); err != nil {
			for _, key := range toFetch {
				results = append(results, stage.Fail(key, err))
			}
			return results
		}
		now := g.now().Format(timestampLayout)
		for _, key := range toFetch {
			for _, e := range l.BPERs[key] {
				e.Gathered = true
				e.GatheredAt = now
			}
			results = append(results, stage.OKResult(key))
		}
	}
	return results
}

func anyUngatheredDocs(entries []*ledger.DocumentRecord) bool {
	for _, d := range entries {
		if !d.Gathered && !d.FalsePositive {
			return true
		}
	}
	return false
}

func anyUngatheredBPERs(entries []*ledger.ExceptionRecord) bool {
	for _, e := range entries {
		if !e.Gathered && !e.FalsePositive {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
