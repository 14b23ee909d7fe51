// Package reconcile re-derives ledger record status by cross-referencing
// entries against the evidence files on disk. Absence of evidence is an
// expected steady state, not a fault: records without a matching file are
// left untouched and reported as skipped.
package reconcile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
	"github.com/kaizen-tdl/kaizen/internal/match"
	"github.com/kaizen-tdl/kaizen/internal/stage"
)

// Subfolder names under each SCC directory.
const (
	BPERSubdir        = "Exceptions and Deviations"
	AttestationSubdir = "Attestations"
	DocumentSubdir    = "Supporting Documents"
)

const timestampLayout = "2006-01-02 15:04:05"

// docExtensions are the file types considered when fuzzy-matching documents.
var docExtensions = map[string]bool{
	".docx": true,
	".doc":  true,
	".xlsx": true,
	".xls":  true,
	".pdf":  true,
}

// Dirs are the evidence locations the reconciler searches. ProjectDir holds
// the per-SCC folder trees; the central dirs hold evidence gathered before
// sorting.
type Dirs struct {
	ProjectDir     string
	BPERDir        string
	AttestationDir string
	DocumentDir    string
}

// Reconciler updates ledger records from evidence files.
type Reconciler struct {
	Dirs      Dirs
	Extract   Extractors
	Threshold float64 // fuzzy doc-match acceptance, 0 means match.FileThreshold
	Log       *slog.Logger
	Now       func() time.Time
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reconciler) threshold() float64 {
	if r.Threshold > 0 {
		return r.Threshold
	}
	return match.FileThreshold
}

// Run reconciles every non-false-positive record in the ledger and returns
// one result per record. Failures are per-record; the pass always completes.
func (r *Reconciler) Run(l *ledger.Ledger) []stage.Result {
	var results []stage.Result
	results = append(results, r.reconcileBPERs(l)...)
	results = append(results, r.reconcileAttestations(l)...)
	results = append(results, r.reconcileDocuments(l)...)
	return results
}

func (r *Reconciler) reconcileBPERs(l *ledger.Ledger) []stage.Result {
	var results []stage.Result
	for _, key := range sortedKeys(l.BPERs) {
		for _, rec := range l.BPERs[key] {
			unit := fmt.Sprintf("BPER %s (%s)", key, rec.SCC)
			if rec.FalsePositive {
				results = append(results, stage.Skip(unit, "false positive"))
				continue
			}
			path := rec.ManualLink
			if path == "" {
				path = r.findFile(rec.SCC, BPERSubdir, r.Dirs.BPERDir, key+".pdf")
			}
			if path == "" || !fileExists(path) {
				r.Log.Info("no evidence file for BPER", "bper", key, "scc", rec.SCC)
				results = append(results, stage.Skip(unit, "no evidence file"))
				continue
			}
			info, err := r.Extract.BPER.ExtractBPER(path)
			if err != nil {
				r.Log.Warn("BPER extraction failed", "bper", key, "path", path, "err", err)
				results = append(results, stage.Fail(unit, err))
				continue
			}
			rec.ValidTo = info.ValidTo
			rec.ApprovalStatus = info.ApprovalStatus
			if info.TLA {
				rec.TLA = true
			}
			rec.UpdatedFromFile = filepath.Base(path)
			rec.UpdatedAt = r.now().Format(timestampLayout)
			results = append(results, stage.OKResult(unit))
		}
	}
	return results
}

func (r *Reconciler) reconcileAttestations(l *ledger.Ledger) []stage.Result {
	var results []stage.Result
	for _, key := range sortedKeys(l.Attestations) {
		for _, rec := range l.Attestations[key] {
			unit := fmt.Sprintf("attestation %s (%s)", key, rec.SCC)
			if rec.FalsePositive {
				results = append(results, stage.Skip(unit, "false positive"))
				continue
			}
			path := rec.ManualLink
			if path == "" {
				path = r.findFile(rec.SCC, AttestationSubdir, r.Dirs.AttestationDir, key+".pdf")
			}
			if path == "" || !fileExists(path) {
				r.Log.Info("no evidence file for attestation", "attestation", key, "scc", rec.SCC)
				results = append(results, stage.Skip(unit, "no evidence file"))
				continue
			}
			info, err := r.Extract.Attestation.ExtractAttestation(path)
			if err != nil {
				r.Log.Warn("attestation extraction failed", "attestation", key, "path", path, "err", err)
				results = append(results, stage.Fail(unit, err))
				continue
			}
			rec.ApprovalStatus = info.ApprovalStatus
			rec.ValidTo = info.ValidTo
			rec.ReviewDate = info.ReviewDate
			rec.AssessmentDate = info.AssessmentDate
			rec.OverallStatus = info.OverallStatus
			rec.UpdatedFromFile = filepath.Base(path)
			rec.UpdatedAt = r.now().Format(timestampLayout)
			results = append(results, stage.OKResult(unit))
		}
	}
	return results
}

func (r *Reconciler) reconcileDocuments(l *ledger.Ledger) []stage.Result {
	var results []stage.Result
	for _, name := range sortedKeys(l.Documents) {
		entries := l.Documents[name]
		unit := fmt.Sprintf("document %s", name)

		active := false
		for _, rec := range entries {
			if !rec.FalsePositive {
				active = true
				break
			}
		}
		if !active {
			results = append(results, stage.Skip(unit, "false positive"))
			continue
		}

		path := ""
		for _, rec := range entries {
			if rec.ManualLink != "" {
				path = rec.ManualLink
				break
			}
		}
		if path == "" {
			var conf float64
			path, conf = r.matchDocumentFile(name)
			if path == "" {
				r.Log.Info("no close match for document", "doc", name, "confidence", conf)
				results = append(results, stage.Skip(unit, "no match at threshold"))
				continue
			}
		}
		if !fileExists(path) {
			results = append(results, stage.Skip(unit, "no evidence file"))
			continue
		}

		info, err := r.Extract.Document.ExtractDocument(path)
		if err != nil {
			r.Log.Warn("document extraction failed", "doc", name, "path", path, "err", err)
			results = append(results, stage.Fail(unit, err))
			continue
		}
		// The per-SCC entries describe the same underlying file, so the
		// extracted fields apply to all of them.
		base := filepath.Base(path)
		stamp := r.now().Format(timestampLayout)
		for _, rec := range entries {
			rec.LastUpdate = info.LastUpdate
			rec.Version = VersionFromFilename(base)
			rec.UpdatedFromFile = base
			rec.UpdatedAt = stamp
		}
		results = append(results, stage.OKResult(unit))
	}
	return results
}

// matchDocumentFile fuzzy-matches a document name against the files in the
// documents folder. Scoring runs on normalized names so extensions and
// version suffixes don't drag down otherwise exact titles. The best
// candidate is accepted only at or above the threshold; a low-confidence
// best match is treated as no match.
func (r *Reconciler) matchDocumentFile(name string) (string, float64) {
	entries, err := os.ReadDir(r.Dirs.DocumentDir)
	if err != nil {
		return "", 0
	}
	byNormalized := map[string]string{}
	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if docExtensions[filepath.Ext(e.Name())] {
			n := match.NormalizeDocName(fileVersionSuffixRe.ReplaceAllString(e.Name(), "$1"))
			byNormalized[n] = e.Name()
			candidates = append(candidates, n)
		}
	}
	best, ok := match.Best(match.NormalizeDocName(name), candidates)
	if !ok || best.Confidence < r.threshold() {
		return "", best.Confidence
	}
	return filepath.Join(r.Dirs.DocumentDir, byNormalized[best.Value]), best.Confidence
}

var fileVersionSuffixRe = regexp.MustCompile(`_\d{2}(\.[^.]+)$`)

// findFile resolves the naming convention: the SCC's category subfolder
// first, then the central gathering directory.
func (r *Reconciler) findFile(scc, subdir, centralDir, filename string) string {
	if r.Dirs.ProjectDir != "" {
		p := filepath.Join(r.Dirs.ProjectDir, scc, subdir, filename)
		if fileExists(p) {
			return p
		}
	}
	if centralDir != "" {
		p := filepath.Join(centralDir, filename)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

var fileVersionRe = regexp.MustCompile(`_(\d{2})\.[^.]+$`)

// VersionFromFilename recovers the _NN version suffix before the extension.
func VersionFromFilename(filename string) string {
	m := fileVersionRe.FindStringSubmatch(filename)
	if m == nil {
		return ""
	}
	return m[1]
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
