// Package match provides the scored fuzzy-name matching used to pair ledger
// records with files on disk and with the document-fetch name mappings. A
// match always comes back with its confidence so callers can apply their own
// thresholds; nothing below a caller's threshold is ever silently accepted.
package match

import (
	"regexp"
	"strings"

	"github.com/agext/levenshtein"
)

// Default thresholds. Evidence-file matching is strict; the name→sys_id
// mapping tolerates looser names because the sources abbreviate titles.
const (
	FileThreshold  = 0.8
	SysIDThreshold = 0.5
)

// Match is a scored candidate.
type Match struct {
	Value      string
	Confidence float64
}

// Similarity scores two strings in [0,1].
func Similarity(a, b string) float64 {
	return levenshtein.Similarity(a, b, nil)
}

// Best returns the highest-scoring candidate for target. ok is false when
// there were no candidates at all; the caller still checks the confidence
// against its threshold.
func Best(target string, candidates []string) (Match, bool) {
	best := Match{Confidence: -1}
	for _, c := range candidates {
		score := Similarity(target, c)
		if score > best.Confidence {
			best = Match{Value: c, Confidence: score}
		}
	}
	return best, best.Confidence >= 0
}

var extRe = regexp.MustCompile(`\.[^.]+$`)

// NormalizeDocName lowercases a document title and strips the extension and
// trailing dots/ellipsis, so titles truncated by the source systems still
// compare well.
func NormalizeDocName(name string) string {
	n := strings.ToLower(name)
	n = extRe.ReplaceAllString(n, "")
	n = strings.TrimRight(n, ".")
	n = strings.TrimRight(n, "…")
	return strings.TrimSpace(n)
}
