// Package stage defines the per-unit outcome type shared by pipeline stages.
// Stages report a result per processed unit instead of relying on log text,
// so batch callers and tests can assert on what actually happened.
package stage

import "fmt"

// Outcome classifies how one unit of a batch fared.
type Outcome int

const (
	// OK means the unit was processed and its record(s) updated.
	OK Outcome = iota
	// Skipped means the unit was deliberately left alone (missing evidence,
	// false positive, below-threshold match). Not a fault.
	Skipped
	// Failed means processing the unit errored; the batch continues.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result records the outcome for a single unit.
type Result struct {
	Unit    string
	Outcome Outcome
	Reason  string
	Err     error
}

// OKResult builds a success result.
func OKResult(unit string) Result {
	return Result{Unit: unit, Outcome: OK}
}

// Skip builds a skipped result with its reason.
func Skip(unit, reason string) Result {
	return Result{Unit: unit, Outcome: Skipped, Reason: reason}
}

// Fail builds a failed result wrapping the error.
func Fail(unit string, err error) Result {
	return Result{Unit: unit, Outcome: Failed, Reason: err.Error(), Err: err}
}

// Summary tallies results by outcome.
type Summary struct {
	OK      int
	Skipped int
	Failed  int
}

// Summarize counts outcomes across a result set.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Outcome {
		case OK:
			s.OK++
		case Skipped:
			s.Skipped++
		case Failed:
			s.Failed++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d ok, %d skipped, %d failed", s.OK, s.Skipped, s.Failed)
}
