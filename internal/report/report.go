// Package report collects per-expectation verdicts for one suite run and
// renders them for operators and machines.
package report

import (
	"time"

	"github.com/google/uuid"
)

// Verdict is the outcome of one expectation.
type Verdict string

const (
	Pass Verdict = "pass"
	Fail Verdict = "fail"
)

// Process exit statuses.
const (
	ExitOK          = 0
	ExitFailures    = 1
	ExitConfigError = 2
)

// Result is the verdict for one expectation. Results are append-only.
type Result struct {
	Index       int           `json:"index"`
	Description string        `json:"description"`
	Probe       string        `json:"probe,omitempty"`
	Field       string        `json:"field,omitempty"`
	Matcher     string        `json:"matcher,omitempty"`
	Verdict     Verdict       `json:"verdict"`
	Diagnostic  string        `json:"diagnostic"`
	Detail      string        `json:"detail,omitempty"`
	Duration    time.Duration `json:"-"`
}

// RunReport holds every result of one suite run in execution order.
type RunReport struct {
	RunID      string
	SuiteName  string
	TargetHost string
	StartedAt  time.Time
	Duration   time.Duration
	Results    []Result
}

// New starts a report for suite with a fresh run ID.
func New(suite, targetHost string) *RunReport {
	return &RunReport{
		RunID:      uuid.NewString(),
		SuiteName:  suite,
		TargetHost: targetHost,
		StartedAt:  time.Now(),
	}
}

// Append records res, assigning its index.
func (r *RunReport) Append(res Result) {
	res.Index = len(r.Results)
	r.Results = append(r.Results, res)
}

// Finish stamps the total duration.
func (r *RunReport) Finish() {
	r.Duration = time.Since(r.StartedAt)
}

// Passed counts passing results.
func (r *RunReport) Passed() int {
	return r.count(Pass)
}

// Failed counts failing results.
func (r *RunReport) Failed() int {
	return r.count(Fail)
}

func (r *RunReport) count(v Verdict) int {
	n := 0
	for _, res := range r.Results {
		if res.Verdict == v {
			n++
		}
	}
	return n
}

// ExitCode is ExitFailures when any report holds a failing result, ExitOK otherwise.
func ExitCode(reports ...*RunReport) int {
	for _, r := range reports {
		if r != nil && r.Failed() > 0 {
			return ExitFailures
		}
	}
	return ExitOK
}
