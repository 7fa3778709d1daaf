package fleet

import (
	"fmt"
	"io"
	"time"

	"github.com/fleetrun/fleetrun/hostlist"
)

// HostResult is one host's terminal outcome plus captured remote output.
// Output is kept even on failure; it is often the only diagnostic available.
type HostResult struct {
	Host     hostlist.Host
	Outcome  Outcome
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Summary holds the derived counts of a finished run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// Report records one result per host in processing order. Entries are never
// mutated after Add.
type Report struct {
	runID   string
	entries []HostResult
}

// NewReport creates an empty report for the given run.
func NewReport(runID string) *Report {
	return &Report{runID: runID}
}

// RunID returns the run identifier.
func (r *Report) RunID() string {
	return r.runID
}

// Add appends a result. Order of calls defines report order.
func (r *Report) Add(res HostResult) {
	r.entries = append(r.entries, res)
}

// Entries returns a copy of the recorded results in order.
func (r *Report) Entries() []HostResult {
	out := make([]HostResult, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of recorded results.
func (r *Report) Len() int {
	return len(r.entries)
}

// Summary derives the aggregate counts.
func (r *Report) Summary() Summary {
	s := Summary{Total: len(r.entries)}
	for _, e := range r.entries {
		if e.Outcome.OK() {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// Failed reports whether any host did not succeed.
func (r *Report) Failed() bool {
	for _, e := range r.entries {
		if !e.Outcome.OK() {
			return true
		}
	}
	return false
}

// Render writes the per-host status lines and the summary line, in the same
// order the hosts were processed.
func (r *Report) Render(w io.Writer) {
	for _, e := range r.entries {
		fmt.Fprintf(w, "%s: %s\n", e.Host.Target(), e.Outcome)
	}
	s := r.Summary()
	fmt.Fprintf(w, "%d hosts: %d succeeded, %d failed\n", s.Total, s.Succeeded, s.Failed)
}
