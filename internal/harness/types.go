package harness

import (
	"fmt"
	"strings"
)

// PassTrace is what one sync pass did.
type PassTrace struct {
	// Number is the engine's pass number.
	Number int64 `json:"number"`

	// Calls are the client calls in order, rendered by testutil.Call.String.
	Calls []string `json:"calls"`

	// Report is the engine report summary line.
	Report string `json:"report"`

	// Failures are the rendered per-item failures; Codes their codes.
	Failures []string `json:"failures,omitempty"`
	Codes    []string `json:"codes,omitempty"`

	// Records renders the local store after the pass, one line per record.
	Records []string `json:"records"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Pass indicates overall test success.
	// True if every assertion held.
	Pass bool `json:"pass"`

	// Passes holds one entry per sync pass, in order.
	Passes []PassTrace `json:"passes"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Passes:   []PassTrace{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Calls returns every call over all passes.
func (r *Result) Calls() []string {
	var out []string
	for _, p := range r.Passes {
		out = append(out, p.Calls...)
	}
	return out
}

// Trace renders the result for golden comparison:
//
//	scenario: name
//	pass 1
//	  delete_photo day=1 slot=front
//	  report: pass 1 photos deleted=1
//	  records: 1
//	    day=1 synced=true ...
func (r *Result) Trace() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", r.Scenario)
	for _, p := range r.Passes {
		fmt.Fprintf(&b, "pass %d\n", p.Number)
		for _, c := range p.Calls {
			fmt.Fprintf(&b, "  %s\n", c)
		}
		fmt.Fprintf(&b, "  report: %s\n", p.Report)
		for _, f := range p.Failures {
			fmt.Fprintf(&b, "  failure: %s\n", f)
		}
		fmt.Fprintf(&b, "  records: %d\n", len(p.Records))
		for _, rec := range p.Records {
			fmt.Fprintf(&b, "    %s\n", rec)
		}
	}
	return []byte(b.String())
}
