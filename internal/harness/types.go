package harness

import (
	"github.com/porras/fake-sonic-pi/internal/engine"
	"github.com/porras/fake-sonic-pi/internal/ir"
	"github.com/porras/fake-sonic-pi/internal/signals"
	"github.com/porras/fake-sonic-pi/internal/trace"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the run outcome and every assertion match.
	Pass bool `json:"pass"`

	// RunID is the run's identifier.
	RunID string `json:"run_id"`

	// FinalBeat is the beat the run ended on.
	FinalBeat ir.Beat `json:"final_beat"`

	// Output contains every recorded command in order.
	Output []trace.Event `json:"output"`

	// Signals is the final signal store, in insertion order.
	Signals []signals.Record `json:"signals"`

	// Stats are the engine counters for the run.
	Stats engine.Stats `json:"stats"`

	// RunError is the error code the run failed with, "" on success.
	// RunErrorMessage is the full message.
	RunError        string `json:"run_error,omitempty"`
	RunErrorMessage string `json:"run_error_message,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Output: []trace.Event{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
