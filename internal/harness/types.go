package harness

import (
	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/graph"
	"github.com/roach88/tracegraph/internal/store"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Snapshot is the deterministic view of the built graph used for
	// assertions and golden comparison.
	Snapshot *Snapshot `json:"snapshot"`

	// Errors contains one message per failed assertion.
	Errors []string `json:"errors,omitempty"`

	// Capture is the stored capture the graph was built from.
	Capture store.Capture `json:"capture"`

	// Diagnostics are the build diagnostics as read back from the store.
	Diagnostics builder.Diagnostics `json:"diagnostics"`

	Graph *graph.Graph `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
