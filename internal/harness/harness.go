package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/store"
	"github.com/roach88/tracegraph/internal/testutil"
)

// Harness runs scenarios against a private store.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a fixed capture id.
// The capture goes through the same path the CLI uses:
// 1. Import the records into the store
// 2. Load them back and build the graph
// 3. Persist the diagnostics and read them back
// 4. Evaluate the assertions against the snapshot
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.captureID())))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	c, err := scenario.Collection()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	capture, _, err := h.store.ImportCapture(ctx, scenario.Name, []string{"scenario:" + scenario.Name}, c)
	if err != nil {
		return nil, fmt.Errorf("import capture: %w", err)
	}
	loaded, err := h.store.LoadCapture(ctx, capture.ID)
	if err != nil {
		return nil, fmt.Errorf("load capture: %w", err)
	}

	opts := builder.DefaultOptions()
	opts.Logger = h.logger
	scenario.Passes.apply(&opts)
	g, diags := builder.Build(loaded, opts)

	if err := h.store.WriteDiagnostics(ctx, capture.ID, diags); err != nil {
		return nil, fmt.Errorf("write diagnostics: %w", err)
	}
	stored, err := h.store.ReadDiagnostics(ctx, capture.ID)
	if err != nil {
		return nil, fmt.Errorf("read diagnostics: %w", err)
	}

	result := NewResult()
	result.Capture = capture
	result.Graph = g
	result.Diagnostics = stored
	result.Snapshot = Summarize(scenario.Name, capture.ID, g, stored)

	for i, a := range scenario.Assertions {
		err := h.evaluate(ctx, result, a)
		if err == nil {
			continue
		}
		var ae *AssertionError
		if !errors.As(err, &ae) {
			return nil, fmt.Errorf("assertions[%d]: %w", i, err)
		}
		result.AddError(fmt.Sprintf("assertions[%d]: %s", i, ae.Error()))
	}
	return result, nil
}
