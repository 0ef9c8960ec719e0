package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/graph"
	"github.com/roach88/tracegraph/internal/record"
	"github.com/roach88/tracegraph/internal/store"
)

// graphSource selects what an analysis command builds its graph from:
// record files given as arguments, or a capture already in the store.
type graphSource struct {
	Capture string
}

func (s *graphSource) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.Capture, "capture", "", "stored capture id or name (instead of record files)")
}

// builtGraph is a graph together with where it came from.
type builtGraph struct {
	Graph       *graph.Graph
	Diagnostics builder.Diagnostics
	CaptureID   string
}

// build loads the records and runs the builder with the configured passes.
// Builds from a stored capture refresh its stored diagnostics.
func (s *graphSource) build(cmd *cobra.Command, opts *RootOptions, args []string) (*builtGraph, error) {
	switch {
	case s.Capture == "" && len(args) == 0:
		return nil, opts.fail(cmd, ErrCodeInvalidInput, "record files or --capture required", nil)
	case s.Capture != "" && len(args) > 0:
		return nil, opts.fail(cmd, ErrCodeInvalidInput, "give record files or --capture, not both", nil)
	}

	cfg := opts.Config()
	logger := opts.Logger()

	if s.Capture == "" {
		c, err := loadRecords(cmd, opts, args)
		if err != nil {
			return nil, err
		}
		g, diags := builder.Build(c, cfg.BuildOptions(logger))
		return &builtGraph{Graph: g, Diagnostics: diags}, nil
	}

	st, err := openStore(cmd, opts)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	capture, err := findCapture(cmd, opts, st, s.Capture)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	c, err := st.LoadCapture(ctx, capture.ID)
	if err != nil {
		return nil, opts.fail(cmd, ErrCodeStoreFailed, "failed to load capture", err)
	}
	g, diags := builder.Build(c, cfg.BuildOptions(logger))
	if err := st.WriteDiagnostics(ctx, capture.ID, diags); err != nil {
		return nil, opts.fail(cmd, ErrCodeStoreFailed, "failed to store diagnostics", err)
	}
	return &builtGraph{Graph: g, Diagnostics: diags, CaptureID: capture.ID}, nil
}

// loadRecords reads record files. Records failing validation are dropped
// and logged; read errors are fatal.
func loadRecords(cmd *cobra.Command, opts *RootOptions, paths []string) (*record.Collection, error) {
	logger := opts.Logger()
	c, err := record.LoadFiles(cmd.Context(), paths, opts.Config().LoadOptions(logger))
	if c == nil {
		return nil, opts.fail(cmd, ErrCodeLoadFailed, "failed to load records", err)
	}
	for _, verr := range multierr.Errors(err) {
		logger.Debug("invalid record", "error", verr)
	}
	logger.Info("loaded records", "files", len(paths), "records", c.Len(), "discarded", c.Discarded)
	return c, nil
}

func openStore(cmd *cobra.Command, opts *RootOptions) (*store.Store, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, opts.fail(cmd, ErrCodeStoreFailed, "failed to open database", err)
	}
	return st, nil
}

func findCapture(cmd *cobra.Command, opts *RootOptions, st *store.Store, ref string) (store.Capture, error) {
	capture, err := st.FindCapture(cmd.Context(), ref)
	if errors.Is(err, store.ErrNotFound) {
		return store.Capture{}, opts.fail(cmd, ErrCodeNotFound, fmt.Sprintf("capture %q not found", ref), err)
	}
	if err != nil {
		return store.Capture{}, opts.fail(cmd, ErrCodeStoreFailed, "failed to find capture", err)
	}
	return capture, nil
}
