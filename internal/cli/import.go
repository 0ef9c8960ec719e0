package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Name string
}

// ImportResult describes one import.
type ImportResult struct {
	Capture     store.Capture `json:"capture"`
	Inserted    bool          `json:"inserted"`
	Diagnostics int           `json:"diagnostics"`
}

func (r ImportResult) String() string {
	if !r.Inserted {
		return fmt.Sprintf("capture %s (%s) already imported", r.Capture.ID, r.Capture.Name)
	}
	return fmt.Sprintf("imported capture %s (%s): %d records, %d discarded, %d diagnostics",
		r.Capture.ID, r.Capture.Name, r.Capture.Records, r.Capture.Discarded, r.Diagnostics)
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <files...>",
		Short: "Store trace records as a capture",
		Long: `Load trace record files (JSON lines or YAML), store them as one capture in
the SQLite database and persist the diagnostics of building its graph.

Importing the same record set twice returns the existing capture.

Examples:
  tracegraph import trace.jsonl
  tracegraph import --name demo part1.jsonl part2.jsonl
  tracegraph import --db captures.db trace.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "capture name (default: first file name without extension)")

	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions, paths []string) error {
	ctx := cmd.Context()
	logger := opts.Logger()

	c, err := loadRecords(cmd, opts.RootOptions, paths)
	if err != nil {
		return err
	}

	formatter := opts.formatter(cmd)
	formatter.VerboseLog("loaded %d records from %d files", c.Len(), len(paths))

	name := opts.Name
	if name == "" {
		base := filepath.Base(paths[0])
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	st, err := openStore(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	capture, inserted, err := st.ImportCapture(ctx, name, paths, c)
	if err != nil {
		return opts.fail(cmd, ErrCodeStoreFailed, "failed to import capture", err)
	}

	result := ImportResult{Capture: capture, Inserted: inserted}
	if inserted {
		_, diags := builder.Build(c, opts.Config().BuildOptions(logger))
		if err := st.WriteDiagnostics(ctx, capture.ID, diags); err != nil {
			return opts.fail(cmd, ErrCodeStoreFailed, "failed to store diagnostics", err)
		}
		result.Diagnostics = len(diags)
		logger.Info("imported capture", "id", capture.ID, "records", capture.Records, "diagnostics", len(diags))
	} else {
		counts, err := st.CountDiagnostics(ctx, capture.ID)
		if err != nil {
			return opts.fail(cmd, ErrCodeStoreFailed, "failed to count diagnostics", err)
		}
		result.Diagnostics = total(counts)
		logger.Info("capture already imported", "id", capture.ID)
	}

	return formatter.SuccessFor(capture.ID, result)
}

func total(counts map[builder.Code]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
