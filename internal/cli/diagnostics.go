package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tracegraph/internal/builder"
)

// DiagnosticsReport is the output of the diagnostics command.
type DiagnosticsReport struct {
	Total       int                  `json:"total"`
	Counts      map[builder.Code]int `json:"counts"`
	Diagnostics builder.Diagnostics  `json:"diagnostics"`
}

func (r DiagnosticsReport) String() string {
	var b strings.Builder
	for _, d := range r.Diagnostics {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d diagnostics", r.Total)
	return b.String()
}

// DiagnosticsOptions holds flags for the diagnostics command.
type DiagnosticsOptions struct {
	*RootOptions
	graphSource
	Code   string
	Strict bool
}

// NewDiagnosticsCommand creates the diagnostics command.
func NewDiagnosticsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiagnosticsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diagnostics [files...]",
		Short: "List problems found while building the graph",
		Long: `Build the graph and list every diagnostic: lost events, records referencing
unknown handles, duplicate registrations, incomplete events and failed graph
checks.

Exit codes:
  0 - Listed (or none found)
  1 - Diagnostics found with --strict
  2 - Command error

Examples:
  tracegraph diagnostics trace.jsonl
  tracegraph diagnostics --capture demo --code INCOMPLETE_EVENT
  tracegraph diagnostics --strict trace.jsonl`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnostics(cmd, opts, args)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.Code, "code", "", "only diagnostics with this code")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit 1 when any diagnostic is listed")

	return cmd
}

func runDiagnostics(cmd *cobra.Command, opts *DiagnosticsOptions, args []string) error {
	built, err := opts.build(cmd, opts.RootOptions, args)
	if err != nil {
		return err
	}

	diags := built.Diagnostics
	if opts.Code != "" {
		diags = diags.ByCode(builder.Code(opts.Code))
	}
	if diags == nil {
		diags = builder.Diagnostics{}
	}
	report := DiagnosticsReport{Total: len(diags), Counts: diags.Summary(), Diagnostics: diags}

	if err := opts.formatter(cmd).SuccessFor(built.CaptureID, report); err != nil {
		return err
	}
	if opts.Strict && report.Total > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d diagnostics", report.Total))
	}
	return nil
}
