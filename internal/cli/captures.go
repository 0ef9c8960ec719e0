package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tracegraph/internal/store"
)

// CaptureInfo is a stored capture with its diagnostic count.
type CaptureInfo struct {
	store.Capture
	Diagnostics int `json:"diagnostics"`
}

// CaptureList is the output of the captures command.
type CaptureList struct {
	Captures []CaptureInfo `json:"captures"`
}

func (l CaptureList) String() string {
	if len(l.Captures) == 0 {
		return "no captures"
	}
	var b strings.Builder
	for i, c := range l.Captures {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d  %s  %s  records=%d discarded=%d diagnostics=%d",
			c.Seq, c.ID, c.Name, c.Records, c.Discarded, c.Diagnostics)
	}
	return b.String()
}

// NewCapturesCommand creates the captures command and its delete subcommand.
func NewCapturesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "captures",
		Short: "List stored captures",
		Long: `List the captures in the SQLite database in import order.

Examples:
  tracegraph captures
  tracegraph captures --db captures.db --format json
  tracegraph captures delete demo`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCaptures(cmd, rootOpts)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "delete <capture>",
		Short:         "Delete a stored capture with its records and diagnostics",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeleteCapture(cmd, rootOpts, args[0])
		},
	})

	return cmd
}

func runCaptures(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	st, err := openStore(cmd, opts)
	if err != nil {
		return err
	}
	defer st.Close()

	captures, err := st.ListCaptures(ctx)
	if err != nil {
		return opts.fail(cmd, ErrCodeStoreFailed, "failed to list captures", err)
	}

	list := CaptureList{Captures: make([]CaptureInfo, 0, len(captures))}
	for _, c := range captures {
		counts, err := st.CountDiagnostics(ctx, c.ID)
		if err != nil {
			return opts.fail(cmd, ErrCodeStoreFailed, "failed to count diagnostics", err)
		}
		list.Captures = append(list.Captures, CaptureInfo{Capture: c, Diagnostics: total(counts)})
	}
	return opts.formatter(cmd).Success(list)
}

// DeleteResult is the output of captures delete.
type DeleteResult struct {
	Deleted string `json:"deleted"`
}

func (r DeleteResult) String() string { return "deleted capture " + r.Deleted }

func runDeleteCapture(cmd *cobra.Command, opts *RootOptions, ref string) error {
	ctx := cmd.Context()
	st, err := openStore(cmd, opts)
	if err != nil {
		return err
	}
	defer st.Close()

	capture, err := findCapture(cmd, opts, st, ref)
	if err != nil {
		return err
	}
	if err := st.DeleteCapture(ctx, capture.ID); err != nil {
		return opts.fail(cmd, ErrCodeStoreFailed, "failed to delete capture", err)
	}
	opts.Logger().Info("deleted capture", "id", capture.ID)
	return opts.formatter(cmd).Success(DeleteResult{Deleted: capture.ID})
}
