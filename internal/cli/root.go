package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/tracegraph/internal/config"
	"github.com/roach88/tracegraph/internal/record"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string

	config *config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tracegraph CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "tracegraph",
		Short:   "tracegraph - causal graphs from ROS 2 traces",
		Version: fmt.Sprintf("%s (record format %s)", record.AnalyzerVersion, record.FormatVersion),
		Long: `Reconstruct the computation graph of a traced ROS 2 system and the
causal links between callbacks, publications and takes, then measure
end-to-end latency along those links.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "tracegraph.db", "path to SQLite capture store")

	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewCapturesCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewLatencyCommand(opts))
	cmd.AddCommand(NewDiagnosticsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup validates global flags, loads the configuration and installs the
// process logger. Logs go to the command's error stream so JSON output on
// stdout stays parseable.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}

	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	level := cfg.LogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.logger)
	o.config = &cfg
	return nil
}

// Config returns the loaded configuration, or the defaults before setup.
func (o *RootOptions) Config() config.Config {
	if o.config == nil {
		return config.Default()
	}
	return *o.config
}

// Logger returns the command logger, or slog.Default() before setup.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// fail reports a command error. JSON output gets an error envelope on
// stdout; the returned ExitError carries the message for stderr.
func (o *RootOptions) fail(cmd *cobra.Command, code, message string, err error) error {
	if o.Format == "json" {
		var details any
		if err != nil {
			details = err.Error()
		}
		_ = o.formatter(cmd).Error(code, message, details)
	}
	return WrapExitError(ExitCommandError, message, err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
