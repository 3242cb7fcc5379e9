package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chronicle/internal/config"
	"chronicle/internal/ledger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string

	cfg config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the chronicle CLI.
// Environment config (CHRONICLE_*) provides flag defaults; flags win.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cfg, err := config.Load()
	if err != nil {
		// Surfaced on first run; a broken environment should not panic
		// before cobra can print anything.
		cfg = config.Config{DBPath: "chronicle.db"}
	}
	opts.cfg = cfg

	cmd := &cobra.Command{
		Use:   "chronicle",
		Short: "Chronicle - bitemporal provenance ledger",
		Long:  "An append-only bitemporal fact log with point-in-time snapshots,\nretroactive-correction tracking, and timeline reconstruction.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", cfg.DBPath, "path to the fact log database")

	// Add subcommands
	cmd.AddCommand(NewAppendCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewTimelineCommand(opts))
	cmd.AddCommand(NewInterpolateCommand(opts))
	cmd.AddCommand(NewRebuildCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openLedger opens the fact log with the configured defaults and a logger
// matching the verbosity flags.
func openLedger(ctx context.Context, opts *RootOptions) (*ledger.Ledger, error) {
	log, err := buildLogger(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build logger", err)
	}

	l, err := ledger.Open(ctx, opts.Database, nil,
		ledger.WithLogger(log),
		ledger.WithMaxSnapshots(opts.cfg.MaxSnapshots),
		ledger.WithMaxEvents(opts.cfg.MaxEvents),
		ledger.WithQueryDeadline(opts.cfg.QueryDeadline),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	return l, nil
}

// buildLogger constructs a zap logger honoring --verbose and the configured
// level. Diagnostics always go to stderr so JSON output stays parseable.
func buildLogger(opts *RootOptions) (*zap.Logger, error) {
	level := zap.InfoLevel
	if err := level.Set(opts.cfg.LogLevel); err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = zap.DebugLevel
	} else if level < zap.WarnLevel {
		// Quiet by default: command output is the interface, not logs.
		level = zap.WarnLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}
