package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// RebuildOptions holds flags for the rebuild command.
type RebuildOptions struct {
	*RootOptions
	Verify bool
}

// RebuildResult is the rebuild command's output payload.
type RebuildResult struct {
	Facts    int64    `json:"facts"`
	Entities []string `json:"entities"`
	Verified bool     `json:"verified"`
}

// NewRebuildCommand creates the rebuild command.
func NewRebuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RebuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the temporal index from the fact log",
		Long: `Replay the entire fact log in sequence order and rebuild the
in-memory temporal index from scratch. The log is the source of truth;
the index is always derivable from it.

With --verify, also check that sequence numbers strictly increase in
replay order. Gaps are legal, since a failed append can burn a sequence
number, but an inversion or duplicate indicates a corrupt log.

Examples:
  chronicle rebuild
  chronicle rebuild --verify`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebuild(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "verify sequence numbers while replaying")

	return cmd
}

func runRebuild(opts *RebuildOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	l, err := openLedger(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer l.Close()

	// Open already rebuilt once; rebuilding again here proves the replay
	// path works on this database, which is what the operator asked for.
	if err := l.RebuildIndex(ctx); err != nil {
		return WrapExitError(ExitFailure, "index rebuild failed", err)
	}

	if opts.Verify {
		if _, err := l.Store().VerifySequence(ctx); err != nil {
			return WrapExitError(ExitFailure, "sequence verification failed", err)
		}
	}

	count, err := l.Store().Count(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "count failed", err)
	}
	entities, err := l.Entities(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "entity listing failed", err)
	}

	formatter := opts.formatter(cmd)
	result := RebuildResult{Facts: count, Entities: entities, Verified: opts.Verify}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	msg := fmt.Sprintf("rebuilt index: %d facts, %d entities", result.Facts, len(result.Entities))
	if opts.Verify {
		msg += " (sequence verified)"
	}
	return formatter.Success(msg)
}
