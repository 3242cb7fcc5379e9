package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chronicle/internal/timeline"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Dir  string
	Name string
}

// QueryRunResult is one executed query's output payload.
type QueryRunResult struct {
	Name   string          `json:"name"`
	Result TimelineSummary `json:"result"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run timeline queries declared in CUE files",
		Long: `Run the named timeline queries declared under the "query" field of
the CUE files in a directory. Each query reconstructs one entity's
timeline; queries with an export format print the raw export document,
the rest print a summary.

A query file looks like:

  query: balances: {
      entity:    "acct-1"
      fields:    ["amount"]
      dimension: "valid"
      start:     "2024-01-01T00:00:00Z"
      export:    "json"
  }

Examples:
  chronicle query --dir ./queries
  chronicle query --dir ./queries --name balances`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "directory of .cue query files (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "run only the named query")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	defs, err := LoadQueries(opts.Dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load queries", err)
	}
	if opts.Name != "" {
		defs = selectQuery(defs, opts.Name)
		if len(defs) == 0 {
			return NewExitError(ExitFailure, fmt.Sprintf("no query named %q in %s", opts.Name, opts.Dir))
		}
	}

	l, err := openLedger(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer l.Close()

	out := cmd.OutOrStdout()
	formatter := opts.formatter(cmd)

	var results []QueryRunResult
	for _, def := range defs {
		filters, err := def.Filters()
		if err != nil {
			return WrapExitError(ExitFailure, "invalid query", err)
		}

		tl, err := l.ReconstructTimeline(ctx, filters)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("query %s failed", def.Name), err)
		}

		if def.Export != "" {
			data, err := timeline.Export(tl, def.Export)
			if err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("query %s export failed", def.Name), err)
			}
			if _, err := out.Write(data); err != nil {
				return err
			}
			continue
		}
		results = append(results, QueryRunResult{Name: def.Name, Result: timelineSummary(tl)})
	}

	if len(results) == 0 {
		return nil
	}
	if opts.Format == "json" {
		return formatter.Success(results)
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s: %s: %d events (%d retroactive), %d snapshots, truncated=%v complete=%v\n",
			r.Name, r.Result.EntityID, r.Result.TotalEvents, r.Result.RetroactiveCount,
			r.Result.Snapshots, r.Result.Truncated, r.Result.Complete)
	}
	return formatter.Success(strings.TrimRight(b.String(), "\n"))
}

func selectQuery(defs []QueryDef, name string) []QueryDef {
	for _, def := range defs {
		if def.Name == name {
			return []QueryDef{def}
		}
	}
	return nil
}
