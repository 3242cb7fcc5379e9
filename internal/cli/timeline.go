package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chronicle/internal/fact"
	"chronicle/internal/timeline"
)

// TimelineOptions holds flags for the timeline command.
type TimelineOptions struct {
	*RootOptions
	Entity           string
	Fields           []string
	Dimension        string
	Start            string
	End              string
	SnapshotInterval time.Duration
	MaxEvents        int
	Export           string // "", "json", "csv"
	Visualize        bool
}

// NewTimelineCommand creates the timeline command.
func NewTimelineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TimelineOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Reconstruct an entity's event timeline",
		Long: `Reconstruct the ordered timeline of an entity's facts, classify
retroactive corrections, and optionally derive interval snapshots, an
export document, or a visualization projection.

Truncated or partial results are always labeled, never silent.

Examples:
  chronicle timeline --entity acct-1
  chronicle timeline --entity acct-1 --field amount --start 2024-01-01T00:00:00Z
  chronicle timeline --entity acct-1 --snapshot-interval 24h --export json
  chronicle timeline --entity acct-1 --visualize
  chronicle timeline --entity acct-1 --export csv > acct-1.csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimeline(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity ID (required)")
	cmd.Flags().StringSliceVar(&opts.Fields, "field", nil, "restrict to field (repeatable)")
	cmd.Flags().StringVar(&opts.Dimension, "dimension", "transaction", "time dimension for bounds and snapshots (transaction|valid)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "window start, RFC 3339")
	cmd.Flags().StringVar(&opts.End, "end", "", "window end, RFC 3339")
	cmd.Flags().DurationVar(&opts.SnapshotInterval, "snapshot-interval", 0, "generate snapshots at this spacing (e.g. 24h)")
	cmd.Flags().IntVar(&opts.MaxEvents, "max-events", 0, "cap events (0 = config default)")
	cmd.Flags().StringVar(&opts.Export, "export", "", "emit raw export instead of a summary (json|csv)")
	cmd.Flags().BoolVar(&opts.Visualize, "visualize", false, "emit the visualization projection")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runTimeline(opts *TimelineOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	filters, err := buildFilters(opts)
	if err != nil {
		return err
	}

	l, err := openLedger(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer l.Close()

	tl, err := l.ReconstructTimeline(ctx, filters)
	if err != nil {
		if fact.IsValidation(err) {
			return WrapExitError(ExitFailure, "invalid filters", err)
		}
		return WrapExitError(ExitFailure, "timeline reconstruction failed", err)
	}

	out := cmd.OutOrStdout()

	if opts.Visualize {
		proj := l.BuildVisualization(tl, timeline.VisualizationOptions{})
		data, err := timeline.ExportProjection(proj)
		if err != nil {
			return WrapExitError(ExitFailure, "projection export failed", err)
		}
		_, err = out.Write(data)
		return err
	}

	if opts.Export != "" {
		data, err := l.Export(tl, opts.Export)
		if err != nil {
			return WrapExitError(ExitFailure, "export failed", err)
		}
		_, err = out.Write(data)
		return err
	}

	formatter := opts.formatter(cmd)
	summary := timelineSummary(tl)
	if opts.Format == "json" {
		return formatter.Success(summary)
	}
	return formatter.Success(fmt.Sprintf(
		"%s: %d events (%d retroactive), %d snapshots, truncated=%v complete=%v",
		summary.EntityID, summary.TotalEvents, summary.RetroactiveCount,
		summary.Snapshots, summary.Truncated, summary.Complete,
	))
}

// TimelineSummary is the non-export output payload.
type TimelineSummary struct {
	EntityID         string   `json:"entity_id"`
	FieldNames       []string `json:"field_names"`
	TotalEvents      int      `json:"total_events"`
	RetroactiveCount int      `json:"retroactive_count"`
	Snapshots        int      `json:"snapshots"`
	Truncated        bool     `json:"truncated"`
	Complete         bool     `json:"complete"`
}

func timelineSummary(tl *timeline.Timeline) TimelineSummary {
	return TimelineSummary{
		EntityID:         tl.EntityID,
		FieldNames:       tl.FieldNames,
		TotalEvents:      tl.TotalEvents,
		RetroactiveCount: tl.RetroactiveCount,
		Snapshots:        len(tl.Snapshots),
		Truncated:        tl.Truncated,
		Complete:         tl.Complete,
	}
}

func buildFilters(opts *TimelineOptions) (timeline.Filters, error) {
	filters := timeline.Filters{
		EntityID:         opts.Entity,
		Fields:           opts.Fields,
		SnapshotInterval: opts.SnapshotInterval,
		MaxEvents:        opts.MaxEvents,
	}

	dim, err := fact.ParseDimension(opts.Dimension)
	if err != nil {
		return timeline.Filters{}, WrapExitError(ExitFailure, "invalid --dimension", err)
	}
	filters.Dimension = dim

	if opts.Start != "" {
		t, err := parseTimeFlag(opts.Start, "--start")
		if err != nil {
			return timeline.Filters{}, err
		}
		filters.Start = &t
	}
	if opts.End != "" {
		t, err := parseTimeFlag(opts.End, "--end")
		if err != nil {
			return timeline.Filters{}, err
		}
		filters.End = &t
	}
	return filters, nil
}
