package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chronicle/internal/fact"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Entity string
}

// HistoryEntry is one fact in the history output.
type HistoryEntry struct {
	Seq             int64  `json:"seq"`
	ID              string `json:"id"`
	FieldName       string `json:"field_name"`
	EventType       string `json:"event_type,omitempty"`
	TransactionTime string `json:"transaction_time"`
	ValidTime       string `json:"valid_time"`
	NewValue        string `json:"new_value"`
	ActorID         string `json:"actor_id,omitempty"`
	Retroactive     bool   `json:"retroactive"`
}

// HistoryResult holds the history command output.
type HistoryResult struct {
	EntityID string         `json:"entity_id"`
	Facts    []HistoryEntry `json:"facts"`
	Total    int            `json:"total"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show every fact recorded about an entity",
		Long: `List an entity's facts ordered by (transaction_time, seq).

An entity with no facts prints an empty history - unknown entities are not
an error.

Examples:
  chronicle history --entity acct-1
  chronicle history --entity acct-1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity ID (required)")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	l, err := openLedger(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer l.Close()

	facts, err := l.GetHistory(ctx, opts.Entity)
	if err != nil {
		return WrapExitError(ExitFailure, "history failed", err)
	}

	result := HistoryResult{
		EntityID: opts.Entity,
		Facts:    make([]HistoryEntry, 0, len(facts)),
		Total:    len(facts),
	}
	for _, f := range facts {
		result.Facts = append(result.Facts, HistoryEntry{
			Seq:             f.Seq,
			ID:              f.ID,
			FieldName:       f.FieldName,
			EventType:       f.EventType,
			TransactionTime: f.TransactionTime.Format(time.RFC3339Nano),
			ValidTime:       f.ValidTime.Format(time.RFC3339Nano),
			NewValue:        fact.Display(f.NewValue),
			ActorID:         f.ActorID,
			Retroactive:     fact.IsRetroactive(f),
		})
	}

	formatter := opts.formatter(cmd)
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(formatHistoryText(result))
}

func formatHistoryText(result HistoryResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "History for %s (%d facts)\n", result.EntityID, result.Total)
	for _, e := range result.Facts {
		marker := " "
		if e.Retroactive {
			marker = "R"
		}
		fmt.Fprintf(&b, "%6d %s  %-20s = %-20s  txn=%s valid=%s\n",
			e.Seq, marker, e.FieldName, e.NewValue, e.TransactionTime, e.ValidTime)
	}
	return strings.TrimRight(b.String(), "\n")
}
