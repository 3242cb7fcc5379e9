package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"chronicle/internal/fact"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions
	Entity    string
	Field     string
	Value     string // JSON
	OldValue  string // JSON, optional
	ValidTime string
	TxnTime   string
	Actor     string
	Reason    string
	EventType string
}

// AppendResult is the append command's output payload.
type AppendResult struct {
	Seq             int64  `json:"seq"`
	ID              string `json:"id"`
	EntityID        string `json:"entity_id"`
	FieldName       string `json:"field_name"`
	TransactionTime string `json:"transaction_time"`
	ValidTime       string `json:"valid_time"`
	Retroactive     bool   `json:"retroactive"`
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append a fact to the ledger",
		Long: `Append one bitemporal fact. Values are JSON: numbers stay exact
decimals, objects become structured values.

The valid time may predate the transaction time - that makes the fact a
retroactive correction, which is legal and tracked, never rejected.

Examples:
  chronicle append --entity acct-1 --field amount --value 47.00 \
      --valid-time 2024-01-15T00:00:00Z --actor auditor-3 --reason "invoice restated"
  chronicle append --entity acct-1 --field status --value '"closed"' \
      --valid-time 2024-02-01T00:00:00Z`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity ID (required)")
	cmd.Flags().StringVar(&opts.Field, "field", "", "field name (required)")
	cmd.Flags().StringVar(&opts.Value, "value", "", "new value as JSON (required)")
	cmd.Flags().StringVar(&opts.OldValue, "old", "", "previously believed value as JSON")
	cmd.Flags().StringVar(&opts.ValidTime, "valid-time", "", "when the value became true, RFC 3339 (required)")
	cmd.Flags().StringVar(&opts.TxnTime, "txn-time", "", "recording time override, RFC 3339 (defaults to now)")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "actor recording the fact")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "why the fact was recorded")
	cmd.Flags().StringVar(&opts.EventType, "type", "", "event type label")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("value")
	_ = cmd.MarkFlagRequired("valid-time")

	return cmd
}

func runAppend(opts *AppendOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	draft := fact.Draft{
		EntityID:  opts.Entity,
		FieldName: opts.Field,
		ActorID:   opts.Actor,
		Reason:    opts.Reason,
		EventType: opts.EventType,
	}

	newValue, err := fact.ParseJSONValue([]byte(opts.Value))
	if err != nil {
		return WrapExitError(ExitFailure, "invalid --value", err)
	}
	draft.NewValue = newValue

	if opts.OldValue != "" {
		oldValue, err := fact.ParseJSONValue([]byte(opts.OldValue))
		if err != nil {
			return WrapExitError(ExitFailure, "invalid --old", err)
		}
		draft.OldValue = oldValue
	}

	draft.ValidTime, err = parseTimeFlag(opts.ValidTime, "--valid-time")
	if err != nil {
		return err
	}
	if opts.TxnTime != "" {
		draft.TransactionTime, err = parseTimeFlag(opts.TxnTime, "--txn-time")
		if err != nil {
			return err
		}
	}

	l, err := openLedger(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer l.Close()

	f, err := l.Append(ctx, draft)
	if err != nil {
		return WrapExitError(ExitFailure, "append failed", err)
	}

	formatter := opts.formatter(cmd)
	return formatter.Success(AppendResult{
		Seq:             f.Seq,
		ID:              f.ID,
		EntityID:        f.EntityID,
		FieldName:       f.FieldName,
		TransactionTime: f.TransactionTime.Format(time.RFC3339Nano),
		ValidTime:       f.ValidTime.Format(time.RFC3339Nano),
		Retroactive:     fact.IsRetroactive(f),
	})
}

// parseTimeFlag parses an RFC 3339 flag value with a flag-level message.
func parseTimeFlag(value, flag string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, WrapExitError(ExitFailure, "invalid "+flag+" (want RFC 3339, e.g. 2024-01-15T00:00:00Z)", err)
	}
	return t.UTC(), nil
}
