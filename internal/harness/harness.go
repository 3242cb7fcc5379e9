package harness

import (
	"context"
	"fmt"
	"time"

	"chronicle/internal/fact"
	"chronicle/internal/ledger"
	"chronicle/internal/store"
	"chronicle/internal/testutil"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// Facts are the appended facts in sequence order, kept for golden
	// comparison and assertion diagnostics.
	Facts []*fact.BitemporalFact `json:"facts"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Facts: []*fact.BitemporalFact{}, Errors: []string{}}
}

// AddError records an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario against a fresh in-memory ledger and returns
// the result.
//
// Determinism: fact IDs come from a sequential generator and transaction
// times from a stepping clock anchored at testutil.T, so the same scenario
// always produces byte-identical export output.
func Run(scenario *Scenario) (*Result, error) {
	l, err := openScenarioLedger()
	if err != nil {
		return nil, err
	}
	defer l.Close()

	ctx := context.Background()
	result := NewResult()

	if err := appendFacts(ctx, l, scenario.Facts, result); err != nil {
		return nil, err
	}

	for i, assertion := range scenario.Assertions {
		if err := evaluate(ctx, l, assertion); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

// RunTimeline executes a scenario's facts and reconstructs the timeline
// named by its golden spec. Used by golden comparison, exposed for tests
// that want the timeline without asserting.
func RunTimeline(scenario *Scenario) (*ledger.Ledger, func() error, error) {
	l, err := openScenarioLedger()
	if err != nil {
		return nil, nil, err
	}

	ctx := context.Background()
	result := NewResult()
	if err := appendFacts(ctx, l, scenario.Facts, result); err != nil {
		l.Close()
		return nil, nil, err
	}
	return l, l.Close, nil
}

func openScenarioLedger() (*ledger.Ledger, error) {
	storeOpts := []store.Option{
		store.WithIDGenerator(testutil.NewSequentialIDGenerator("fact")),
		store.WithClock(testutil.NewSteppingClock(testutil.T, time.Second).Now),
	}
	l, err := ledger.Open(context.Background(), ":memory:", storeOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory ledger: %w", err)
	}
	return l, nil
}

func appendFacts(ctx context.Context, l *ledger.Ledger, steps []FactStep, result *Result) error {
	for i, step := range steps {
		draft, err := buildDraft(step)
		if err != nil {
			return fmt.Errorf("facts[%d]: %w", i, err)
		}
		f, err := l.Append(ctx, draft)
		if err != nil {
			return fmt.Errorf("facts[%d]: append failed: %w", i, err)
		}
		result.Facts = append(result.Facts, f)
	}
	return nil
}

// buildDraft converts a YAML fact step into a store draft.
func buildDraft(step FactStep) (fact.Draft, error) {
	draft := fact.Draft{
		EntityID:  step.Entity,
		FieldName: step.Field,
		ActorID:   step.Actor,
		Reason:    step.Reason,
		EventType: step.EventType,
	}

	newValue, err := fact.FromAny(step.Value)
	if err != nil {
		return fact.Draft{}, fmt.Errorf("value: %w", err)
	}
	draft.NewValue = newValue

	if step.Old != nil {
		oldValue, err := fact.FromAny(step.Old)
		if err != nil {
			return fact.Draft{}, fmt.Errorf("old: %w", err)
		}
		draft.OldValue = oldValue
	}

	validTime, err := time.Parse(time.RFC3339, step.ValidTime)
	if err != nil {
		return fact.Draft{}, fmt.Errorf("valid_time: %w", err)
	}
	draft.ValidTime = validTime.UTC()

	if step.TxnTime != "" {
		txnTime, err := time.Parse(time.RFC3339, step.TxnTime)
		if err != nil {
			return fact.Draft{}, fmt.Errorf("txn_time: %w", err)
		}
		draft.TransactionTime = txnTime.UTC()
	}
	return draft, nil
}
