package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chronicle/internal/fact"
	"chronicle/internal/ledger"
)

// AssertionError is returned when an assertion fails.
// It includes expected and actual outcomes to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s", e.Actual)
	return buf.String()
}

// evaluate runs one assertion against the populated ledger.
func evaluate(ctx context.Context, l *ledger.Ledger, a Assertion) error {
	switch a.Type {
	case AssertSnapshotField:
		return assertSnapshotField(ctx, l, a)
	case AssertHistoryCount:
		return assertHistoryCount(ctx, l, a)
	case AssertRetroactiveCount:
		return assertRetroactiveCount(ctx, l, a)
	case AssertInterpolate:
		return assertInterpolate(ctx, l, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertSnapshotField reconstructs a snapshot and checks one field's
// display value. Expect "absent" asserts the field is missing.
func assertSnapshotField(ctx context.Context, l *ledger.Ledger, a Assertion) error {
	at, err := time.Parse(time.RFC3339, a.At)
	if err != nil {
		return err
	}
	dim := fact.DimensionTransaction
	if a.Dimension != "" {
		dim, err = fact.ParseDimension(a.Dimension)
		if err != nil {
			return err
		}
	}

	snap, err := l.GetSnapshot(ctx, a.Entity, at.UTC(), dim)
	if err != nil {
		return err
	}

	v, ok := snap.State[a.Field]
	if a.Expect == "absent" {
		if ok {
			return &AssertionError{
				Type:     AssertSnapshotField,
				Expected: fmt.Sprintf("%s.%s absent at %s", a.Entity, a.Field, a.At),
				Actual:   fmt.Sprintf("present with value %s", fact.Display(v)),
			}
		}
		return nil
	}
	if !ok {
		return &AssertionError{
			Type:     AssertSnapshotField,
			Expected: fmt.Sprintf("%s.%s = %s at %s (%s time)", a.Entity, a.Field, a.Expect, a.At, dim),
			Actual:   "field absent",
		}
	}
	if got := fact.Display(v); got != a.Expect {
		return &AssertionError{
			Type:     AssertSnapshotField,
			Expected: fmt.Sprintf("%s.%s = %s at %s (%s time)", a.Entity, a.Field, a.Expect, a.At, dim),
			Actual:   got,
		}
	}
	return nil
}

func assertHistoryCount(ctx context.Context, l *ledger.Ledger, a Assertion) error {
	facts, err := l.GetHistory(ctx, a.Entity)
	if err != nil {
		return err
	}
	if len(facts) != a.Count {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d facts for %s", a.Count, a.Entity),
			Actual:   fmt.Sprintf("%d facts", len(facts)),
		}
	}
	return nil
}

func assertRetroactiveCount(ctx context.Context, l *ledger.Ledger, a Assertion) error {
	facts, err := l.GetHistory(ctx, a.Entity)
	if err != nil {
		return err
	}
	count := 0
	for _, f := range facts {
		if fact.IsRetroactive(f) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertRetroactiveCount,
			Expected: fmt.Sprintf("%d retroactive facts for %s", a.Count, a.Entity),
			Actual:   fmt.Sprintf("%d retroactive facts", count),
		}
	}
	return nil
}

func assertInterpolate(ctx context.Context, l *ledger.Ledger, a Assertion) error {
	at, err := time.Parse(time.RFC3339, a.At)
	if err != nil {
		return err
	}

	interp, err := l.InterpolateValue(ctx, a.Entity, a.Field, at.UTC())
	if err != nil {
		return err
	}

	if a.Unknown {
		if interp.Known {
			return &AssertionError{
				Type:     AssertInterpolate,
				Expected: fmt.Sprintf("%s.%s unknown at %s", a.Entity, a.Field, a.At),
				Actual:   fmt.Sprintf("known value %s", fact.Display(interp.Value)),
			}
		}
		return nil
	}
	if !interp.Known {
		return &AssertionError{
			Type:     AssertInterpolate,
			Expected: fmt.Sprintf("%s.%s = %s at %s", a.Entity, a.Field, a.Expect, a.At),
			Actual:   "unknown",
		}
	}
	if got := fact.Display(interp.Value); got != a.Expect {
		return &AssertionError{
			Type:     AssertInterpolate,
			Expected: fmt.Sprintf("%s.%s = %s at %s", a.Entity, a.Field, a.Expect, a.At),
			Actual:   got,
		}
	}
	return nil
}
