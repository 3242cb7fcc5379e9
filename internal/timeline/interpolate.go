package timeline

import (
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"

	"chronicle/internal/fact"
)

// interpCtx does the decimal arithmetic for linear interpolation.
// 34 digits matches IEEE 754 decimal128, far beyond any field precision
// the ledger stores.
var interpCtx = apd.BaseContext.WithPrecision(34)

// Interpolation is the result of a gap-fill query. Absence of data is an
// expected steady state, so "unknown" is a value, not an error.
type Interpolation struct {
	// Known is false when no bounding fact before t exists.
	Known bool

	// Value is the interpolated or forward-filled value when Known.
	Value fact.Value

	// Interpolated is true when the value was computed between two
	// numeric bounds rather than carried forward from one fact.
	Interpolated bool
}

// Unknown is the explicit "no data" result.
var Unknown = Interpolation{}

// Interpolate fills a temporal gap for one field at transaction time t,
// given the field's facts ordered by (transaction_time, seq).
//
// Bounds: "before" is the latest fact with transaction_time <= t, "after"
// the earliest with transaction_time > t.
//
//   - No before: unknown - values are never back-filled from later facts.
//   - Before only: before's value exactly - no extrapolation past the last
//     known point.
//   - Both bounds numeric: exact linear interpolation in decimals.
//   - Both bounds, either non-numeric: forward-fill from before.
func Interpolate(facts []*fact.BitemporalFact, fieldName string, t time.Time) (Interpolation, error) {
	var before, after *fact.BitemporalFact
	for _, f := range facts {
		if f.FieldName != fieldName {
			continue
		}
		if !f.TransactionTime.After(t) {
			// Input order makes the last qualifying fact the winner.
			before = f
		} else if after == nil {
			after = f
		}
	}

	if before == nil {
		return Unknown, nil
	}
	if after == nil {
		return Interpolation{Known: true, Value: before.NewValue}, nil
	}

	beforeNum, beforeOK := before.NewValue.(fact.Number)
	afterNum, afterOK := after.NewValue.(fact.Number)
	if !beforeOK || !afterOK {
		// Non-numeric values forward-fill; there is nothing between a
		// label and the next label.
		return Interpolation{Known: true, Value: before.NewValue}, nil
	}

	// before.time == after.time cannot divide; the earlier value stands.
	span := after.TransactionTime.Sub(before.TransactionTime)
	if span == 0 {
		return Interpolation{Known: true, Value: before.NewValue}, nil
	}

	val, err := lerp(beforeNum, afterNum, t.Sub(before.TransactionTime), span)
	if err != nil {
		return Unknown, fmt.Errorf("interpolate %s/%s: %w", before.EntityID, fieldName, err)
	}
	return Interpolation{Known: true, Value: val, Interpolated: true}, nil
}

// lerp computes before + elapsed/span * (after - before) in exact decimal
// arithmetic.
func lerp(before, after fact.Number, elapsed, span time.Duration) (fact.Number, error) {
	var delta, scaled, ratio, out apd.Decimal

	if _, err := interpCtx.Sub(&delta, after.Decimal(), before.Decimal()); err != nil {
		return fact.Number{}, err
	}
	if _, err := interpCtx.Quo(&ratio, apd.New(int64(elapsed), 0), apd.New(int64(span), 0)); err != nil {
		return fact.Number{}, err
	}
	if _, err := interpCtx.Mul(&scaled, &delta, &ratio); err != nil {
		return fact.Number{}, err
	}
	if _, err := interpCtx.Add(&out, before.Decimal(), &scaled); err != nil {
		return fact.Number{}, err
	}
	return fact.NumberFromDecimal(&out), nil
}
