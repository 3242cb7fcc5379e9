// Package fact defines the bitemporal fact model shared by every component
// of the ledger.
//
// A fact records one change to one field of one entity, stamped on two
// independent time axes:
//
//   - transaction time: when the fact was durably recorded
//   - valid time: when the fact is asserted to have been true
//
// A fact recorded after its claimed effective time is retroactive. The
// classifier here (IsRetroactive, TimeLag) is pure and O(1).
//
// Field values are a closed tagged variant (Null, Bool, Number, String,
// Structured) rather than an open dynamic type. Numbers are exact decimals
// via cockroachdb/apd, so interpolation and decimal-string export never pass
// through binary floats.
package fact
