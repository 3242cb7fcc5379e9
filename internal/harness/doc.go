// Package harness provides a conformance testing framework for the
// chronicle ledger.
//
// Scenarios are YAML files that append a fixed set of bitemporal facts to
// a fresh in-memory ledger and then assert on reconstructed snapshots,
// history counts, retroactivity classification, and interpolation.
//
// Determinism is the point: fact IDs come from a sequential generator and
// transaction times from a stepping clock, so repeated runs of the same
// scenario produce byte-identical timeline exports. That makes golden
// file comparison (RunWithGolden) a reliable lockdown of event ordering
// and export formatting, not a flaky diff.
package harness
