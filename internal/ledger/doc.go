// Package ledger wires the fact log, temporal index, snapshot engine, and
// timeline builder into one service surface: Append, GetHistory,
// GetSnapshot, ReconstructTimeline, InterpolateValue, BuildVisualization,
// and Export.
//
// The ledger is synchronous at its core. Concurrency happens by running
// independent queries on separate goroutines (ReconstructMany); the only
// serialization point is sequence-number assignment inside the store.
// Asynchronous wrapping, if any, belongs at a service boundary above this
// package, not inside the reconstruction algorithms.
package ledger
