// Package store provides SQLite-backed durable storage for the bitemporal
// fact log.
//
// The store implements an append-only log: facts are inserted exactly once
// and never updated or deleted. Corrections are new facts. This is what
// makes lock-free reads possible - a reader bounds its scan to
// seq <= watermark and sees a stable snapshot regardless of concurrent
// appends.
//
// # Ordering
//
// Every fact carries a global sequence number from an injected
// SequenceAllocator. All queries order by (transaction_time, seq) or
// (valid_time, seq); seq breaks every tie, so query results are
// deterministic across replays.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Values are stored as (kind, text) pairs: decimal text for numbers,
// canonical JSON for structured values. Decoding never guesses a type.
package store
