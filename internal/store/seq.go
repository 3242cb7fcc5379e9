package store

import "sync/atomic"

// SequenceAllocator hands out the global, strictly increasing sequence
// numbers that totally order the fact log.
//
// It is an explicit injected object, never a hidden singleton: construct one
// and pass it to Open via WithSequenceAllocator, or let Open build a private
// one. Sequence assignment is the only serialization point in the ledger -
// because appended facts are never mutated, readers need no locks at all.
//
// Thread-safety: safe for concurrent use (atomic operations). Each call to
// Next is linearizable and returns a unique, increasing value.
type SequenceAllocator struct {
	seq atomic.Int64
}

// NewSequenceAllocator creates an allocator starting at 0.
// The first call to Next returns 1.
func NewSequenceAllocator() *SequenceAllocator {
	return &SequenceAllocator{}
}

// NewSequenceAllocatorAt creates an allocator resuming from a specific
// position, e.g. the persisted high-water mark after restart.
func NewSequenceAllocatorAt(start int64) *SequenceAllocator {
	a := &SequenceAllocator{}
	a.seq.Store(start)
	return a
}

// Next returns the next sequence number and advances the allocator.
func (a *SequenceAllocator) Next() int64 {
	return a.seq.Add(1)
}

// Current returns the last allocated sequence number without advancing.
// Used as the watermark for snapshot-isolated reads.
func (a *SequenceAllocator) Current() int64 {
	return a.seq.Load()
}

// AdvanceTo moves the allocator forward to at least n. Never moves it
// backward, so racing appenders cannot cause a duplicate allocation.
func (a *SequenceAllocator) AdvanceTo(n int64) {
	for {
		cur := a.seq.Load()
		if cur >= n {
			return
		}
		if a.seq.CompareAndSwap(cur, n) {
			return
		}
	}
}
