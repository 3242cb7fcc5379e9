package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator produces predictable fact IDs for tests.
//
// This enables deterministic test execution and golden file comparison:
// the same scenario with the same generator produces byte-identical export
// output, while production uses UUIDv7 IDs.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator emitting
// "<prefix>-000001", "<prefix>-000002", ...
// An empty prefix defaults to "fact".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "fact"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// NewID returns the next deterministic ID.
// Implements store.IDGenerator.
func (g *SequentialIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%06d", g.prefix, g.n)
}

// Reset restarts numbering from 1. Used for test reuse.
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
