package testutil

import (
	"sync"
	"time"
)

// SteppingClock returns strictly increasing wall times for tests.
//
// Each call to Now advances by a fixed step, so transaction times assigned
// by the store are deterministic and distinct without sleeping.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewSteppingClock creates a clock starting at start, advancing by step per
// call. A zero step defaults to one second.
func NewSteppingClock(start time.Time, step time.Duration) *SteppingClock {
	if step == 0 {
		step = time.Second
	}
	return &SteppingClock{next: start.UTC(), step: step}
}

// Now returns the current tick and advances the clock.
// Pass as store.WithClock(c.Now).
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// T is a fixed reference instant for tests. Offsets from T keep scenario
// times readable: T.Add(2 * time.Hour).
var T = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
