package testutil

import (
	"sync"
	"time"
)

// DefaultStart is the instant a new Clock reads until it is advanced.
var DefaultStart = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// Clock provides a thread-safe manually advanced wall clock for tests.
//
// Pass c.Now wherever a func() time.Time is expected (store.WithClock,
// worker options). Time only moves when Advance or Set is called, so
// timestamps and task schedules are reproducible across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock reading start. A zero start uses DefaultStart.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = DefaultStart
	}
	return &Clock{now: start.UTC()}
}

// Now returns the current reading.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new reading.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set jumps the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}
