package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the first instant a StepClock reports.
var DefaultEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// StepClock is a deterministic wall clock for tests. Every call to Now
// advances it by a fixed step, so ledger timestamps are reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewStepClock creates a clock starting at DefaultEpoch that advances one
// second per call.
func NewStepClock() *StepClock {
	return &StepClock{start: DefaultEpoch, step: time.Second}
}

// Now returns the current instant and advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many times Now has been called.
func (c *StepClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock to its start.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
