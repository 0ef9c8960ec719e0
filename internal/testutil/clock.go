package testutil

import "sync"

// DeterministicClock hands out monotonically increasing nanosecond
// timestamps for trace fixtures.
//
// Each call to Next advances by the clock's step, so fixtures that do not care
// about exact times still get distinct, ordered timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	now  int64
	step int64
}

// NewDeterministicClock creates a clock at 0 advancing by step per call.
// A step below 1 is treated as 1.
//
// The first call to Next() returns step.
func NewDeterministicClock(step int64) *DeterministicClock {
	if step < 1 {
		step = 1
	}
	return &DeterministicClock{step: step}
}

// Next advances the clock and returns the new time.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.step
	return c.now
}

// Current returns the current time without advancing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AdvanceTo moves the clock forward to t. Moving backwards is ignored so the
// clock stays monotonic.
func (c *DeterministicClock) AdvanceTo(t int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = max(c.now, t)
}

// Reset sets the clock back to 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = 0
}
