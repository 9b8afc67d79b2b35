package action

import "sync/atomic"

// Clock is the engine's virtual clock: a monotonic tick counter with no
// wall-clock coupling. It advances only when the executor completes an
// action, by that action's duration.
type Clock struct {
	ticks uint64
}

// NewClock creates a clock at tick zero.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current virtual time.
func (c *Clock) Now() uint64 {
	return atomic.LoadUint64(&c.ticks)
}

// Advance moves the clock forward and returns the new virtual time.
func (c *Clock) Advance(duration uint64) uint64 {
	return atomic.AddUint64(&c.ticks, duration)
}
