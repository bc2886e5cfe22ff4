package core

import (
	"sync"
	"time"
)

// Clock supplies monotonic timestamps and absolute-time sleeps.
//
// Instants are offsets on a monotonic timeline with microsecond resolution.
// They are only comparable with other instants from the same Clock.
type Clock interface {
	// Now returns the current monotonic instant.
	Now() time.Duration

	// SleepUntil blocks until the clock reaches target. It returns
	// immediately when target is not in the future.
	SleepUntil(target time.Duration)
}

// NewMonotonicClock returns the platform monotonic clock.
func NewMonotonicClock() MonotonicClock {
	return MonotonicClock{}
}

// ManualClock is a Clock driven by the caller. SleepUntil jumps straight to
// its target so periodic loops run without wall-clock delay.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	sleeps []time.Duration
}

// NewManualClock creates a ManualClock starting at start.
func NewManualClock(start time.Duration) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current instant.
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

// SleepUntil records target and moves the clock to it if it lies ahead.
func (c *ManualClock) SleepUntil(target time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, target)
	if target > c.now {
		c.now = target
	}
}

// Sleeps returns a copy of every SleepUntil target seen so far.
func (c *ManualClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}
