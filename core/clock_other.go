//go:build !linux

package core

import "time"

var monotonicEpoch = time.Now()

// MonotonicClock uses the Go runtime monotonic clock. Sleeps are computed
// against the absolute target on every call, so lateness does not accumulate.
type MonotonicClock struct{}

// Now returns the time elapsed since process start, truncated to microseconds.
func (MonotonicClock) Now() time.Duration {
	return time.Since(monotonicEpoch).Truncate(time.Microsecond)
}

// SleepUntil sleeps for the remaining distance to target.
func (c MonotonicClock) SleepUntil(target time.Duration) {
	if d := target - c.Now(); d > 0 {
		time.Sleep(d)
	}
}
