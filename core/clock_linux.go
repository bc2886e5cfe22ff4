//go:build linux

package core

import (
	"time"

	"golang.org/x/sys/unix"
)

// MonotonicClock reads CLOCK_MONOTONIC and sleeps with TIMER_ABSTIME, so a
// late wake-up never shifts later targets.
type MonotonicClock struct{}

// Now returns CLOCK_MONOTONIC truncated to microseconds.
func (MonotonicClock) Now() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		// CLOCK_MONOTONIC is always available on Linux
		panic("clock_gettime(CLOCK_MONOTONIC): " + err.Error())
	}
	return time.Duration(ts.Nano()).Truncate(time.Microsecond)
}

// SleepUntil blocks in clock_nanosleep until target, resuming after signals.
func (MonotonicClock) SleepUntil(target time.Duration) {
	ts := unix.NsecToTimespec(int64(target))
	for {
		err := unix.ClockNanosleep(unix.CLOCK_MONOTONIC, unix.TIMER_ABSTIME, &ts, nil)
		if err != unix.EINTR {
			return
		}
	}
}
