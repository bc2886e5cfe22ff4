package core

import "time"

// PeriodTimer produces release instants anchored to the instant it was
// created: anchor, anchor+period, anchor+2*period, ...
//
// Releases are never computed from the end of the previous activation, so
// variable execution time cannot accumulate drift.
type PeriodTimer struct {
	clock  Clock
	period time.Duration
	anchor time.Duration
	next   time.Duration
}

// NewPeriodTimer anchors a timer at clock.Now(). The first release is the
// anchor itself.
func NewPeriodTimer(clock Clock, period time.Duration) *PeriodTimer {
	anchor := clock.Now()
	return &PeriodTimer{
		clock:  clock,
		period: period,
		anchor: anchor,
		next:   anchor,
	}
}

// Anchor returns the instant of release zero.
func (t *PeriodTimer) Anchor() time.Duration {
	return t.anchor
}

// Period returns the release period.
func (t *PeriodTimer) Period() time.Duration {
	return t.period
}

// Scheduled returns the boundary of the current release.
func (t *PeriodTimer) Scheduled() time.Duration {
	return t.next
}

// Index returns n such that Scheduled() == Anchor() + n*Period().
func (t *PeriodTimer) Index() int64 {
	return int64((t.next - t.anchor) / t.period)
}

// Wait moves to the next period boundary and sleeps until it.
//
// If that boundary has already passed (an overrun or a late wake-up), the
// timer jumps by whole periods to the first boundary not before now instead
// of releasing a burst of catch-up activations. The number of boundaries
// jumped over is returned.
func (t *PeriodTimer) Wait() (skipped int) {
	t.next += t.period
	now := t.clock.Now()
	if behind := now - t.next; behind > 0 {
		n := (behind + t.period - 1) / t.period
		t.next += n * t.period
		skipped = int(n)
	}
	t.clock.SleepUntil(t.next)
	return skipped
}
