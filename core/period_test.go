package core

import (
	"testing"
	"time"
)

// TestPeriodTimer_NoDrift verifies releases stay on the anchor grid
// Given: A 100ms timer on a manual clock and 100 activations with variable
// execution times, some longer than the period
// When: Each activation advances the clock by its execution time and waits
// Then: Every release equals anchor + n*period, on-time activations advance n
// by one and overruns advance n by ceil(exec/period) without catch-up bursts
func TestPeriodTimer_NoDrift(t *testing.T) {
	// Arrange
	const period = 100 * time.Millisecond
	clock := NewManualClock(3 * time.Second)
	timer := NewPeriodTimer(clock, period)
	anchor := timer.Anchor()

	execs := []time.Duration{
		7 * time.Millisecond, 93 * time.Millisecond, 100 * time.Millisecond,
		150 * time.Millisecond, 1 * time.Millisecond, 299 * time.Millisecond,
		33 * time.Millisecond, 200 * time.Millisecond, 61 * time.Millisecond,
	}

	// Act and Assert
	wantN := int64(0)
	for i := 0; i < 100; i++ {
		release := clock.Now()
		if release != anchor+time.Duration(wantN)*period {
			t.Fatalf("activation %d released at %v, want %v", i, release, anchor+time.Duration(wantN)*period)
		}
		if timer.Index() != wantN {
			t.Fatalf("activation %d: Index() = %d, want %d", i, timer.Index(), wantN)
		}

		exec := execs[i%len(execs)]
		clock.Advance(exec)
		skipped := timer.Wait()

		step := int64(1)
		if exec > period {
			step = int64((exec + period - 1) / period)
		}
		if skipped != int(step-1) {
			t.Fatalf("activation %d: skipped = %d, want %d", i, skipped, step-1)
		}
		wantN += step
	}
}

func TestPeriodTimer_LateWakeSkipsWholePeriods(t *testing.T) {
	clock := NewManualClock(0)
	timer := NewPeriodTimer(clock, 10*time.Millisecond)

	// 35ms late: boundaries 10, 20, 30 are gone, next release is 40
	clock.Advance(35 * time.Millisecond)
	skipped := timer.Wait()

	if skipped != 3 {
		t.Fatalf("skipped = %d, want 3", skipped)
	}
	if got := clock.Now(); got != 40*time.Millisecond {
		t.Fatalf("Now() = %v, want 40ms", got)
	}
	if got := timer.Scheduled(); got != 40*time.Millisecond {
		t.Fatalf("Scheduled() = %v, want 40ms", got)
	}
}
