package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Workload is the unit of simulated work executed by one activation (Closure)
type Workload func(ctx context.Context)

// =============================================================================
// TaskPriority: real-time scheduling priority
// =============================================================================

// TaskPriority is a SCHED_FIFO priority. Higher values preempt lower ones.
// Zero means the thread stays in the default time-sharing class.
type TaskPriority int

const (
	// TaskPriorityBestEffort: default time-sharing class, lowest priority
	TaskPriorityBestEffort TaskPriority = 0

	// TaskPriorityABS: anti-lock braking task
	TaskPriorityABS TaskPriority = 80

	// TaskPriorityAirbag: highest of the monitored tasks
	TaskPriorityAirbag TaskPriority = 90

	// TaskPriorityInterference: preemptor running above every monitored task
	TaskPriorityInterference TaskPriority = 95

	// TaskPriorityMax is the highest SCHED_FIFO priority on Linux.
	TaskPriorityMax TaskPriority = 99
)

// IsRealtime reports whether the priority requires the real-time class.
func (p TaskPriority) IsRealtime() bool {
	return p > TaskPriorityBestEffort
}

// ErrInvalidConfig is wrapped by every TaskConfig validation failure.
var ErrInvalidConfig = errors.New("invalid task config")

// =============================================================================
// TaskConfig: immutable description of one monitored periodic task
// =============================================================================

// TaskConfig describes a monitored task. It is created once at startup and
// owned by a single PeriodicTaskRunner.
type TaskConfig struct {
	Name     string
	Period   time.Duration
	Deadline time.Duration // relative to release
	Priority TaskPriority

	// WindowSize is k and RequiredHits is m of the (m,k)-firm constraint.
	WindowSize   int
	RequiredHits int
}

// AllowedMisses returns k-m, the number of misses a window tolerates.
func (c TaskConfig) AllowedMisses() int {
	return c.WindowSize - c.RequiredHits
}

// Validate checks the static invariants of the config.
func (c TaskConfig) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	case c.Period <= 0:
		return fmt.Errorf("%w: %s: period must be > 0", ErrInvalidConfig, c.Name)
	case c.Deadline <= 0:
		return fmt.Errorf("%w: %s: deadline must be > 0", ErrInvalidConfig, c.Name)
	case c.Priority < TaskPriorityBestEffort || c.Priority > TaskPriorityMax:
		return fmt.Errorf("%w: %s: priority %d out of range [0,%d]", ErrInvalidConfig, c.Name, c.Priority, TaskPriorityMax)
	case c.RequiredHits <= 0 || c.RequiredHits > c.WindowSize:
		return fmt.Errorf("%w: %s: need 0 < m <= k, got m=%d k=%d", ErrInvalidConfig, c.Name, c.RequiredHits, c.WindowSize)
	}
	return nil
}

// AirbagTaskConfig returns the airbag task: 100ms period, 100ms deadline,
// priority 90, (10,20)-firm.
func AirbagTaskConfig() TaskConfig {
	return TaskConfig{
		Name:         "airbag",
		Period:       100 * time.Millisecond,
		Deadline:     100000 * time.Microsecond,
		Priority:     TaskPriorityAirbag,
		WindowSize:   20,
		RequiredHits: 10,
	}
}

// ABSTaskConfig returns the anti-lock braking task: 100ms period, 100ms
// deadline, priority 80, (8,10)-firm.
func ABSTaskConfig() TaskConfig {
	return TaskConfig{
		Name:         "abs",
		Period:       100 * time.Millisecond,
		Deadline:     100000 * time.Microsecond,
		Priority:     TaskPriorityABS,
		WindowSize:   10,
		RequiredHits: 8,
	}
}

// =============================================================================
// Workloads
// =============================================================================

// DefaultTaskIterations is the per-activation workload of a monitored task.
const DefaultTaskIterations = 1_000_000

// iterationSink keeps the counting loop from being optimized away.
var iterationSink atomic.Int64

// IterationWorkload returns a bounded, deterministic counting loop of n
// iterations. It stands in for sensor-processing computation.
func IterationWorkload(n int) Workload {
	return func(ctx context.Context) {
		var acc int64
		for i := 0; i < n; i++ {
			acc += int64(i & 1)
		}
		iterationSink.Store(acc)
	}
}

// ClockWorkload advances a ManualClock by d. Used to script execution times.
func ClockWorkload(clock *ManualClock, d time.Duration) Workload {
	return func(ctx context.Context) {
		clock.Advance(d)
	}
}

// SleepWorkload blocks for d. Unlike IterationWorkload it yields the CPU.
func SleepWorkload(d time.Duration) Workload {
	return func(ctx context.Context) {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	}
}
