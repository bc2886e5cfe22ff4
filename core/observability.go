package core

import "time"

// ActivationRecord captures one completed activation of a monitored task.
// Instants are on the runner's Clock timeline.
type ActivationRecord struct {
	Task     string
	Priority TaskPriority
	Seq      uint64 // 0 for the first activation

	Scheduled time.Duration // period boundary
	Release   time.Duration
	Start     time.Duration
	End       time.Duration

	ExecTime     time.Duration
	ResponseTime time.Duration
	Skipped      int // boundaries jumped before this release

	Active   bool
	Missed   bool
	Panicked bool
}

// Jitter returns how late the release was relative to its boundary.
func (r ActivationRecord) Jitter() time.Duration {
	return r.Release - r.Scheduled
}

// RunnerStats represents runtime observability state for a runner.
type RunnerStats struct {
	Name        string
	Type        string
	Priority    TaskPriority
	Period      time.Duration
	Activations uint64
	Skipped     uint64
	Panics      uint64
	Running     bool
	Closed      bool
	LastRelease time.Duration
}

const (
	RunnerTypePeriodic   = "periodic"
	RunnerTypePreemptor  = "preemptor"
	RunnerTypeBackground = "background"
)
