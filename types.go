package rtmonitor

import "github.com/Swind/go-rt-monitor/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the rtmonitor package for most use cases.

// Workload is the simulated work of one activation
type Workload = core.Workload

// TaskConfig describes a monitored periodic task
type TaskConfig = core.TaskConfig

// TaskPriority is a SCHED_FIFO priority
type TaskPriority = core.TaskPriority

// PreemptorConfig describes the high-priority interference task
type PreemptorConfig = core.PreemptorConfig

// TaskSnapshot is a consistent copy of one task's metrics
type TaskSnapshot = core.TaskSnapshot

// Runner is the lifecycle shared by every real-time thread
type Runner = core.Runner

// Priority constants
const (
	TaskPriorityBestEffort   TaskPriority = core.TaskPriorityBestEffort
	TaskPriorityABS          TaskPriority = core.TaskPriorityABS
	TaskPriorityAirbag       TaskPriority = core.TaskPriorityAirbag
	TaskPriorityInterference TaskPriority = core.TaskPriorityInterference
)

// Convenience constructors for the default tasks
var (
	AirbagTaskConfig       = core.AirbagTaskConfig
	ABSTaskConfig          = core.ABSTaskConfig
	DefaultPreemptorConfig = core.DefaultPreemptorConfig
	IterationWorkload      = core.IterationWorkload
)
