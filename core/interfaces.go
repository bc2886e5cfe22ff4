package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling workload panics
// =============================================================================

// PanicHandler is called when a workload panics during an activation.
// The activation is recorded as inactive and the runner keeps its period.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a workload panics.
	//
	// Parameters:
	// - ctx: The context of the runner
	// - runnerName: The name of the runner where the panic occurred
	// - panicInfo: The panic value recovered from the workload
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, runnerName string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, runnerName string, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Runner %s] Panic: %v\nStack trace:\n%s", runnerName, panicInfo, stackTrace)
}

// =============================================================================
// Runner: lifecycle shared by every dedicated real-time thread
// =============================================================================

// Runner is a dedicated OS thread running at a fixed scheduling priority.
type Runner interface {
	Name() string

	// Start elevates the thread and begins its loop. A failed elevation is
	// returned and leaves the runner closed.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for the iteration in progress.
	Stop()

	IsClosed() bool
	Stats() RunnerStats
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics receives timing events from the runners.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called on the real-time thread after the store update and
// outside its lock; they must be non-blocking and fast.
type Metrics interface {
	// RecordActivation records one completed activation of a monitored task.
	RecordActivation(record ActivationRecord)

	// RecordWindow records the verdict of a completed (m,k) window.
	RecordWindow(taskName string, result WindowResult)

	// RecordHWM records a raised high-water mark.
	RecordHWM(taskName string, hwm time.Duration)

	// RecordSkippedReleases records period boundaries jumped over after an overrun.
	RecordSkippedReleases(runnerName string, skipped int)

	// RecordTaskPanic records that a workload panicked.
	RecordTaskPanic(runnerName string, panicInfo any)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordActivation is a no-op.
func (m *NilMetrics) RecordActivation(record ActivationRecord) {}

// RecordWindow is a no-op.
func (m *NilMetrics) RecordWindow(taskName string, result WindowResult) {}

// RecordHWM is a no-op.
func (m *NilMetrics) RecordHWM(taskName string, hwm time.Duration) {}

// RecordSkippedReleases is a no-op.
func (m *NilMetrics) RecordSkippedReleases(runnerName string, skipped int) {}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(runnerName string, panicInfo any) {}

// =============================================================================
// RunnerConfig: Collaborators shared by the periodic runners
// =============================================================================

// RunnerConfig holds the collaborators of a runner.
// All fields are optional; nil fields fall back to defaults.
type RunnerConfig struct {
	// Clock drives release times. Defaults to the platform MonotonicClock.
	Clock Clock

	// Prioritizer elevates the runner thread. Defaults to FIFOPrioritizer.
	Prioritizer ThreadPrioritizer

	// Logger defaults to DefaultLogger.
	Logger Logger

	// Metrics defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// HistoryCapacity bounds RecentActivations. Defaults to 100.
	HistoryCapacity int
}

// DefaultRunnerConfig returns a config with default collaborators.
func DefaultRunnerConfig() *RunnerConfig {
	return &RunnerConfig{
		Clock:           NewMonotonicClock(),
		Prioritizer:     FIFOPrioritizer{},
		Logger:          NewDefaultLogger(),
		Metrics:         &NilMetrics{},
		PanicHandler:    &DefaultPanicHandler{},
		HistoryCapacity: defaultActivationHistoryCapacity,
	}
}

// resolve returns a copy of c with every nil field defaulted.
func (c *RunnerConfig) resolve() RunnerConfig {
	out := *DefaultRunnerConfig()
	if c == nil {
		return out
	}
	if c.Clock != nil {
		out.Clock = c.Clock
	}
	if c.Prioritizer != nil {
		out.Prioritizer = c.Prioritizer
	}
	if c.Logger != nil {
		out.Logger = c.Logger
	}
	if c.Metrics != nil {
		out.Metrics = c.Metrics
	}
	if c.PanicHandler != nil {
		out.PanicHandler = c.PanicHandler
	}
	if c.HistoryCapacity > 0 {
		out.HistoryCapacity = c.HistoryCapacity
	}
	return out
}
