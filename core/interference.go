package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Defaults of the interference workload.
const (
	DefaultPreemptorPeriod      = 50 * time.Millisecond
	DefaultPreemptorIterations  = 5_000_000
	DefaultBackgroundIterations = 10_000_000
)

// PreemptorConfig describes the high-priority periodic interference task.
type PreemptorConfig struct {
	Name     string
	Period   time.Duration
	Priority TaskPriority
}

// DefaultPreemptorConfig returns a 50ms preemptor at priority 95, above both
// monitored tasks.
func DefaultPreemptorConfig() PreemptorConfig {
	return PreemptorConfig{
		Name:     "preemptor",
		Period:   DefaultPreemptorPeriod,
		Priority: TaskPriorityInterference,
	}
}

// Validate checks the config.
func (c PreemptorConfig) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: preemptor name is required", ErrInvalidConfig)
	case c.Period <= 0:
		return fmt.Errorf("%w: %s: period must be > 0", ErrInvalidConfig, c.Name)
	case c.Priority < TaskPriorityBestEffort || c.Priority > TaskPriorityMax:
		return fmt.Errorf("%w: %s: priority %d out of range [0,%d]", ErrInvalidConfig, c.Name, c.Priority, TaskPriorityMax)
	}
	return nil
}

// =============================================================================
// Preemptor
// =============================================================================

// Preemptor burns CPU once per period at a priority above the monitored
// tasks. It never touches the MetricsStore; its only effect is preemption.
type Preemptor struct {
	rtThread

	config   PreemptorConfig
	workload Workload

	activations atomic.Uint64
	skipped     atomic.Uint64
}

// NewPreemptor creates a preemptor. A nil rc uses DefaultRunnerConfig.
func NewPreemptor(config PreemptorConfig, workload Workload, rc *RunnerConfig) (*Preemptor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if workload == nil {
		return nil, fmt.Errorf("preemptor %s: nil workload", config.Name)
	}
	return &Preemptor{
		rtThread: newRTThread(config.Name, config.Priority, rc.resolve()),
		config:   config,
		workload: workload,
	}, nil
}

func (p *Preemptor) Name() string { return p.config.Name }

func (p *Preemptor) Start(ctx context.Context) error {
	return p.start(ctx, p.run)
}

func (p *Preemptor) Stop() { p.stop() }

func (p *Preemptor) IsClosed() bool { return p.isClosed() }

func (p *Preemptor) Stats() RunnerStats {
	stats := p.baseStats(RunnerTypePreemptor, p.config.Period)
	stats.Activations = p.activations.Load()
	stats.Skipped = p.skipped.Load()
	return stats
}

func (p *Preemptor) run(ctx context.Context) {
	timer := NewPeriodTimer(p.cfg.Clock, p.config.Period)
	for {
		p.runWorkload(ctx, p.workload)
		p.activations.Add(1)
		if ctx.Err() != nil {
			return
		}
		if skipped := p.waitNext(timer); skipped > 0 {
			p.skipped.Add(uint64(skipped))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// =============================================================================
// BackgroundConsumer
// =============================================================================

// BackgroundConsumer keeps the CPU busy at the lowest priority. It runs its
// workload back to back, with no period, until stopped.
type BackgroundConsumer struct {
	rtThread

	workload Workload
	chunks   atomic.Uint64
}

// NewBackgroundConsumer creates a consumer in the default time-sharing class.
func NewBackgroundConsumer(name string, workload Workload, rc *RunnerConfig) (*BackgroundConsumer, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: background consumer name is required", ErrInvalidConfig)
	}
	if workload == nil {
		return nil, fmt.Errorf("background consumer %s: nil workload", name)
	}
	return &BackgroundConsumer{
		rtThread: newRTThread(name, TaskPriorityBestEffort, rc.resolve()),
		workload: workload,
	}, nil
}

func (b *BackgroundConsumer) Name() string { return b.name }

func (b *BackgroundConsumer) Start(ctx context.Context) error {
	return b.start(ctx, b.run)
}

func (b *BackgroundConsumer) Stop() { b.stop() }

func (b *BackgroundConsumer) IsClosed() bool { return b.isClosed() }

// Stats reports completed workload chunks as activations.
func (b *BackgroundConsumer) Stats() RunnerStats {
	stats := b.baseStats(RunnerTypeBackground, 0)
	stats.Activations = b.chunks.Load()
	return stats
}

func (b *BackgroundConsumer) run(ctx context.Context) {
	for ctx.Err() == nil {
		b.runWorkload(ctx, b.workload)
		b.chunks.Add(1)
	}
}
