package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// PeriodicTaskRunner runs one monitored task on a dedicated, elevated OS
// thread. Every period it samples the task's sensor flag, executes the
// workload when the sensor is active, and records the timing outcome in the
// shared MetricsStore.
//
// Releases are anchored to the instant the runner starts (see PeriodTimer).
// A slow activation is never interrupted; it is recorded as a deadline miss.
//
// Key differences from Preemptor:
// - PeriodicTaskRunner: measures every activation and feeds the MetricsStore
// - Preemptor: only consumes CPU at high priority, touches no shared state
type PeriodicTaskRunner struct {
	rtThread

	task     TaskConfig
	store    *MetricsStore
	workload Workload
	history  *activationHistory

	activations atomic.Uint64
	skipped     atomic.Uint64
	lastRelease atomic.Int64
}

// NewPeriodicTaskRunner creates a runner for task. The task must already be
// registered in store. A nil rc uses DefaultRunnerConfig.
func NewPeriodicTaskRunner(task TaskConfig, store *MetricsStore, workload Workload, rc *RunnerConfig) (*PeriodicTaskRunner, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("periodic runner: nil metrics store")
	}
	if workload == nil {
		return nil, fmt.Errorf("periodic runner %s: nil workload", task.Name)
	}
	if _, ok := store.TaskSnapshot(task.Name); !ok {
		return nil, fmt.Errorf("periodic runner: %w: %s", ErrUnknownTask, task.Name)
	}

	cfg := rc.resolve()
	return &PeriodicTaskRunner{
		rtThread: newRTThread(task.Name, task.Priority, cfg),
		task:     task,
		store:    store,
		workload: workload,
		history:  newActivationHistory(cfg.HistoryCapacity),
	}, nil
}

// Name returns the task name.
func (r *PeriodicTaskRunner) Name() string {
	return r.task.Name
}

// Config returns the task config.
func (r *PeriodicTaskRunner) Config() TaskConfig {
	return r.task
}

// Start elevates the runner thread and begins the periodic loop.
// A failed elevation is returned and the runner is closed; callers must
// treat it as fatal.
func (r *PeriodicTaskRunner) Start(ctx context.Context) error {
	return r.start(ctx, r.run)
}

// Stop ends the loop after the activation in progress and waits for it.
func (r *PeriodicTaskRunner) Stop() {
	r.stop()
}

// IsClosed returns true once the runner has been stopped.
func (r *PeriodicTaskRunner) IsClosed() bool {
	return r.isClosed()
}

// Stats returns a snapshot of the runner state.
func (r *PeriodicTaskRunner) Stats() RunnerStats {
	stats := r.baseStats(RunnerTypePeriodic, r.task.Period)
	stats.Activations = r.activations.Load()
	stats.Skipped = r.skipped.Load()
	stats.LastRelease = time.Duration(r.lastRelease.Load())
	return stats
}

// RecentActivations returns up to limit activations, newest first.
func (r *PeriodicTaskRunner) RecentActivations(limit int) []ActivationRecord {
	return r.history.Recent(limit)
}

// LastActivation returns the most recent activation.
func (r *PeriodicTaskRunner) LastActivation() (ActivationRecord, bool) {
	return r.history.Last()
}

func (r *PeriodicTaskRunner) run(ctx context.Context) {
	timer := NewPeriodTimer(r.cfg.Clock, r.task.Period)
	skipped := 0

	for seq := uint64(0); ; seq++ {
		r.activate(ctx, seq, timer.Scheduled(), skipped)
		if ctx.Err() != nil {
			return
		}
		skipped = r.waitNext(timer)
		if ctx.Err() != nil {
			return
		}
	}
}

// activate performs one activation released at the boundary scheduled.
func (r *PeriodicTaskRunner) activate(ctx context.Context, seq uint64, scheduled time.Duration, skipped int) ActivationRecord {
	clock := r.cfg.Clock
	rec := ActivationRecord{
		Task:      r.task.Name,
		Priority:  r.task.Priority,
		Seq:       seq,
		Scheduled: scheduled,
		Release:   clock.Now(),
		Skipped:   skipped,
	}

	if r.store.SensorActive(r.task.Name) {
		rec.Start = clock.Now()
		panicked := r.runWorkload(ctx, r.workload)
		rec.End = clock.Now()
		if panicked {
			rec.Panicked = true
		} else {
			rec.Active = true
			rec.ExecTime = rec.End - rec.Start
			rec.ResponseTime = rec.End - rec.Release
		}
	}

	res, err := r.store.RecordActivation(r.task.Name, Outcome{
		Active:          rec.Active,
		ExecTime:        rec.ExecTime,
		ResponseTime:    rec.ResponseTime,
		ReleaseJitter:   rec.Jitter(),
		SkippedReleases: skipped,
	})
	if err != nil {
		r.cfg.Logger.Error("record activation failed", F("task", r.task.Name), F("error", err))
		return rec
	}
	rec.Missed = res.Missed

	r.activations.Add(1)
	if skipped > 0 {
		r.skipped.Add(uint64(skipped))
	}
	r.lastRelease.Store(int64(rec.Release))
	r.history.Add(rec)

	r.report(rec, res)
	return rec
}

func (r *PeriodicTaskRunner) report(rec ActivationRecord, res ActivationResult) {
	r.cfg.Metrics.RecordActivation(rec)

	if res.HWMUpdated {
		r.cfg.Metrics.RecordHWM(r.task.Name, res.HWM)
		r.cfg.Logger.Info("hwm updated",
			F("task", r.task.Name),
			F("hwm_us", res.HWM.Microseconds()),
		)
	}

	if res.WindowDone {
		r.cfg.Metrics.RecordWindow(r.task.Name, res.Window)
		fields := []Field{
			F("task", r.task.Name),
			F("misses", res.Window.Misses),
			F("allowed", r.task.AllowedMisses()),
			F("m", r.task.RequiredHits),
			F("k", r.task.WindowSize),
		}
		if res.Window.Verdict == VerdictPass {
			r.cfg.Logger.Info("(m,k)-firm window met", fields...)
		} else {
			r.cfg.Logger.Warn("(m,k)-firm window violated", fields...)
		}
	}
}
