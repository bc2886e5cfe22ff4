package core

import (
	"context"
	"errors"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ErrRunnerClosed is returned by Start after Stop.
var ErrRunnerClosed = errors.New("runner is closed")

// rtThread binds a dedicated goroutine to one OS thread and elevates that
// thread before running the body. It carries the lifecycle shared by every
// runner type.
type rtThread struct {
	name     string
	priority TaskPriority
	cfg      RunnerConfig

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	stopped chan struct{}

	closed  atomic.Bool
	running atomic.Bool
	panics  atomic.Uint64
}

func newRTThread(name string, priority TaskPriority, cfg RunnerConfig) rtThread {
	return rtThread{
		name:     name,
		priority: priority,
		cfg:      cfg,
		stopped:  make(chan struct{}),
	}
}

// start spawns the thread and blocks until elevation succeeded or failed.
// Repeated calls are no-ops.
func (t *rtThread) start(parent context.Context, body func(ctx context.Context)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed.Load() {
		return ErrRunnerClosed
	}
	if t.started {
		return nil
	}

	ctx, cancel := context.WithCancel(parent)
	ready := make(chan error, 1)

	go func() {
		defer close(t.stopped)

		// Never unlocked: the runtime discards the elevated thread when
		// this goroutine exits instead of reusing it.
		runtime.LockOSThread()

		if err := t.cfg.Prioritizer.Elevate(t.priority); err != nil {
			ready <- err
			return
		}
		ready <- nil

		t.running.Store(true)
		defer t.running.Store(false)
		body(ctx)
	}()

	if err := <-ready; err != nil {
		cancel()
		t.closed.Store(true)
		return err
	}

	t.started = true
	t.cancel = cancel
	t.cfg.Logger.Info("runner started",
		F("runner", t.name),
		F("priority", int(t.priority)),
	)
	return nil
}

// stop cancels the body and waits for the current iteration to finish.
func (t *rtThread) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed.Store(true)
	if !t.started {
		return
	}
	t.cancel()
	<-t.stopped
	t.started = false
	t.cfg.Logger.Info("runner stopped", F("runner", t.name))
}

func (t *rtThread) isClosed() bool {
	return t.closed.Load()
}

// runWorkload executes w, recovering a panic. It reports whether w panicked.
func (t *rtThread) runWorkload(ctx context.Context, w Workload) (panicked bool) {
	defer func() {
		if rec := recover(); rec != nil {
			panicked = true
			t.panics.Add(1)
			t.cfg.Metrics.RecordTaskPanic(t.name, rec)
			t.cfg.PanicHandler.HandlePanic(ctx, t.name, rec, debug.Stack())
		}
	}()
	w(ctx)
	return false
}

// waitNext sleeps until the next boundary of timer and reports skipped releases.
func (t *rtThread) waitNext(timer *PeriodTimer) int {
	skipped := timer.Wait()
	if skipped > 0 {
		t.cfg.Metrics.RecordSkippedReleases(t.name, skipped)
		t.cfg.Logger.Warn("release overrun, skipping periods",
			F("runner", t.name),
			F("skipped", skipped),
			F("next_release_us", timer.Scheduled().Microseconds()),
		)
	}
	return skipped
}

func (t *rtThread) baseStats(kind string, period time.Duration) RunnerStats {
	return RunnerStats{
		Name:     t.name,
		Type:     kind,
		Priority: t.priority,
		Period:   period,
		Panics:   t.panics.Load(),
		Running:  t.running.Load(),
		Closed:   t.closed.Load(),
	}
}
