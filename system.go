package rtmonitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Swind/go-rt-monitor/core"
)

// BackgroundConfig describes the best-effort CPU consumer.
type BackgroundConfig struct {
	Name       string
	Iterations int // per chunk
}

// Config assembles a monitor. Zero collaborator fields fall back to the
// core defaults (MonotonicClock, FIFOPrioritizer, DefaultLogger, NilMetrics,
// DefaultPanicHandler); MemoryLocker defaults to MlockallLocker.
type Config struct {
	// Tasks are the monitored tasks, started in order.
	Tasks []TaskConfig

	// TaskIterations sizes the default counting workload of monitored tasks.
	TaskIterations int

	// Workloads overrides the workload of any runner by name.
	Workloads map[string]Workload

	// Preemptor is the high-priority interference task; nil disables it.
	Preemptor           *PreemptorConfig
	PreemptorIterations int

	// Background is the best-effort consumer; nil disables it.
	Background *BackgroundConfig

	// SensorsActive is the initial state of every sensor flag.
	SensorsActive bool

	// ID identifies the run. Defaults to a random UUID.
	ID string

	Clock           core.Clock
	Prioritizer     core.ThreadPrioritizer
	MemoryLocker    core.MemoryLocker
	Logger          core.Logger
	Metrics         core.Metrics
	PanicHandler    core.PanicHandler
	HistoryCapacity int
}

// DefaultConfig returns the airbag/ABS setup with a 50ms preemptor at
// priority 95 and a background consumer. Sensors start inactive.
func DefaultConfig() Config {
	preemptor := core.DefaultPreemptorConfig()
	return Config{
		Tasks:               []TaskConfig{core.AirbagTaskConfig(), core.ABSTaskConfig()},
		TaskIterations:      core.DefaultTaskIterations,
		Preemptor:           &preemptor,
		PreemptorIterations: core.DefaultPreemptorIterations,
		Background: &BackgroundConfig{
			Name:       "background",
			Iterations: core.DefaultBackgroundIterations,
		},
	}
}

// Unprivileged returns a copy of c that neither elevates threads nor locks
// memory. Priorities are still reported but not applied.
func (c Config) Unprivileged() Config {
	c.Prioritizer = core.NopPrioritizer{}
	c.MemoryLocker = core.NopMemoryLocker{}
	return c
}

// System owns the shared store and every runner of one monitor instance.
type System struct {
	id     string
	store  *core.MetricsStore
	locker core.MemoryLocker
	logger core.Logger

	// start order: interference first, then monitored tasks
	runners   []core.Runner
	periodics []*core.PeriodicTaskRunner

	mu      sync.Mutex
	started []core.Runner
	running bool
	stopped bool
}

// NewSystem validates cfg, registers every task in a new MetricsStore and
// builds the runners. Nothing runs until Start.
func NewSystem(cfg Config) (*System, error) {
	if len(cfg.Tasks) == 0 {
		return nil, fmt.Errorf("%w: no monitored tasks", core.ErrInvalidConfig)
	}

	rc := &core.RunnerConfig{
		Clock:           cfg.Clock,
		Prioritizer:     cfg.Prioritizer,
		Logger:          cfg.Logger,
		Metrics:         cfg.Metrics,
		PanicHandler:    cfg.PanicHandler,
		HistoryCapacity: cfg.HistoryCapacity,
	}
	logger := cfg.Logger
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	locker := cfg.MemoryLocker
	if locker == nil {
		locker = core.MlockallLocker{}
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	s := &System{
		id:     id,
		store:  core.NewMetricsStore(),
		locker: locker,
		logger: logger,
	}

	workload := func(name string, iterations int) Workload {
		if w, ok := cfg.Workloads[name]; ok && w != nil {
			return w
		}
		return core.IterationWorkload(iterations)
	}

	if cfg.Preemptor != nil {
		p, err := core.NewPreemptor(*cfg.Preemptor, workload(cfg.Preemptor.Name, cfg.PreemptorIterations), rc)
		if err != nil {
			return nil, err
		}
		s.runners = append(s.runners, p)
	}

	if cfg.Background != nil {
		b, err := core.NewBackgroundConsumer(cfg.Background.Name, workload(cfg.Background.Name, cfg.Background.Iterations), rc)
		if err != nil {
			return nil, err
		}
		s.runners = append(s.runners, b)
	}

	for _, task := range cfg.Tasks {
		if err := s.store.Register(task); err != nil {
			return nil, err
		}
		if cfg.SensorsActive {
			_ = s.store.SetSensor(task.Name, true)
		}
		r, err := core.NewPeriodicTaskRunner(task, s.store, workload(task.Name, cfg.TaskIterations), rc)
		if err != nil {
			return nil, err
		}
		s.runners = append(s.runners, r)
		s.periodics = append(s.periodics, r)
	}

	return s, nil
}

// ID identifies this run in logs and exported metrics.
func (s *System) ID() string { return s.id }

// Store returns the shared metrics store.
func (s *System) Store() *core.MetricsStore { return s.store }

// Runners returns every runner in start order.
func (s *System) Runners() []core.Runner {
	out := make([]core.Runner, len(s.runners))
	copy(out, s.runners)
	return out
}

// TaskRunners returns the monitored task runners in registration order.
func (s *System) TaskRunners() []*core.PeriodicTaskRunner {
	out := make([]*core.PeriodicTaskRunner, len(s.periodics))
	copy(out, s.periodics)
	return out
}

// Start locks memory and starts every runner. Any failure is fatal: the
// runners already started are stopped and the error is returned.
func (s *System) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return core.ErrRunnerClosed
	}
	if s.running {
		return nil
	}

	if err := s.locker.Lock(); err != nil {
		return err
	}

	for _, r := range s.runners {
		if err := r.Start(ctx); err != nil {
			s.stopStartedLocked()
			s.stopped = true
			return fmt.Errorf("start %s: %w", r.Name(), err)
		}
		s.started = append(s.started, r)
	}

	s.running = true
	s.logger.Info("monitor started",
		core.F("run_id", s.id),
		core.F("runners", len(s.runners)),
		core.F("tasks", len(s.periodics)),
	)
	return nil
}

// Stop stops every started runner in reverse start order. Safe to call more
// than once.
func (s *System) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	s.stopStartedLocked()
	if s.running {
		s.running = false
		s.logger.Info("monitor stopped", core.F("run_id", s.id))
	}
}

func (s *System) stopStartedLocked() {
	for i := len(s.started) - 1; i >= 0; i-- {
		s.started[i].Stop()
	}
	s.started = nil
}

// ToggleSensor flips the sensor flag of a monitored task.
func (s *System) ToggleSensor(name string) (bool, error) {
	active, err := s.store.ToggleSensor(name)
	if err != nil {
		return false, err
	}
	s.logger.Info("sensor toggled", core.F("task", name), core.F("active", active))
	return active, nil
}

// IsFatal reports whether err came from real-time setup and should end the
// process.
func IsFatal(err error) bool {
	return errors.Is(err, core.ErrPriorityElevation) ||
		errors.Is(err, core.ErrMemoryLock) ||
		errors.Is(err, core.ErrRealtimeUnsupported)
}
