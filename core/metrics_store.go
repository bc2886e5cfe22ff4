package core

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrTaskExists is returned when registering a task name twice.
	ErrTaskExists = errors.New("task already registered")

	// ErrUnknownTask is returned for operations on a name never registered.
	ErrUnknownTask = errors.New("unknown task")
)

// TaskMetrics holds the timing statistics of one task.
// WCET, WCRT, HWM and DeadlineMisses never decrease.
type TaskMetrics struct {
	ExecTime        time.Duration // last activation
	WCET            time.Duration
	ResponseTime    time.Duration // last activation
	WCRT            time.Duration
	HWM             time.Duration // max over completed HWM batches
	DeadlineMisses  uint64
	ReleaseJitter   time.Duration // last activation: actual release - scheduled boundary
	SkippedReleases uint64
}

// Outcome is what one activation observed before it is recorded.
type Outcome struct {
	Active          bool
	ExecTime        time.Duration
	ResponseTime    time.Duration
	ReleaseJitter   time.Duration
	SkippedReleases int
}

// ActivationResult reports the side effects of recording one activation.
type ActivationResult struct {
	Missed     bool
	HWM        time.Duration
	HWMUpdated bool
	Window     WindowResult
	WindowDone bool
	Metrics    TaskMetrics
}

// TaskSnapshot is a consistent copy of one task's shared state.
type TaskSnapshot struct {
	Config       TaskConfig
	Metrics      TaskMetrics
	SensorActive bool

	Activations   uint64
	Windows       uint64
	FailedWindows uint64
	LastWindow    WindowResult
	HasWindow     bool

	// Progress of the window and HWM batch in flight.
	PendingActivations int
	PendingMisses      int
	PendingSamples     int
}

type taskState struct {
	cfg     TaskConfig
	metrics TaskMetrics
	sensor  bool
	window  *FirmnessWindow
	sampler *HWMSampler

	activations   uint64
	windows       uint64
	failedWindows uint64
	lastWindow    WindowResult
	hasWindow     bool
}

func (s *taskState) snapshot() TaskSnapshot {
	pendingActivations, pendingMisses := s.window.Pending()
	return TaskSnapshot{
		Config:             s.cfg,
		Metrics:            s.metrics,
		SensorActive:       s.sensor,
		Activations:        s.activations,
		Windows:            s.windows,
		FailedWindows:      s.failedWindows,
		LastWindow:         s.lastWindow,
		HasWindow:          s.hasWindow,
		PendingActivations: pendingActivations,
		PendingMisses:      pendingMisses,
		PendingSamples:     s.sampler.Pending(),
	}
}

// MetricsStore is the single exclusion domain for every task's metrics,
// sensor flag, firmness window and HWM batch. One coarse lock covers all
// tasks; critical sections are short compared to the task periods.
type MetricsStore struct {
	mu    sync.Mutex
	tasks map[string]*taskState
	order []string
}

// NewMetricsStore creates an empty store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{tasks: make(map[string]*taskState)}
}

// Register adds a task with zeroed metrics and an inactive sensor.
func (s *MetricsStore) Register(cfg TaskConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[cfg.Name]; ok {
		return fmt.Errorf("%w: %s", ErrTaskExists, cfg.Name)
	}
	s.tasks[cfg.Name] = &taskState{
		cfg:     cfg,
		window:  NewFirmnessWindow(cfg.RequiredHits, cfg.WindowSize),
		sampler: NewHWMSampler(),
	}
	s.order = append(s.order, cfg.Name)
	return nil
}

// Tasks returns registered task names in registration order.
func (s *MetricsStore) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SensorActive samples the sensor flag of a task. Unknown tasks read false.
func (s *MetricsStore) SensorActive(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[name]; ok {
		return t.sensor
	}
	return false
}

// SetSensor sets the sensor flag of a task.
func (s *MetricsStore) SetSensor(name string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	t.sensor = active
	return nil
}

// ToggleSensor flips the sensor flag of a task and returns the new value.
func (s *MetricsStore) ToggleSensor(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	t.sensor = !t.sensor
	return t.sensor, nil
}

// RecordActivation applies one activation outcome atomically:
//   - inactive: last exec/response reset to zero, worst-case values untouched
//   - active: last values set, WCET/WCRT ratcheted, response time fed to the
//     HWM sampler, a response strictly above the deadline counted as a miss
//   - the firmness window advances in both cases
func (s *MetricsStore) RecordActivation(name string, out Outcome) (ActivationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[name]
	if !ok {
		return ActivationResult{}, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}

	var res ActivationResult
	m := &t.metrics
	m.ReleaseJitter = out.ReleaseJitter
	if out.SkippedReleases > 0 {
		m.SkippedReleases += uint64(out.SkippedReleases)
	}

	if out.Active {
		m.ExecTime = out.ExecTime
		m.ResponseTime = out.ResponseTime
		if out.ExecTime > m.WCET {
			m.WCET = out.ExecTime
		}
		if out.ResponseTime > m.WCRT {
			m.WCRT = out.ResponseTime
		}
		res.HWM, res.HWMUpdated = t.sampler.Add(out.ResponseTime)
		m.HWM = res.HWM
		if out.ResponseTime > t.cfg.Deadline {
			m.DeadlineMisses++
			res.Missed = true
		}
	} else {
		m.ExecTime = 0
		m.ResponseTime = 0
		res.HWM = m.HWM
	}

	t.activations++
	if window, done := t.window.Record(res.Missed); done {
		t.windows++
		if window.Verdict == VerdictFail {
			t.failedWindows++
		}
		t.lastWindow = window
		t.hasWindow = true
		res.Window = window
		res.WindowDone = true
	}

	res.Metrics = *m
	return res, nil
}

// Snapshot copies every task's state in registration order.
func (s *MetricsStore) Snapshot() []TaskSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskSnapshot, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tasks[name].snapshot())
	}
	return out
}

// TaskSnapshot copies the state of a single task.
func (s *MetricsStore) TaskSnapshot(name string) (TaskSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return TaskSnapshot{}, false
	}
	return t.snapshot(), true
}
