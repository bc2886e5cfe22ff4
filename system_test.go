package rtmonitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Swind/go-rt-monitor/core"
)

type failingLocker struct{}

func (failingLocker) Lock() error {
	return errors.Join(core.ErrMemoryLock, errors.New("cannot allocate memory"))
}

// failAt rejects elevation to exactly one priority.
type failAt core.TaskPriority

func (f failAt) Elevate(p core.TaskPriority) error {
	if p == core.TaskPriority(f) {
		return core.ErrPriorityElevation
	}
	return nil
}

func fastConfig() Config {
	cfg := DefaultConfig().Unprivileged()
	for i := range cfg.Tasks {
		cfg.Tasks[i].Period = 5 * time.Millisecond
		cfg.Tasks[i].Deadline = 5 * time.Millisecond
	}
	cfg.Preemptor.Period = 3 * time.Millisecond
	cfg.TaskIterations = 1000
	cfg.PreemptorIterations = 1000
	cfg.Background.Iterations = 1000
	cfg.Logger = core.NewNoOpLogger()
	return cfg
}

// TestNewSystem_Defaults verifies assembly of the default monitor
// Given: DefaultConfig
// When: NewSystem is called
// Then: Both tasks are registered with inactive sensors and runners are
// ordered preemptor, background, airbag, abs
func TestNewSystem_Defaults(t *testing.T) {
	sys, err := NewSystem(DefaultConfig())
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}

	if _, err := uuid.Parse(sys.ID()); err != nil {
		t.Fatalf("ID() = %q is not a uuid: %v", sys.ID(), err)
	}

	tasks := sys.Store().Tasks()
	if len(tasks) != 2 || tasks[0] != "airbag" || tasks[1] != "abs" {
		t.Fatalf("Tasks() = %v, want [airbag abs]", tasks)
	}
	for _, snap := range sys.Store().Snapshot() {
		if snap.SensorActive {
			t.Fatalf("%s sensor active at startup", snap.Config.Name)
		}
	}

	want := []string{"preemptor", "background", "airbag", "abs"}
	runners := sys.Runners()
	if len(runners) != len(want) {
		t.Fatalf("got %d runners, want %d", len(runners), len(want))
	}
	for i, r := range runners {
		if r.Name() != want[i] {
			t.Fatalf("runner %d = %s, want %s", i, r.Name(), want[i])
		}
	}
	custom := DefaultConfig()
	custom.ID = "bench-7"
	if other, _ := NewSystem(custom); other.ID() != "bench-7" {
		t.Fatalf("ID() = %q, want bench-7", other.ID())
	}

	if len(sys.TaskRunners()) != 2 {
		t.Fatalf("TaskRunners() = %d, want 2", len(sys.TaskRunners()))
	}
}

func TestNewSystem_ThirdTaskIsConfiguration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tasks = append(cfg.Tasks, TaskConfig{
		Name: "esc", Period: 50 * time.Millisecond, Deadline: 40 * time.Millisecond,
		Priority: 85, WindowSize: 5, RequiredHits: 4,
	})
	sys, err := NewSystem(cfg)
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}
	if _, ok := sys.Store().TaskSnapshot("esc"); !ok {
		t.Fatal("third task not registered")
	}
}

func TestNewSystem_Errors(t *testing.T) {
	dup := DefaultConfig()
	dup.Tasks = append(dup.Tasks, core.AirbagTaskConfig())
	if _, err := NewSystem(dup); !errors.Is(err, core.ErrTaskExists) {
		t.Fatalf("duplicate task error = %v, want ErrTaskExists", err)
	}

	empty := DefaultConfig()
	empty.Tasks = nil
	if _, err := NewSystem(empty); !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("no tasks error = %v, want ErrInvalidConfig", err)
	}

	badPreemptor := DefaultConfig()
	badPreemptor.Preemptor.Period = 0
	if _, err := NewSystem(badPreemptor); !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("bad preemptor error = %v, want ErrInvalidConfig", err)
	}
}

// TestSystem_MemoryLockFailureIsFatal verifies mlockall failure aborts Start
// before any runner thread exists
func TestSystem_MemoryLockFailureIsFatal(t *testing.T) {
	cfg := fastConfig()
	cfg.MemoryLocker = failingLocker{}
	sys, err := NewSystem(cfg)
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}

	err = sys.Start(context.Background())
	if !errors.Is(err, core.ErrMemoryLock) || !IsFatal(err) {
		t.Fatalf("Start() = %v, want fatal ErrMemoryLock", err)
	}
	for _, r := range sys.Runners() {
		if r.Stats().Running {
			t.Fatalf("runner %s running after failed Start", r.Name())
		}
	}
	sys.Stop()
}

// TestSystem_ElevationFailureStopsStarted verifies partial startup is undone
// Given: A prioritizer that rejects the airbag priority
// When: Start is called
// Then: Start fails with ErrPriorityElevation and the interference runners
// already started are stopped
func TestSystem_ElevationFailureStopsStarted(t *testing.T) {
	cfg := fastConfig()
	cfg.Prioritizer = failAt(core.TaskPriorityAirbag)
	sys, err := NewSystem(cfg)
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}

	err = sys.Start(context.Background())
	if !errors.Is(err, core.ErrPriorityElevation) || !IsFatal(err) {
		t.Fatalf("Start() = %v, want fatal ErrPriorityElevation", err)
	}

	for _, r := range sys.Runners() {
		stats := r.Stats()
		if stats.Running {
			t.Fatalf("runner %s still running", r.Name())
		}
		if !r.IsClosed() && r.Name() != "abs" {
			t.Fatalf("runner %s not closed", r.Name())
		}
	}
	if err := sys.Start(context.Background()); !errors.Is(err, core.ErrRunnerClosed) {
		t.Fatalf("restart error = %v, want ErrRunnerClosed", err)
	}
}

// TestSystem_StartStop runs the whole pipeline unprivileged with short periods
func TestSystem_StartStop(t *testing.T) {
	cfg := fastConfig()
	cfg.SensorsActive = true
	sys, err := NewSystem(cfg)
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}

	if err := sys.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sys.Start(context.Background()); err != nil {
		t.Fatalf("second Start should be a no-op: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if active, err := sys.ToggleSensor("abs"); err != nil || active {
		t.Fatalf("ToggleSensor(abs) = %v, %v; want false, nil", active, err)
	}
	if _, err := sys.ToggleSensor("esc"); !errors.Is(err, core.ErrUnknownTask) {
		t.Fatalf("ToggleSensor(esc) error = %v, want ErrUnknownTask", err)
	}
	sys.Stop()
	sys.Stop()

	for _, r := range sys.Runners() {
		stats := r.Stats()
		if stats.Activations == 0 {
			t.Fatalf("runner %s never ran", r.Name())
		}
		if stats.Running || !stats.Closed {
			t.Fatalf("runner %s = %+v after Stop", r.Name(), stats)
		}
	}

	snap, _ := sys.Store().TaskSnapshot("airbag")
	if snap.Activations == 0 || snap.Metrics.WCRT < snap.Metrics.WCET {
		t.Fatalf("airbag snapshot = %+v", snap)
	}
}

func TestSystem_WorkloadOverride(t *testing.T) {
	cfg := fastConfig()
	cfg.Preemptor = nil
	cfg.Background = nil
	cfg.SensorsActive = true

	calls := make(chan struct{}, 1)
	cfg.Workloads = map[string]Workload{
		"abs": func(ctx context.Context) {
			select {
			case calls <- struct{}{}:
			default:
			}
		},
	}

	sys, err := NewSystem(cfg)
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}
	if len(sys.Runners()) != 2 {
		t.Fatalf("got %d runners with interference disabled, want 2", len(sys.Runners()))
	}
	if err := sys.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sys.Stop()

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("override workload never ran")
	}
}
