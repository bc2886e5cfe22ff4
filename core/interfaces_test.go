package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Test PanicHandler
// =============================================================================

// TestPanicHandler is a mock panic handler for testing
type TestPanicHandler struct {
	mu    sync.Mutex
	calls []PanicCall
}

type PanicCall struct {
	RunnerName string
	PanicInfo  any
	Stack      []byte
}

func NewTestPanicHandler() *TestPanicHandler {
	return &TestPanicHandler{calls: make([]PanicCall, 0)}
}

func (h *TestPanicHandler) HandlePanic(ctx context.Context, runnerName string, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, PanicCall{
		RunnerName: runnerName,
		PanicInfo:  panicInfo,
		Stack:      stackTrace,
	})
}

func (h *TestPanicHandler) GetCalls() []PanicCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]PanicCall(nil), h.calls...)
}

func (h *TestPanicHandler) CallCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func TestDefaultPanicHandler(t *testing.T) {
	// Given: A DefaultPanicHandler
	handler := &DefaultPanicHandler{}

	// When: HandlePanic is called
	handler.HandlePanic(context.Background(), "airbag", "test panic", []byte("stack trace"))

	// Then: No panic should occur
}

// =============================================================================
// Test Metrics
// =============================================================================

func TestNilMetrics(t *testing.T) {
	// Given: A NilMetrics
	metrics := &NilMetrics{}

	// When: All methods are called
	metrics.RecordActivation(ActivationRecord{Task: "airbag"})
	metrics.RecordWindow("airbag", WindowResult{Activations: 20, Misses: 11, Verdict: VerdictFail})
	metrics.RecordHWM("airbag", time.Millisecond)
	metrics.RecordSkippedReleases("preemptor", 2)
	metrics.RecordTaskPanic("abs", "panic")

	// Then: No panic should occur (all methods are no-ops)
}

// =============================================================================
// Test RunnerConfig
// =============================================================================

func TestDefaultRunnerConfig(t *testing.T) {
	// Given: Default config
	config := DefaultRunnerConfig()

	// Then: All collaborators should be set to their defaults
	if _, ok := config.Clock.(MonotonicClock); !ok {
		t.Errorf("Clock should be MonotonicClock, got %T", config.Clock)
	}
	if _, ok := config.Prioritizer.(FIFOPrioritizer); !ok {
		t.Errorf("Prioritizer should be FIFOPrioritizer, got %T", config.Prioritizer)
	}
	if _, ok := config.Logger.(*DefaultLogger); !ok {
		t.Errorf("Logger should be *DefaultLogger, got %T", config.Logger)
	}
	if _, ok := config.Metrics.(*NilMetrics); !ok {
		t.Errorf("Metrics should be *NilMetrics, got %T", config.Metrics)
	}
	if _, ok := config.PanicHandler.(*DefaultPanicHandler); !ok {
		t.Errorf("PanicHandler should be *DefaultPanicHandler, got %T", config.PanicHandler)
	}
	if config.HistoryCapacity != defaultActivationHistoryCapacity {
		t.Errorf("HistoryCapacity = %d, want %d", config.HistoryCapacity, defaultActivationHistoryCapacity)
	}
}

func TestRunnerConfig_PartialConfig(t *testing.T) {
	// Given: Partial config (only Clock and PanicHandler set)
	clock := NewManualClock(0)
	panicHandler := NewTestPanicHandler()
	config := &RunnerConfig{Clock: clock, PanicHandler: panicHandler}

	// When: The config is resolved
	resolved := config.resolve()

	// Then: Set fields are kept and the rest defaulted
	if resolved.Clock != clock {
		t.Error("Clock not kept")
	}
	if resolved.PanicHandler != panicHandler {
		t.Error("PanicHandler not kept")
	}
	if resolved.Prioritizer == nil || resolved.Logger == nil || resolved.Metrics == nil {
		t.Errorf("nil collaborators after resolve: %+v", resolved)
	}
	if resolved.HistoryCapacity != defaultActivationHistoryCapacity {
		t.Errorf("HistoryCapacity = %d, want default", resolved.HistoryCapacity)
	}

	// And: The caller's config is not mutated
	if config.Logger != nil {
		t.Error("resolve mutated the caller's config")
	}
}

func TestRunnerConfig_NilResolves(t *testing.T) {
	var config *RunnerConfig
	resolved := config.resolve()
	if resolved.Clock == nil || resolved.PanicHandler == nil {
		t.Fatalf("nil config resolved to %+v", resolved)
	}
}

// =============================================================================
// Integration Test: runner with custom handlers
// =============================================================================

func TestPeriodicTaskRunner_WithCustomHandlers(t *testing.T) {
	// Given: A runner whose workload panics on its second activation
	cfg := ABSTaskConfig()
	store := newTestStore(t, cfg)
	_ = store.SetSensor(cfg.Name, true)

	clock := NewManualClock(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	metrics := newRecordingMetrics(4, cancel)
	panicHandler := NewTestPanicHandler()

	calls := 0
	workload := func(ctx context.Context) {
		calls++
		if calls == 2 {
			panic("adc read failed")
		}
		clock.Advance(time.Millisecond)
	}

	rc := manualRunnerConfig(clock, metrics)
	rc.PanicHandler = panicHandler
	runner, err := NewPeriodicTaskRunner(cfg, store, workload, rc)
	if err != nil {
		t.Fatalf("NewPeriodicTaskRunner failed: %v", err)
	}

	// When: Four activations run
	if err := runner.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	metrics.wait(t)
	runner.Stop()

	// Then: The panic reached the handler once with its runner name and stack
	got := panicHandler.GetCalls()
	if len(got) != 1 {
		t.Fatalf("panic handler calls = %d, want 1", len(got))
	}
	if got[0].RunnerName != cfg.Name || got[0].PanicInfo != "adc read failed" || len(got[0].Stack) == 0 {
		t.Fatalf("panic call = %+v", got[0])
	}

	// And: The runner kept its period and recorded the other activations
	snap, _ := store.TaskSnapshot(cfg.Name)
	if snap.Activations != 4 {
		t.Fatalf("Activations = %d, want 4", snap.Activations)
	}
	if snap.Metrics.WCET != time.Millisecond {
		t.Fatalf("WCET = %v, want 1ms", snap.Metrics.WCET)
	}
}
