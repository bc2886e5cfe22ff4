package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-rt-monitor/core"
)

// RunnerSnapshotProvider provides current runner stats snapshots.
type RunnerSnapshotProvider interface {
	Stats() core.RunnerStats
}

// StoreSnapshotProvider provides consistent task snapshots, e.g. *core.MetricsStore.
type StoreSnapshotProvider interface {
	Snapshot() []core.TaskSnapshot
}

// SnapshotPoller periodically exports runner Stats() and task snapshots into
// Prometheus gauges. Gauges mirror the values the console reporter shows.
type SnapshotPoller struct {
	interval time.Duration

	runnersMu sync.RWMutex
	runners   map[string]RunnerSnapshotProvider

	storesMu sync.RWMutex
	stores   []StoreSnapshotProvider

	runnerActivations *prom.GaugeVec
	runnerSkipped     *prom.GaugeVec
	runnerPanics      *prom.GaugeVec
	runnerRunning     *prom.GaugeVec
	runnerClosed      *prom.GaugeVec

	taskWCET          *prom.GaugeVec
	taskWCRT          *prom.GaugeVec
	taskHWM           *prom.GaugeVec
	taskMisses        *prom.GaugeVec
	taskSensor        *prom.GaugeVec
	taskFailedWindows *prom.GaugeVec
	taskPendingMisses *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	runnerGauge := func(name, help string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "rtmonitor",
			Name:      name,
			Help:      help,
		}, []string{"runner", "type"})
	}
	taskGauge := func(name, help string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "rtmonitor",
			Name:      name,
			Help:      help,
		}, []string{"task"})
	}

	p := &SnapshotPoller{
		interval: interval,
		runners:  make(map[string]RunnerSnapshotProvider),

		runnerActivations: runnerGauge("runner_activations", "Runner activation count snapshot."),
		runnerSkipped:     runnerGauge("runner_skipped_releases", "Runner skipped release count snapshot."),
		runnerPanics:      runnerGauge("runner_panics", "Runner workload panic count snapshot."),
		runnerRunning:     runnerGauge("runner_running", "Runner thread state (1=running, 0=stopped)."),
		runnerClosed:      runnerGauge("runner_closed", "Runner closed state (1=closed, 0=open)."),

		taskWCET:          taskGauge("task_wcet_seconds", "Worst-case execution time observed."),
		taskWCRT:          taskGauge("task_wcrt_seconds", "Worst-case response time observed."),
		taskHWM:           taskGauge("task_hwm_seconds", "High-water mark of batch maximum response times."),
		taskMisses:        taskGauge("task_deadline_misses", "Deadline misses since start."),
		taskSensor:        taskGauge("task_sensor_active", "Sensor state (1=active, 0=inactive)."),
		taskFailedWindows: taskGauge("task_failed_windows", "Completed (m,k)-firm windows that failed."),
		taskPendingMisses: taskGauge("task_window_pending_misses", "Misses in the window in progress."),
	}

	for _, g := range []**prom.GaugeVec{
		&p.runnerActivations, &p.runnerSkipped, &p.runnerPanics, &p.runnerRunning, &p.runnerClosed,
		&p.taskWCET, &p.taskWCRT, &p.taskHWM, &p.taskMisses, &p.taskSensor, &p.taskFailedWindows, &p.taskPendingMisses,
	} {
		registered, err := registerCollector(reg, *g)
		if err != nil {
			return nil, err
		}
		*g = registered
	}

	return p, nil
}

// AddRunner adds or replaces a runner snapshot provider by name.
func (p *SnapshotPoller) AddRunner(name string, provider RunnerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "runner")
	p.runnersMu.Lock()
	p.runners[name] = provider
	p.runnersMu.Unlock()
}

// AddStore adds a task snapshot provider.
func (p *SnapshotPoller) AddStore(provider StoreSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.storesMu.Lock()
	p.stores = append(p.stores, provider)
	p.storesMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.runnersMu.RLock()
	for name, provider := range p.runners {
		stats := provider.Stats()
		typeLabel := normalizeLabel(stats.Type, "unknown")
		p.runnerActivations.WithLabelValues(name, typeLabel).Set(float64(stats.Activations))
		p.runnerSkipped.WithLabelValues(name, typeLabel).Set(float64(stats.Skipped))
		p.runnerPanics.WithLabelValues(name, typeLabel).Set(float64(stats.Panics))
		p.runnerRunning.WithLabelValues(name, typeLabel).Set(boolGauge(stats.Running))
		p.runnerClosed.WithLabelValues(name, typeLabel).Set(boolGauge(stats.Closed))
	}
	p.runnersMu.RUnlock()

	p.storesMu.RLock()
	for _, store := range p.stores {
		for _, snap := range store.Snapshot() {
			task := normalizeLabel(snap.Config.Name, "unknown")
			p.taskWCET.WithLabelValues(task).Set(snap.Metrics.WCET.Seconds())
			p.taskWCRT.WithLabelValues(task).Set(snap.Metrics.WCRT.Seconds())
			p.taskHWM.WithLabelValues(task).Set(snap.Metrics.HWM.Seconds())
			p.taskMisses.WithLabelValues(task).Set(float64(snap.Metrics.DeadlineMisses))
			p.taskSensor.WithLabelValues(task).Set(boolGauge(snap.SensorActive))
			p.taskFailedWindows.WithLabelValues(task).Set(float64(snap.FailedWindows))
			p.taskPendingMisses.WithLabelValues(task).Set(float64(snap.PendingMisses))
		}
	}
	p.storesMu.RUnlock()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
