package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-rt-monitor/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// DurationBuckets apply to exec and response time histograms.
	DurationBuckets []float64
}

// DefaultDurationBuckets spans 0.5ms to 256ms, around a 100ms deadline.
var DefaultDurationBuckets = prom.ExponentialBuckets(0.0005, 2, 10)

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	execSeconds     *prom.HistogramVec
	responseSeconds *prom.HistogramVec
	jitterSeconds   *prom.GaugeVec
	activations     *prom.CounterVec
	deadlineMisses  *prom.CounterVec
	windows         *prom.CounterVec
	windowMisses    *prom.GaugeVec
	hwmSeconds      *prom.GaugeVec
	skippedReleases *prom.CounterVec
	taskPanicTotal  *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "rtmonitor"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = DefaultDurationBuckets
	}

	execVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "exec_time_seconds",
		Help:      "Execution time of active activations in seconds.",
		Buckets:   buckets,
	}, []string{"task"})
	responseVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "response_time_seconds",
		Help:      "Response time of active activations, measured from release, in seconds.",
		Buckets:   buckets,
	}, []string{"task"})
	jitterVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "release_jitter_seconds",
		Help:      "Delay of the last release behind its period boundary.",
	}, []string{"task"})
	activationVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "activations_total",
		Help:      "Total number of activations by outcome.",
	}, []string{"task", "state"})
	missVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "deadline_miss_total",
		Help:      "Total number of activations whose response time exceeded the deadline.",
	}, []string{"task"})
	windowVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "firm_windows_total",
		Help:      "Completed (m,k)-firm windows by verdict.",
	}, []string{"task", "verdict"})
	windowMissVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "firm_window_misses",
		Help:      "Deadline misses in the last completed window.",
	}, []string{"task"})
	hwmVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "hwm_seconds",
		Help:      "High-water mark of per-batch maximum response times.",
	}, []string{"task"})
	skippedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "skipped_releases_total",
		Help:      "Period boundaries skipped after an overrun.",
	}, []string{"runner"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of workload panics.",
	}, []string{"runner"})

	var err error
	if execVec, err = registerCollector(reg, execVec); err != nil {
		return nil, err
	}
	if responseVec, err = registerCollector(reg, responseVec); err != nil {
		return nil, err
	}
	if jitterVec, err = registerCollector(reg, jitterVec); err != nil {
		return nil, err
	}
	if activationVec, err = registerCollector(reg, activationVec); err != nil {
		return nil, err
	}
	if missVec, err = registerCollector(reg, missVec); err != nil {
		return nil, err
	}
	if windowVec, err = registerCollector(reg, windowVec); err != nil {
		return nil, err
	}
	if windowMissVec, err = registerCollector(reg, windowMissVec); err != nil {
		return nil, err
	}
	if hwmVec, err = registerCollector(reg, hwmVec); err != nil {
		return nil, err
	}
	if skippedVec, err = registerCollector(reg, skippedVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		execSeconds:     execVec,
		responseSeconds: responseVec,
		jitterSeconds:   jitterVec,
		activations:     activationVec,
		deadlineMisses:  missVec,
		windows:         windowVec,
		windowMisses:    windowMissVec,
		hwmSeconds:      hwmVec,
		skippedReleases: skippedVec,
		taskPanicTotal:  panicVec,
	}, nil
}

// RecordActivation records one activation of a monitored task.
func (m *MetricsExporter) RecordActivation(record core.ActivationRecord) {
	if m == nil {
		return
	}
	task := normalizeLabel(record.Task, "unknown")
	m.activations.WithLabelValues(task, activationState(record)).Inc()
	m.jitterSeconds.WithLabelValues(task).Set(record.Jitter().Seconds())
	if !record.Active {
		return
	}
	m.execSeconds.WithLabelValues(task).Observe(record.ExecTime.Seconds())
	m.responseSeconds.WithLabelValues(task).Observe(record.ResponseTime.Seconds())
	if record.Missed {
		m.deadlineMisses.WithLabelValues(task).Inc()
	}
}

// RecordWindow records a completed (m,k)-firm window.
func (m *MetricsExporter) RecordWindow(taskName string, result core.WindowResult) {
	if m == nil {
		return
	}
	task := normalizeLabel(taskName, "unknown")
	m.windows.WithLabelValues(task, result.Verdict.String()).Inc()
	m.windowMisses.WithLabelValues(task).Set(float64(result.Misses))
}

// RecordHWM records a raised high-water mark.
func (m *MetricsExporter) RecordHWM(taskName string, hwm time.Duration) {
	if m == nil {
		return
	}
	m.hwmSeconds.WithLabelValues(normalizeLabel(taskName, "unknown")).Set(hwm.Seconds())
}

// RecordSkippedReleases records boundaries skipped after an overrun.
func (m *MetricsExporter) RecordSkippedReleases(runnerName string, skipped int) {
	if m == nil || skipped <= 0 {
		return
	}
	m.skippedReleases.WithLabelValues(normalizeLabel(runnerName, "unknown")).Add(float64(skipped))
}

// RecordTaskPanic records workload panic events.
func (m *MetricsExporter) RecordTaskPanic(runnerName string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(runnerName, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func activationState(record core.ActivationRecord) string {
	switch {
	case record.Panicked:
		return "panicked"
	case record.Active:
		return "active"
	default:
		return "inactive"
	}
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
