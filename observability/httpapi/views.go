package httpapi

import "github.com/Swind/go-rt-monitor/core"

// Durations are reported in microseconds, the resolution of the clock.

// TaskView is the JSON form of a core.TaskSnapshot.
type TaskView struct {
	Name         string `json:"name"`
	Priority     int    `json:"priority"`
	PeriodUS     int64  `json:"period_us"`
	DeadlineUS   int64  `json:"deadline_us"`
	WindowSize   int    `json:"k"`
	RequiredHits int    `json:"m"`
	SensorActive bool   `json:"sensor_active"`

	ExecTimeUS      int64  `json:"exec_time_us"`
	WCETUS          int64  `json:"wcet_us"`
	ResponseTimeUS  int64  `json:"response_time_us"`
	WCRTUS          int64  `json:"wcrt_us"`
	HWMUS           int64  `json:"hwm_us"`
	DeadlineMisses  uint64 `json:"deadline_misses"`
	ReleaseJitterUS int64  `json:"release_jitter_us"`
	SkippedReleases uint64 `json:"skipped_releases"`

	Activations   uint64      `json:"activations"`
	Windows       uint64      `json:"windows"`
	FailedWindows uint64      `json:"failed_windows"`
	LastWindow    *WindowView `json:"last_window,omitempty"`

	PendingActivations int `json:"pending_activations"`
	PendingMisses      int `json:"pending_misses"`
	PendingHWMSamples  int `json:"pending_hwm_samples"`
}

// WindowView is the JSON form of a core.WindowResult.
type WindowView struct {
	Activations int    `json:"activations"`
	Misses      int    `json:"misses"`
	Verdict     string `json:"verdict"`
}

// NewTaskView converts a snapshot.
func NewTaskView(s core.TaskSnapshot) TaskView {
	v := TaskView{
		Name:         s.Config.Name,
		Priority:     int(s.Config.Priority),
		PeriodUS:     s.Config.Period.Microseconds(),
		DeadlineUS:   s.Config.Deadline.Microseconds(),
		WindowSize:   s.Config.WindowSize,
		RequiredHits: s.Config.RequiredHits,
		SensorActive: s.SensorActive,

		ExecTimeUS:      s.Metrics.ExecTime.Microseconds(),
		WCETUS:          s.Metrics.WCET.Microseconds(),
		ResponseTimeUS:  s.Metrics.ResponseTime.Microseconds(),
		WCRTUS:          s.Metrics.WCRT.Microseconds(),
		HWMUS:           s.Metrics.HWM.Microseconds(),
		DeadlineMisses:  s.Metrics.DeadlineMisses,
		ReleaseJitterUS: s.Metrics.ReleaseJitter.Microseconds(),
		SkippedReleases: s.Metrics.SkippedReleases,

		Activations:   s.Activations,
		Windows:       s.Windows,
		FailedWindows: s.FailedWindows,

		PendingActivations: s.PendingActivations,
		PendingMisses:      s.PendingMisses,
		PendingHWMSamples:  s.PendingSamples,
	}
	if s.HasWindow {
		v.LastWindow = &WindowView{
			Activations: s.LastWindow.Activations,
			Misses:      s.LastWindow.Misses,
			Verdict:     s.LastWindow.Verdict.String(),
		}
	}
	return v
}

// RunnerView is the JSON form of core.RunnerStats.
type RunnerView struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Priority      int    `json:"priority"`
	PeriodUS      int64  `json:"period_us,omitempty"`
	Activations   uint64 `json:"activations"`
	Skipped       uint64 `json:"skipped_releases"`
	Panics        uint64 `json:"panics"`
	Running       bool   `json:"running"`
	Closed        bool   `json:"closed"`
	LastReleaseUS int64  `json:"last_release_us,omitempty"`
}

// NewRunnerView converts runner stats.
func NewRunnerView(s core.RunnerStats) RunnerView {
	return RunnerView{
		Name:          s.Name,
		Type:          s.Type,
		Priority:      int(s.Priority),
		PeriodUS:      s.Period.Microseconds(),
		Activations:   s.Activations,
		Skipped:       s.Skipped,
		Panics:        s.Panics,
		Running:       s.Running,
		Closed:        s.Closed,
		LastReleaseUS: s.LastRelease.Microseconds(),
	}
}
