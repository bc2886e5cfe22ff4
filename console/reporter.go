package console

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Swind/go-rt-monitor/core"
)

// DefaultReportInterval is the period of the console display.
const DefaultReportInterval = 2 * time.Second

// SnapshotSource provides consistent task snapshots, e.g. *core.MetricsStore.
type SnapshotSource interface {
	Snapshot() []core.TaskSnapshot
}

// Reporter prints a snapshot of every task at a fixed interval. It only reads.
type Reporter struct {
	source   SnapshotSource
	out      io.Writer
	interval time.Duration
}

// NewReporter creates a reporter writing to out (os.Stdout when nil).
func NewReporter(source SnapshotSource, out io.Writer, interval time.Duration) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	return &Reporter{source: source, out: out, interval: interval}
}

// Run renders immediately and then every interval until ctx is done.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.Report(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Report renders one snapshot to the output.
func (r *Reporter) Report() error {
	var buf bytes.Buffer
	Render(&buf, r.source.Snapshot())
	_, err := r.out.Write(buf.Bytes())
	return err
}

// Render writes the display block for snaps. Durations are in microseconds.
func Render(w io.Writer, snaps []core.TaskSnapshot) {
	fmt.Fprintln(w, "\n----- Display Update -----")
	for _, s := range snaps {
		m := s.Metrics
		fmt.Fprintf(w, "%s:\n", s.Config.Name)
		fmt.Fprintf(w, "  State: %s\n", sensorState(s.SensorActive))
		fmt.Fprintf(w, "  Exec time: %d us\n", m.ExecTime.Microseconds())
		fmt.Fprintf(w, "  WCRT: %d us\n", m.WCRT.Microseconds())
		fmt.Fprintf(w, "  Deadline: %d us\n", s.Config.Deadline.Microseconds())
		fmt.Fprintf(w, "  WCET: %d us\n", m.WCET.Microseconds())
		fmt.Fprintf(w, "  HWM (max WCRT): %d us\n", m.HWM.Microseconds())
		fmt.Fprintf(w, "  Deadline misses: %d\n", m.DeadlineMisses)
		if s.HasWindow {
			fmt.Fprintf(w, "  Last (%d,%d) window: %s, %d misses\n",
				s.Config.RequiredHits, s.Config.WindowSize, s.LastWindow.Verdict, s.LastWindow.Misses)
		} else {
			fmt.Fprintf(w, "  Last (%d,%d) window: none\n", s.Config.RequiredHits, s.Config.WindowSize)
		}
		if m.SkippedReleases > 0 {
			fmt.Fprintf(w, "  Skipped releases: %d\n", m.SkippedReleases)
		}
	}
	fmt.Fprintln(w, "--------------------------")
}
