// Package rtmonitor runs fixed-priority periodic tasks under the host's
// preemptive real-time scheduler and checks their timing.
//
// Each monitored task (airbag, ABS) runs on its own OS thread in SCHED_FIFO
// at a fixed period and priority. Every activation records execution time,
// response time, worst cases, a batch high-water mark and deadline misses,
// and feeds an (m,k)-firm window that reports PASS or FAIL every k
// activations. A higher-priority preemptor and a best-effort CPU consumer
// provide interference.
//
// # Quick Start
//
//	sys, err := rtmonitor.NewSystem(rtmonitor.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := sys.Start(ctx); err != nil {
//		log.Fatal(err) // elevation or mlockall failed
//	}
//	defer sys.Stop()
//
//	sys.ToggleSensor("airbag")
//	for _, snap := range sys.Store().Snapshot() {
//		fmt.Println(snap.Config.Name, snap.Metrics.WCRT)
//	}
//
// # Key Concepts
//
// PeriodicTaskRunner: a dedicated thread releasing at anchor + n*period.
// When an activation overruns, whole periods are skipped instead of
// releasing a catch-up burst.
//
// MetricsStore: the single exclusion domain shared by the runners, the
// console reporter and the input surface. Readers always see a consistent
// snapshot.
//
// FirmnessWindow and HWMSampler: the (m,k)-firm evaluator and the batch
// maximum of 20 response times.
//
// # Privileges
//
// Starting the default system requires CAP_SYS_NICE and CAP_IPC_LOCK (or
// root). A failed elevation is fatal. Use Config.Unprivileged to run the
// same pipeline without real-time scheduling, for example in CI.
//
// For more details, see https://github.com/Swind/go-rt-monitor
package rtmonitor
