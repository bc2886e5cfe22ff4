package main

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/Swind/go-rt-monitor/core"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:   "check",
		Usage:  "Verify the process may use SCHED_FIFO and mlockall",
		Action: checkAction,
	}
}

func checkAction(c *cli.Context) error {
	failed := false

	elevated := make(chan error, 1)
	go func() {
		// The elevated thread is discarded when this goroutine exits.
		runtime.LockOSThread()
		elevated <- core.FIFOPrioritizer{}.Elevate(core.TaskPriorityInterference)
	}()
	if err := <-elevated; err != nil {
		failed = true
		fmt.Fprintf(c.App.Writer, "SCHED_FIFO priority %d: FAILED (%v)\n", core.TaskPriorityInterference, err)
	} else {
		fmt.Fprintf(c.App.Writer, "SCHED_FIFO priority %d: ok\n", core.TaskPriorityInterference)
	}

	if err := (core.MlockallLocker{}).Lock(); err != nil {
		failed = true
		fmt.Fprintf(c.App.Writer, "mlockall: FAILED (%v)\n", err)
	} else {
		fmt.Fprintln(c.App.Writer, "mlockall: ok")
	}

	if failed {
		return cli.Exit("real-time setup unavailable; use --unprivileged to simulate", 1)
	}
	return nil
}
