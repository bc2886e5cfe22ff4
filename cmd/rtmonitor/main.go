// Command rtmonitor runs the airbag/ABS real-time monitor.
//
// Usage:
//
//	sudo rtmonitor run --metrics-addr :2112
//	rtmonitor run --unprivileged --log-format json
//	rtmonitor check
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "rtmonitor",
		Usage: "Fixed-priority periodic task monitor with (m,k)-firm deadline tracking",
		Commands: []*cli.Command{
			runCommand(),
			checkCommand(),
			tasksCommand(),
		},
		DefaultCommand: "run",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
