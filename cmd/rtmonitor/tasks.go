package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
)

func tasksCommand() *cli.Command {
	return &cli.Command{
		Name:   "tasks",
		Usage:  "Print the task set the flags describe",
		Flags:  configFlags(),
		Action: tasksAction,
	}
}

func tasksAction(c *cli.Context) error {
	cfg, err := systemConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPRIORITY\tPERIOD\tDEADLINE\t(m,k)\tALLOWED MISSES")
	for _, t := range cfg.Tasks {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t(%d,%d)\t%d\n",
			t.Name, t.Priority, durationUS(t.Period), durationUS(t.Deadline), t.RequiredHits, t.WindowSize, t.AllowedMisses())
	}
	if p := cfg.Preemptor; p != nil {
		fmt.Fprintf(tw, "%s\t%d\t%s\t-\t-\t-\n", p.Name, p.Priority, durationUS(p.Period))
	}
	if b := cfg.Background; b != nil {
		fmt.Fprintf(tw, "%s\t%d\t-\t-\t-\t-\n", b.Name, 0)
	}
	return tw.Flush()
}
