package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	rtmonitor "github.com/Swind/go-rt-monitor"
	"github.com/Swind/go-rt-monitor/core"
)

// envName maps a flag name to its RTMON_* environment variable.
func envName(flag string) []string {
	return []string{"RTMON_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))}
}

// taskFlags declares the period, deadline, priority and (m,k) flags of one task.
func taskFlags(def core.TaskConfig) []cli.Flag {
	name := def.Name
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    name + "-period",
			Value:   def.Period,
			Usage:   fmt.Sprintf("activation period of %s", name),
			EnvVars: envName(name + "-period"),
		},
		&cli.DurationFlag{
			Name:    name + "-deadline",
			Value:   def.Deadline,
			Usage:   fmt.Sprintf("relative deadline of %s", name),
			EnvVars: envName(name + "-deadline"),
		},
		&cli.IntFlag{
			Name:    name + "-priority",
			Value:   int(def.Priority),
			Usage:   fmt.Sprintf("SCHED_FIFO priority of %s", name),
			EnvVars: envName(name + "-priority"),
		},
		&cli.IntFlag{
			Name:    name + "-k",
			Value:   def.WindowSize,
			Usage:   fmt.Sprintf("(m,k)-firm window size of %s", name),
			EnvVars: envName(name + "-k"),
		},
		&cli.IntFlag{
			Name:    name + "-m",
			Value:   def.RequiredHits,
			Usage:   fmt.Sprintf("deadlines %s must meet per window", name),
			EnvVars: envName(name + "-m"),
		},
	}
}

func taskConfigFromFlags(c *cli.Context, def core.TaskConfig) core.TaskConfig {
	name := def.Name
	return core.TaskConfig{
		Name:         name,
		Period:       c.Duration(name + "-period"),
		Deadline:     c.Duration(name + "-deadline"),
		Priority:     core.TaskPriority(c.Int(name + "-priority")),
		WindowSize:   c.Int(name + "-k"),
		RequiredHits: c.Int(name + "-m"),
	}
}

func configFlags() []cli.Flag {
	preemptor := core.DefaultPreemptorConfig()

	flags := append(taskFlags(core.AirbagTaskConfig()), taskFlags(core.ABSTaskConfig())...)
	return append(flags,
		&cli.IntFlag{
			Name:    "task-iterations",
			Value:   core.DefaultTaskIterations,
			Usage:   "counting-loop iterations per monitored activation",
			EnvVars: envName("task-iterations"),
		},
		&cli.DurationFlag{
			Name:    "preemptor-period",
			Value:   preemptor.Period,
			Usage:   "period of the high-priority interference task",
			EnvVars: envName("preemptor-period"),
		},
		&cli.IntFlag{
			Name:    "preemptor-priority",
			Value:   int(preemptor.Priority),
			Usage:   "SCHED_FIFO priority of the interference task",
			EnvVars: envName("preemptor-priority"),
		},
		&cli.IntFlag{
			Name:    "preemptor-iterations",
			Value:   core.DefaultPreemptorIterations,
			Usage:   "counting-loop iterations per preemptor activation",
			EnvVars: envName("preemptor-iterations"),
		},
		&cli.BoolFlag{
			Name:    "no-preemptor",
			Usage:   "disable the interference task",
			EnvVars: envName("no-preemptor"),
		},
		&cli.IntFlag{
			Name:    "background-iterations",
			Value:   core.DefaultBackgroundIterations,
			Usage:   "counting-loop iterations per background chunk",
			EnvVars: envName("background-iterations"),
		},
		&cli.BoolFlag{
			Name:    "no-background",
			Usage:   "disable the best-effort CPU consumer",
			EnvVars: envName("no-background"),
		},
		&cli.BoolFlag{
			Name:    "sensors-active",
			Usage:   "start with every sensor active",
			EnvVars: envName("sensors-active"),
		},
		&cli.BoolFlag{
			Name:    "unprivileged",
			Usage:   "run without SCHED_FIFO and mlockall; timing is then best effort",
			EnvVars: envName("unprivileged"),
		},
	)
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "debug, info, warn or error",
			EnvVars: envName("log-level"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "text or json",
			EnvVars: envName("log-format"),
		},
	}
}

// systemConfig builds the monitor config from flags.
func systemConfig(c *cli.Context) (rtmonitor.Config, error) {
	cfg := rtmonitor.DefaultConfig()
	cfg.Tasks = []core.TaskConfig{
		taskConfigFromFlags(c, core.AirbagTaskConfig()),
		taskConfigFromFlags(c, core.ABSTaskConfig()),
	}
	cfg.TaskIterations = c.Int("task-iterations")
	cfg.SensorsActive = c.Bool("sensors-active")

	if c.Bool("no-preemptor") {
		cfg.Preemptor = nil
	} else {
		cfg.Preemptor.Period = c.Duration("preemptor-period")
		cfg.Preemptor.Priority = core.TaskPriority(c.Int("preemptor-priority"))
		cfg.PreemptorIterations = c.Int("preemptor-iterations")
	}
	if c.Bool("no-background") {
		cfg.Background = nil
	} else {
		cfg.Background.Iterations = c.Int("background-iterations")
	}
	if c.Bool("unprivileged") {
		cfg = cfg.Unprivileged()
	}

	for _, task := range cfg.Tasks {
		if err := task.Validate(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// newLogger builds the slog logger selected by the logging flags.
func newLogger(c *cli.Context, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return nil, fmt.Errorf("log-level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch c.String("log-format") {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log-format: unknown format %q", c.String("log-format"))
	}
}

func durationUS(d time.Duration) string {
	return fmt.Sprintf("%dus", d.Microseconds())
}
