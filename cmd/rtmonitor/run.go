package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	rtmonitor "github.com/Swind/go-rt-monitor"
	"github.com/Swind/go-rt-monitor/console"
	"github.com/Swind/go-rt-monitor/core"
	"github.com/Swind/go-rt-monitor/observability/httpapi"
	obs "github.com/Swind/go-rt-monitor/observability/prometheus"
)

func runCommand() *cli.Command {
	flags := append(configFlags(), loggingFlags()...)
	flags = append(flags,
		&cli.DurationFlag{
			Name:    "report-interval",
			Value:   console.DefaultReportInterval,
			Usage:   "console display interval",
			EnvVars: envName("report-interval"),
		},
		&cli.StringFlag{
			Name:    "metrics-addr",
			Usage:   "serve /metrics and /api on this address, e.g. :2112 (disabled when empty)",
			EnvVars: envName("metrics-addr"),
		},
		&cli.BoolFlag{
			Name:    "no-input",
			Usage:   "do not read the keyboard; run until SIGINT/SIGTERM",
			EnvVars: envName("no-input"),
		},
	)

	return &cli.Command{
		Name:   "run",
		Usage:  "Start the monitored tasks, interference load and console",
		Flags:  flags,
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	// 1. Config
	cfg, err := systemConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	cfg.ID = uuid.NewString()

	// 2. Terminal: raw mode turns off output translation, so wrap writers
	var stdout, stderr io.Writer = os.Stdout, os.Stderr
	interactive := !c.Bool("no-input") && console.IsTerminal(os.Stdin)
	if interactive {
		restore, err := console.RawTerminal(os.Stdin)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer restore()
		stdout, stderr = console.CRLFWriter{W: os.Stdout}, console.CRLFWriter{W: os.Stderr}
	}

	slogger, err := newLogger(c, stderr)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logger := core.NewSlogLogger(slogger.With("run_id", cfg.ID))
	cfg.Logger = logger

	// 3. Metrics
	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	runReg := prom.WrapRegistererWith(prom.Labels{"run_id": cfg.ID}, reg)

	exporter, err := obs.NewMetricsExporter("rtmonitor", runReg, obs.ExporterOptions{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("metrics: %v", err), 1)
	}
	cfg.Metrics = exporter

	// 4. System
	sys, err := rtmonitor.NewSystem(cfg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sys.Start(ctx); err != nil {
		if rtmonitor.IsFatal(err) {
			logger.Error("real-time setup failed", core.F("error", err))
			return cli.Exit(fmt.Sprintf("%v\nrun as root or with CAP_SYS_NICE and CAP_IPC_LOCK, or pass --unprivileged", err), 1)
		}
		return cli.Exit(err.Error(), 1)
	}
	defer sys.Stop()

	poller, err := obs.NewSnapshotPoller(runReg, time.Second)
	if err != nil {
		return cli.Exit(fmt.Sprintf("metrics: %v", err), 1)
	}
	poller.AddStore(sys.Store())
	for _, r := range sys.Runners() {
		poller.AddRunner(r.Name(), r)
	}
	poller.Start(ctx)
	defer poller.Stop()

	// 5. HTTP surface
	if addr := c.String("metrics-addr"); addr != "" {
		api, err := httpapi.New(httpapi.Options{
			Store:    sys.Store(),
			Runners:  sys.Runners,
			Gatherer: reg,
			RunID:    sys.ID(),
			Logger:   logger,
		})
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		go func() {
			if err := api.ListenAndServe(ctx, addr); err != nil {
				logger.Error("http api stopped", core.F("error", err))
			}
		}()
	}

	// 6. Console
	reporter := console.NewReporter(sys.Store(), stdout, c.Duration("report-interval"))
	go func() {
		_ = reporter.Run(ctx)
	}()

	if !interactive {
		<-ctx.Done()
		return nil
	}

	input := console.NewInputSurface(sys, console.InputOptions{Out: stdout, Logger: logger})
	err = input.Run(ctx, os.Stdin)
	switch {
	case err == nil, errors.Is(err, console.ErrQuit), errors.Is(err, context.Canceled):
		return nil
	default:
		return cli.Exit(err.Error(), 1)
	}
}
