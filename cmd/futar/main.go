// Command futar shows nearby public transport stops and departures from
// the BKK FUTÁR API in a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pebfutar.app/internal/app"
	"pebfutar.app/internal/appconf"
	"pebfutar.app/internal/clock"
	"pebfutar.app/internal/console"
	"pebfutar.app/internal/logging"
	"pebfutar.app/internal/metrics"
	"pebfutar.app/internal/presentation"
	"pebfutar.app/internal/transit"
	"pebfutar.app/internal/webui"
)

// fakeTimeEnv pins the clock for demo runs.
const fakeTimeEnv = "FUTAR_FAKE_TIME"

type options struct {
	configPath string
	envFile    string
	language   string
	once       bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("futar", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with FUTAR_* variables")
	fs.StringVar(&opts.language, "lang", "", "UI language (en or hu), overrides the config")
	fs.BoolVar(&opts.once, "once", false, "print the nearby stops and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// cli carries the process streams. transport is nil outside tests.
type cli struct {
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	transport transit.Transport
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "futar:", err)
		stop()
		os.Exit(1)
	}
}

func (c cli) run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args, c.stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg, err := appconf.Load(opts.configPath, opts.envFile)
	if err != nil {
		return err
	}
	if opts.language != "" {
		cfg.Language = opts.language
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger := logging.New(c.stderr, logging.ParseLevel(cfg.LogLevel, slog.LevelInfo), cfg.LogFormat)
	m := metrics.NewWithLogger(logger)
	hub := webui.NewHub(m, logger)
	screen := console.NewRenderer(c.stdout)

	var clk clock.Clock
	if _, ok := os.LookupEnv(fakeTimeEnv); ok {
		tz, err := cfg.TimeLocation()
		if err != nil {
			return err
		}
		clk = clock.NewEnvironmentClock(fakeTimeEnv, tz)
	}

	a, err := app.Build(ctx, *cfg, app.Options{
		Renderer:  presentation.Renderers{screen, hub},
		Transport: c.transport,
		Clock:     clk,
		Logger:    logger,
		Metrics:   m,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan error, 1)
	go func() { loopDone <- a.Run(loopCtx) }()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	if opts.once {
		return runOnce(ctx, a, cfg.Location.Timeout+cfg.API.Timeout)
	}

	if cfg.Debug.Addr != "" {
		ui := webui.New(a, hub)
		go func() {
			if err := ui.Serve(loopCtx, cfg.Debug.Addr); err != nil {
				logging.LogError(logger, "debug server stopped", err, slog.String("addr", cfg.Debug.Addr))
			}
		}()
	}

	return console.New(a, screen, c.stdout, logger).Run(ctx, c.stdin)
}

// runOnce refreshes the stops flow and waits for it to settle. The console
// renderer has printed the result by then.
func runOnce(ctx context.Context, a *app.Application, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.Do(ctx, (*presentation.Controller).RefreshStops); err != nil {
		return err
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("no stops before timeout: %w", ctx.Err())
		case <-ticker.C:
		}

		snap, err := a.Snapshot(ctx)
		if err != nil {
			return err
		}
		state := snap.States[presentation.FlowStops.String()]
		if state.InFlight() {
			continue
		}
		if state.Phase == presentation.PhaseError {
			return errors.New(state.Message)
		}
		return nil
	}
}
