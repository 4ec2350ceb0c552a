package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/diffsim/internal/config"
	"github.com/zeusync/diffsim/internal/core/differential"
	"github.com/zeusync/diffsim/internal/core/observability/log"
	"github.com/zeusync/diffsim/internal/injector"
	"github.com/zeusync/diffsim/internal/scenario"
	"github.com/zeusync/diffsim/internal/tui"
	"github.com/zeusync/diffsim/sdk/go/client"
)

const usage = `usage: diffsim [command] [flags]

commands:
  tui     interactive terminal simulator (default)
  serve   headless simulator driven by feed viewers
  run     replay a scenario file and print the JSON log
  watch   print status changes from a running feed

run "diffsim <command> -h" for command flags`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	command := "tui"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	switch command {
	case "tui":
		return runTUI(ctx, args)
	case "serve":
		return runServe(ctx, args)
	case "run":
		return runScenario(args, stdout)
	case "watch":
		return runWatch(ctx, args, stdout)
	case "help":
		fmt.Fprintln(stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func runTUI(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	withFeed := fs.Bool("feed", false, "also publish frames to websocket viewers")
	addr := fs.String("addr", "", "feed listen address (overrides config)")
	logFile := fs.String("log-file", "", "write logs to this file; logging is off otherwise")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	// The terminal belongs to the UI.
	if *logFile == "" {
		cfg.Log.Level = log.LevelSilent
	} else {
		cfg.Log.Outputs = []string{*logFile}
	}
	cfg.Feed.Enabled = cfg.Feed.Enabled || *withFeed
	if *addr != "" {
		cfg.Feed.Addr = *addr
	}

	app, cleanup, err := injector.InitializeApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if app.Feed != nil {
		g.Go(func() error { return app.Feed.Serve(ctx) })
	}
	g.Go(func() error {
		defer cancel()
		model := tui.New(app.Runner, tui.Config{
			Interval:    cfg.Simulation.TickInterval,
			HistorySize: cfg.Simulation.HistorySize,
			TopSpeed:    app.Core.Constants().Gears.TopSpeed(),
			LastGear:    app.Core.Constants().Gears.Last(),
		})
		_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	addr := fs.String("addr", "", "feed listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.Feed.Enabled = true
	if *addr != "" {
		cfg.Feed.Addr = *addr
	}

	app, cleanup, err := injector.InitializeApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	app.Logger.Info("Simulator starting",
		log.String("feed_addr", cfg.Feed.Addr),
		log.Duration("tick_interval", cfg.Simulation.TickInterval))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.Runner.Run(ctx) })
	g.Go(func() error { return app.Feed.Serve(ctx) })
	return g.Wait()
}

func runScenario(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	scenarioPath := fs.String("scenario", "", "scenario YAML file (required)")
	every := fs.Int("every", 0, "record every Nth tick (overrides the scenario)")
	outPath := fs.String("out", "", "write the JSON log here instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *scenarioPath == "" {
		return errors.New("run: -scenario is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	s, err := scenario.Load(*scenarioPath)
	if err != nil {
		return err
	}
	if *every > 0 {
		s.Every = *every
	}

	opts := append([]differential.Option{differential.WithInitialGear(cfg.Differential.InitialGear)}, s.Options()...)
	core, err := differential.New(cfg.DifferentialConstants(), opts...)
	if err != nil {
		return err
	}
	result, err := scenario.Run(core, s)
	if err != nil {
		return err
	}

	out := stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return result.WriteJSON(out)
}

func runWatch(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	url := fs.String("url", "ws://127.0.0.1:8090/ws", "feed websocket url")
	all := fs.Bool("all", false, "print every frame, not only status changes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := client.Dial(ctx, *url)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Fprintf(stdout, "watching %s as %s\n", *url, c.ViewerID())
	last := ""
	for {
		f, err := c.Next(ctx)
		var serverErr *client.ServerError
		switch {
		case errors.As(err, &serverErr):
			fmt.Fprintln(stdout, serverErr)
			continue
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			return err
		}

		status := f.Status.String()
		if *all || status != last {
			s := f.Snapshot
			fmt.Fprintf(stdout, "tick %-8d %-28s steer %+6.1f  left %6.3f  right %6.3f\n",
				s.Tick, status, s.SteeringAngle, s.LeftSpeed, s.RightSpeed)
			last = status
		}
	}
}
