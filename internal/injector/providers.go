// Package injector assembles the simulator from configuration.
package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/diffsim/internal/config"
	"github.com/zeusync/diffsim/internal/core/differential"
	"github.com/zeusync/diffsim/internal/core/events/bus"
	"github.com/zeusync/diffsim/internal/core/observability/log"
	"github.com/zeusync/diffsim/internal/feed"
	"github.com/zeusync/diffsim/internal/presentation"
)

// App is a fully wired simulator. Feed is nil when the feed is disabled.
type App struct {
	Config config.Config
	Logger *log.Logger
	Core   *differential.Core
	Bus    bus.EventBus
	Runner *presentation.Runner
	Feed   *feed.Server
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideCore,
	ProvideLatch,
	ProvideBus,
	ProvideRunner,
	ProvideFeed,
	NewApp,
)

func ProvideLogger(cfg config.Config) (*log.Logger, error) {
	return log.New(cfg.Log)
}

func ProvideCore(cfg config.Config) (*differential.Core, error) {
	return differential.New(cfg.DifferentialConstants(), differential.WithInitialGear(cfg.Differential.InitialGear))
}

func ProvideLatch(cfg config.Config) *presentation.Latch {
	return presentation.NewLatch(cfg.Simulation.HoldWindow)
}

func ProvideBus() bus.EventBus {
	return bus.New()
}

func ProvideRunner(cfg config.Config, core *differential.Core, latch *presentation.Latch, b bus.EventBus, logger *log.Logger) (*presentation.Runner, error) {
	return presentation.NewRunner(core, latch, presentation.RunnerConfig{
		Interval: cfg.Simulation.TickInterval,
		Bus:      b,
		Logger:   logger,
	})
}

// ProvideFeed creates the viewer feed and registers it as a runner sink.
func ProvideFeed(cfg config.Config, runner *presentation.Runner, logger *log.Logger) (*feed.Server, error) {
	if !cfg.Feed.Enabled {
		return nil, nil
	}
	server, err := feed.NewServer(feed.Config{
		Addr:         cfg.Feed.Addr,
		WriteTimeout: cfg.Feed.WriteTimeout,
		SendBuffer:   cfg.Feed.SendBuffer,
		MaxViewers:   cfg.Feed.MaxViewers,
	}, runner.Input(), logger)
	if err != nil {
		return nil, err
	}
	runner.AddSink(server)
	return server, nil
}

// NewApp subscribes the event logger; cleanup undoes it and flushes the log.
func NewApp(cfg config.Config, logger *log.Logger, core *differential.Core, b bus.EventBus, runner *presentation.Runner, server *feed.Server) (*App, func(), error) {
	sub, err := presentation.LogEvents(b, logger)
	if err != nil {
		return nil, nil, err
	}

	app := &App{
		Config: cfg,
		Logger: logger,
		Core:   core,
		Bus:    b,
		Runner: runner,
		Feed:   server,
	}
	cleanup := func() {
		_ = sub.Cancel()
		if server != nil {
			_ = server.Close()
		}
		_ = logger.Sync()
	}
	return app, cleanup, nil
}
