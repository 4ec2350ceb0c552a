// Package config loads the simulator configuration from YAML.
//
// A file only needs the keys it wants to change; everything else keeps the
// values from Default.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/diffsim/internal/core/differential"
	"github.com/zeusync/diffsim/internal/core/observability/log"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Differential DifferentialConfig `yaml:"differential"`
	Simulation   SimulationConfig   `yaml:"simulation"`
	Feed         FeedConfig         `yaml:"feed"`
	Log          log.Config         `yaml:"log"`
}

type DifferentialConfig struct {
	Gears          []differential.Gear `yaml:"gears"`
	TurnDifference float64             `yaml:"turn_difference"`
	PinionRatio    float64             `yaml:"pinion_ratio"`
	SteerStep      float64             `yaml:"steer_step"`
	AutoCenter     float64             `yaml:"auto_center"`
	MaxSteer       float64             `yaml:"max_steer"`
	InitialGear    int                 `yaml:"initial_gear"`
}

type SimulationConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	// HoldWindow turns a key press without a release into a hold of this
	// length. Terminals never report key-up, so the TUI depends on it.
	HoldWindow  time.Duration `yaml:"hold_window"`
	HistorySize int           `yaml:"history_size"`
}

type FeedConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	SendBuffer   int           `yaml:"send_buffer"`
	MaxViewers   int           `yaml:"max_viewers"`
}

func Default() Config {
	constants := differential.DefaultConstants()
	return Config{
		Differential: DifferentialConfig{
			Gears:          constants.Gears,
			TurnDifference: constants.TurnDifference,
			PinionRatio:    constants.PinionRatio,
			SteerStep:      constants.SteerStep,
			AutoCenter:     constants.AutoCenter,
			MaxSteer:       constants.MaxSteer,
			InitialGear:    1,
		},
		Simulation: SimulationConfig{
			TickInterval: 20 * time.Millisecond,
			HoldWindow:   120 * time.Millisecond,
			HistorySize:  120,
		},
		Feed: FeedConfig{
			Enabled:      false,
			Addr:         "127.0.0.1:8090",
			WriteTimeout: 2 * time.Second,
			SendBuffer:   16,
			MaxViewers:   64,
		},
		Log: log.DefaultConfig(),
	}
}

// Load reads path on top of Default. An empty path returns Default unchanged.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r on top of Default and validates the result.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.DifferentialConstants().Validate(); err != nil {
		return fmt.Errorf("%w: differential: %w", ErrInvalidConfig, err)
	}
	if c.Differential.InitialGear < 0 || c.Differential.InitialGear >= len(c.Differential.Gears) {
		return fmt.Errorf("%w: initial gear %d outside gear table", ErrInvalidConfig, c.Differential.InitialGear)
	}
	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive", ErrInvalidConfig)
	}
	if c.Simulation.HoldWindow < 0 {
		return fmt.Errorf("%w: hold window must not be negative", ErrInvalidConfig)
	}
	if c.Simulation.HistorySize < 2 {
		return fmt.Errorf("%w: history size must be at least 2", ErrInvalidConfig)
	}
	if c.Feed.Enabled {
		if c.Feed.Addr == "" {
			return fmt.Errorf("%w: feed address is required", ErrInvalidConfig)
		}
		if c.Feed.SendBuffer <= 0 || c.Feed.MaxViewers <= 0 {
			return fmt.Errorf("%w: feed buffers must be positive", ErrInvalidConfig)
		}
	}
	return nil
}

// DifferentialConstants converts the differential section into core constants.
func (c Config) DifferentialConstants() differential.Constants {
	d := c.Differential
	return differential.Constants{
		Gears:          append(differential.GearTable(nil), d.Gears...),
		TurnDifference: d.TurnDifference,
		PinionRatio:    d.PinionRatio,
		SteerStep:      d.SteerStep,
		AutoCenter:     d.AutoCenter,
		MaxSteer:       d.MaxSteer,
	}
}
