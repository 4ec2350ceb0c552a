// Package scenario replays scripted control input through the kinematic core
// without a clock, for regression checks and offline analysis.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/diffsim/internal/core/differential"
)

var (
	ErrNoSegments     = errors.New("scenario has no segments")
	ErrInvalidSegment = errors.New("invalid scenario segment")
	ErrInvalidSample  = errors.New("sample interval must not be negative")
	ErrNilCore        = errors.New("scenario needs a core")
	ErrTooLong        = errors.New("scenario is too long")
)

// MaxTicks bounds the length of one scenario, about 55 hours at 20ms ticks.
const MaxTicks = 10_000_000

// Segment holds one set of controls for a number of ticks. Shift edges
// fire on the first tick of the segment only.
type Segment struct {
	Ticks     int    `yaml:"ticks" json:"ticks"`
	Left      bool   `yaml:"left" json:"left,omitempty"`
	Right     bool   `yaml:"right" json:"right,omitempty"`
	ShiftUp   bool   `yaml:"shift_up" json:"shift_up,omitempty"`
	ShiftDown bool   `yaml:"shift_down" json:"shift_down,omitempty"`
	Comment   string `yaml:"comment" json:"comment,omitempty"`
}

// controls returns the input for tick i (0-based) within the segment.
func (s Segment) controls(i int) differential.Controls {
	return differential.Controls{
		SteerLeft:  s.Left,
		SteerRight: s.Right,
		ShiftUp:    s.ShiftUp && i == 0,
		ShiftDown:  s.ShiftDown && i == 0,
	}
}

type Scenario struct {
	Name string `yaml:"name"`
	// InitialGear overrides the configured starting gear when set.
	InitialGear     *int    `yaml:"initial_gear"`
	InitialSteering float64 `yaml:"initial_steering"`
	// Every records one snapshot per Every ticks; 0 and 1 record all.
	Every    int       `yaml:"every"`
	Segments []Segment `yaml:"segments"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scenario.
func Parse(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) Validate() error {
	if len(s.Segments) == 0 {
		return ErrNoSegments
	}
	if s.Every < 0 {
		return ErrInvalidSample
	}
	total := 0
	for i, seg := range s.Segments {
		if seg.Ticks <= 0 {
			return fmt.Errorf("%w: segment %d has %d ticks", ErrInvalidSegment, i, seg.Ticks)
		}
		if seg.Ticks > MaxTicks-total {
			return fmt.Errorf("%w: more than %d ticks at segment %d", ErrTooLong, MaxTicks, i)
		}
		total += seg.Ticks
	}
	return nil
}

// TotalTicks is the number of steps a validated scenario takes.
func (s *Scenario) TotalTicks() int {
	total := 0
	for _, seg := range s.Segments {
		total += seg.Ticks
	}
	return total
}

// Options returns the core options the scenario's initial state asks for.
func (s *Scenario) Options() []differential.Option {
	var opts []differential.Option
	if s.InitialGear != nil {
		opts = append(opts, differential.WithInitialGear(*s.InitialGear))
	}
	if s.InitialSteering != 0 {
		opts = append(opts, differential.WithInitialSteering(s.InitialSteering))
	}
	return opts
}
