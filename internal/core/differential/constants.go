package differential

import (
	"fmt"
	"math"
)

// Gear is one slot of the gearbox: a label shown to the driver and the nominal
// ring-gear speed in degrees per tick.
type Gear struct {
	Label string  `yaml:"label" json:"label"`
	Speed float64 `yaml:"speed" json:"speed"`
}

// GearTable is ordered from Neutral upwards. Index 0 is always Neutral.
type GearTable []Gear

// Last returns the index of the highest gear.
func (t GearTable) Last() int { return len(t) - 1 }

// Clamp forces an index into [0, Last()].
func (t GearTable) Clamp(index int) int {
	if index < 0 {
		return 0
	}
	if index > t.Last() {
		return t.Last()
	}
	return index
}

// TopSpeed is the largest nominal speed in the table, 1 for an all-zero table.
func (t GearTable) TopSpeed() float64 {
	top := 0.0
	for _, g := range t {
		if g.Speed > top {
			top = g.Speed
		}
	}
	if top == 0 {
		return 1
	}
	return top
}

// Constants is the fixed configuration of one differential. It is copied into
// the Core on construction and never changes afterwards.
type Constants struct {
	Gears GearTable

	// TurnDifference scales how much of the half base speed the spider gears
	// redistribute at full steering lock.
	TurnDifference float64
	// PinionRatio is pinion revolutions per ring-gear revolution.
	PinionRatio float64

	SteerStep  float64 // degrees per tick while a steer key is held
	AutoCenter float64 // degrees per tick back toward zero when released
	MaxSteer   float64 // symmetric steering bound in degrees
}

// DefaultConstants reproduces the classic demo setup: N/1/2/3 gearbox, 5:1
// pinion, ±60° steering.
func DefaultConstants() Constants {
	return Constants{
		Gears: GearTable{
			{Label: "N", Speed: 0},
			{Label: "1", Speed: 1.0},
			{Label: "2", Speed: 2.0},
			{Label: "3", Speed: 3.5},
		},
		TurnDifference: 2.5,
		PinionRatio:    5,
		SteerStep:      5,
		AutoCenter:     2,
		MaxSteer:       60,
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Validate rejects tables and rates the kinematics cannot integrate: every
// value must be finite and gear speeds must not be negative.
func (c Constants) Validate() error {
	if len(c.Gears) == 0 {
		return ErrNoGears
	}
	if c.Gears[0].Speed != 0 {
		return fmt.Errorf("%w: gear %q has speed %v", ErrNeutralMoves, c.Gears[0].Label, c.Gears[0].Speed)
	}
	seen := make(map[string]struct{}, len(c.Gears))
	for i, g := range c.Gears {
		if g.Label == "" {
			return fmt.Errorf("%w: gear #%d", ErrGearLabel, i)
		}
		if _, dup := seen[g.Label]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateGear, g.Label)
		}
		seen[g.Label] = struct{}{}
		if !finite(g.Speed) || g.Speed < 0 {
			return fmt.Errorf("%w: gear %q has speed %v", ErrInvalidConstant, g.Label, g.Speed)
		}
	}

	positive := []struct {
		name  string
		value float64
	}{
		{"max steer", c.MaxSteer},
		{"steer step", c.SteerStep},
		{"auto-center rate", c.AutoCenter},
		{"pinion ratio", c.PinionRatio},
	}
	for _, p := range positive {
		if !finite(p.value) || p.value <= 0 {
			return fmt.Errorf("%w: %s %v", ErrInvalidConstant, p.name, p.value)
		}
	}
	if !finite(c.TurnDifference) || c.TurnDifference < 0 {
		return fmt.Errorf("%w: turn difference %v", ErrInvalidConstant, c.TurnDifference)
	}
	return nil
}

func (c Constants) clone() Constants {
	c.Gears = append(GearTable(nil), c.Gears...)
	return c
}
