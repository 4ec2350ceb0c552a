package presentation

import (
	"fmt"

	"github.com/zeusync/diffsim/internal/core/differential"
)

// Direction is the driver-facing classification of the steering input.
type Direction uint8

const (
	Straight Direction = iota
	TurningLeft
	TurningRight
)

// directionThreshold is the turn ratio magnitude below which the car is
// reported as going straight.
const directionThreshold = 0.1

func (d Direction) String() string {
	switch d {
	case TurningLeft:
		return "turning left"
	case TurningRight:
		return "turning right"
	default:
		return "straight"
	}
}

func Classify(turnRatio float64) Direction {
	switch {
	case turnRatio > directionThreshold:
		return TurningLeft
	case turnRatio < -directionThreshold:
		return TurningRight
	default:
		return Straight
	}
}

type Status struct {
	Gear      string    `json:"gear"`
	Direction Direction `json:"direction"`
}

func StatusOf(s differential.Snapshot) Status {
	return Status{Gear: s.GearLabel, Direction: Classify(s.TurnRatio)}
}

func (s Status) String() string {
	return fmt.Sprintf("gear: %s | %s", s.Gear, s.Direction)
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "straight":
		*d = Straight
	case "turning left":
		*d = TurningLeft
	case "turning right":
		*d = TurningRight
	default:
		return fmt.Errorf("unknown direction %q", text)
	}
	return nil
}
