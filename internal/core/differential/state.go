package differential

import "math"

// Controls is the input sampled once per tick. Steer fields are levels (key
// held), shift fields are edges (fire once).
type Controls struct {
	SteerLeft  bool `json:"steer_left" yaml:"left"`
	SteerRight bool `json:"steer_right" yaml:"right"`
	ShiftUp    bool `json:"shift_up" yaml:"shift_up"`
	ShiftDown  bool `json:"shift_down" yaml:"shift_down"`
}

// AngleState holds the wrapped rotation angles of the drivetrain in degrees.
type AngleState struct {
	Ring           float64 `json:"ring"`
	Pinion         float64 `json:"pinion"`
	SpiderCarrier  float64 `json:"spider_carrier"`
	SpiderRotation float64 `json:"spider_rotation"`
	LeftSideGear   float64 `json:"left_side_gear"`
	RightSideGear  float64 `json:"right_side_gear"`
}

// WrapDegrees maps any angle into [0, 360). NaN and infinities map to 0.
func WrapDegrees(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	// -tiny + 360 rounds to exactly 360 in float64
	if r >= 360 || r == 0 {
		return 0
	}
	return r
}

func (a AngleState) wrapped() AngleState {
	return AngleState{
		Ring:           WrapDegrees(a.Ring),
		Pinion:         WrapDegrees(a.Pinion),
		SpiderCarrier:  WrapDegrees(a.SpiderCarrier),
		SpiderRotation: WrapDegrees(a.SpiderRotation),
		LeftSideGear:   WrapDegrees(a.LeftSideGear),
		RightSideGear:  WrapDegrees(a.RightSideGear),
	}
}

// steering is the saturating steering-wheel counter.
type steering struct {
	angle float64
	step  float64
	decay float64
	max   float64
}

func (s *steering) apply(c Controls) {
	switch {
	case c.SteerLeft:
		s.angle = math.Min(s.max, s.angle+s.step)
	case c.SteerRight:
		s.angle = math.Max(-s.max, s.angle-s.step)
	case s.angle > s.decay:
		s.angle -= s.decay
	case s.angle < -s.decay:
		s.angle += s.decay
	default:
		s.angle = 0
	}
}

func (s *steering) set(deg float64) {
	if math.IsNaN(deg) {
		deg = 0
	}
	s.angle = math.Max(-s.max, math.Min(s.max, deg))
}

// turnRatio is the normalised steering angle in [-1, 1], positive for left.
func (s *steering) turnRatio() float64 {
	return s.angle / s.max
}

// gearbox is the saturating gear index.
type gearbox struct {
	table GearTable
	index int
}

func (g *gearbox) apply(c Controls) {
	if c.ShiftUp {
		g.index = g.table.Clamp(g.index + 1)
	}
	if c.ShiftDown {
		g.index = g.table.Clamp(g.index - 1)
	}
}

func (g *gearbox) current() Gear {
	return g.table[g.index]
}
