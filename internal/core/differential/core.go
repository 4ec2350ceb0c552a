// Package differential is the kinematic model of an open differential.
//
// A Core owns the gear index, the steering angle and six wrapped rotation
// angles (ring, pinion, spider carrier, spider rotation, two side gears). Each
// call to Step advances them by one fixed tick:
//
//	base   = nominal speed of the selected gear
//	ratio  = steering / MaxSteer
//	spider = ratio * TurnDifference * base/2   (0 unless base > 0)
//	left   = base - spider
//	right  = base + spider
//
// so the two side gears always average to the ring speed. The spider gears
// absorb the difference; nothing slips.
//
// A Core is not safe for concurrent use. The presentation layer owns it and
// calls Step from a single loop.
package differential

// Option adjusts the initial state of a Core. Out-of-range values are clamped.
type Option func(*Core)

// WithInitialGear selects the gear index the session starts in.
func WithInitialGear(index int) Option {
	return func(c *Core) {
		c.gears.index = c.gears.table.Clamp(index)
	}
}

// WithInitialSteering sets the starting steering angle in degrees.
func WithInitialSteering(deg float64) Option {
	return func(c *Core) {
		c.steer.set(deg)
	}
}

// WithInitialAngles seeds the drivetrain angles. Values are wrapped and the
// carrier is forced onto the ring gear it is keyed to.
func WithInitialAngles(a AngleState) Option {
	return func(c *Core) {
		a = a.wrapped()
		a.SpiderCarrier = a.Ring
		c.angles = a
	}
}

type Core struct {
	constants Constants

	gears  gearbox
	steer  steering
	angles AngleState
	tick   uint64
}

func New(constants Constants, opts ...Option) (*Core, error) {
	if err := constants.Validate(); err != nil {
		return nil, err
	}
	constants = constants.clone()

	c := &Core{
		constants: constants,
		gears:     gearbox{table: constants.Gears},
		steer: steering{
			step:  constants.SteerStep,
			decay: constants.AutoCenter,
			max:   constants.MaxSteer,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Step applies one tick of input and returns the resulting state.
// Steering is updated first, then the gear, then all angles are integrated
// from the new speeds.
func (c *Core) Step(controls Controls) Snapshot {
	c.steer.apply(controls)
	c.gears.apply(controls)

	base, spider, left, right := c.speeds()

	c.angles.Ring = WrapDegrees(c.angles.Ring - base)
	c.angles.Pinion = WrapDegrees(c.angles.Pinion + base*c.constants.PinionRatio)
	c.angles.LeftSideGear = WrapDegrees(c.angles.LeftSideGear - left)
	c.angles.RightSideGear = WrapDegrees(c.angles.RightSideGear - right)
	c.angles.SpiderCarrier = c.angles.Ring
	c.angles.SpiderRotation = WrapDegrees(c.angles.SpiderRotation - spider)
	c.tick++

	return c.snapshot(base, spider, left, right)
}

// Snapshot returns the current state without advancing time.
func (c *Core) Snapshot() Snapshot {
	base, spider, left, right := c.speeds()
	return c.snapshot(base, spider, left, right)
}

// Constants returns a copy of the configuration the core was built with.
func (c *Core) Constants() Constants {
	return c.constants.clone()
}

func (c *Core) speeds() (base, spider, left, right float64) {
	base = c.gears.current().Speed

	// The differential only splits speed while driven forward. Coasting or
	// neutral gives no split whatever the steering says.
	half := 0.0
	if base > 0 {
		half = base / 2
	}
	spider = c.steer.turnRatio() * c.constants.TurnDifference * half

	return base, spider, base - spider, base + spider
}

func (c *Core) snapshot(base, spider, left, right float64) Snapshot {
	gear := c.gears.current()
	return Snapshot{
		Tick:          c.tick,
		GearIndex:     c.gears.index,
		GearLabel:     gear.Label,
		SteeringAngle: c.steer.angle,
		Angles:        c.angles,
		BaseSpeed:     base,
		TurnRatio:     c.steer.turnRatio(),
		SpiderSpeed:   spider,
		LeftSpeed:     left,
		RightSpeed:    right,
	}
}
