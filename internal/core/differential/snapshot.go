package differential

// Snapshot is the immutable per-tick output of the core. It carries enough to
// draw every part of the drivetrain without redoing any kinematics.
type Snapshot struct {
	Tick uint64 `json:"tick"`

	GearIndex int    `json:"gear_index"`
	GearLabel string `json:"gear"`

	// SteeringAngle is the seventh angle: signed, bounded, not wrapped.
	SteeringAngle float64    `json:"steering_angle"`
	Angles        AngleState `json:"angles"`

	BaseSpeed   float64 `json:"base_speed"`
	TurnRatio   float64 `json:"turn_ratio"`
	SpiderSpeed float64 `json:"spider_speed"`
	LeftSpeed   float64 `json:"left_speed"`
	RightSpeed  float64 `json:"right_speed"`
}
