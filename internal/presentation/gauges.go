package presentation

import (
	"math"

	"github.com/zeusync/diffsim/internal/core/differential"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// polar returns the offset of length r at angle rad from the origin.
func polar(r, rad float64) Point {
	return Point{X: r * math.Cos(rad), Y: r * math.Sin(rad)}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Layout places the drivetrain parts in scene units. A marker is a dot on the
// rim of a rotating part whose position shows that part's angle.
type Layout struct {
	SideGearCenter   float64 // |x| of the side gears
	SideGearMarker   float64
	WheelCenter      float64 // |x| of the wheels
	WheelMarker      float64
	PinionCenter     Point
	PinionMarker     float64
	DriveshaftCenter Point
	DriveshaftMarker float64
	SpiderOrbit      float64 // distance of spider gears from the carrier axis
	SpiderMarker     float64
	SpokeLength      float64
	NeedleLength     float64

	// TopSpeed maps onto the end of the speedometer scale.
	TopSpeed float64
}

func DefaultLayout(topSpeed float64) Layout {
	if topSpeed <= 0 {
		topSpeed = 1
	}
	return Layout{
		SideGearCenter:   1.2,
		SideGearMarker:   0.8,
		WheelCenter:      4.5,
		WheelMarker:      0.6,
		PinionCenter:     Point{X: 2.7},
		PinionMarker:     0.3,
		DriveshaftCenter: Point{X: 4.2},
		DriveshaftMarker: 0.2,
		SpiderOrbit:      1.2,
		SpiderMarker:     0.3,
		SpokeLength:      0.9,
		NeedleLength:     0.9,
		TopSpeed:         topSpeed,
	}
}

type Markers struct {
	LeftSideGear  Point `json:"left_side_gear"`
	RightSideGear Point `json:"right_side_gear"`
	LeftWheel     Point `json:"left_wheel"`
	RightWheel    Point `json:"right_wheel"`
	Pinion        Point `json:"pinion"`
	Driveshaft    Point `json:"driveshaft"`
}

type SpiderGear struct {
	Center Point `json:"center"`
	Marker Point `json:"marker"`
}

// Frame is everything a renderer needs for one tick: the raw snapshot plus
// pre-computed positions of every moving visual element.
type Frame struct {
	Snapshot differential.Snapshot `json:"snapshot"`
	Status   Status                `json:"status"`

	Markers        Markers       `json:"markers"`
	SpiderGears    [2]SpiderGear `json:"spider_gears"`
	SteeringSpokes [3]Point      `json:"steering_spokes"`
	// SpeedoNeedle is the needle direction in radians: π/3 at rest, sweeping
	// clockwise through π as speed reaches TopSpeed.
	SpeedoNeedle float64 `json:"speedo_needle"`
	NeedleTip    Point   `json:"needle_tip"`
	GearSlot     Point   `json:"gear_slot"`
}

// Compose maps a snapshot onto scene geometry.
func Compose(s differential.Snapshot, l Layout) Frame {
	a := s.Angles
	left := radians(a.LeftSideGear)
	right := radians(a.RightSideGear)
	pinion := radians(a.Pinion)

	f := Frame{
		Snapshot: s,
		Status:   StatusOf(s),
		Markers: Markers{
			LeftSideGear:  Point{X: -l.SideGearCenter}.add(polar(l.SideGearMarker, left)),
			RightSideGear: Point{X: l.SideGearCenter}.add(polar(l.SideGearMarker, right)),
			LeftWheel:     Point{X: -l.WheelCenter}.add(polar(l.WheelMarker, left)),
			RightWheel:    Point{X: l.WheelCenter}.add(polar(l.WheelMarker, right)),
			Pinion:        l.PinionCenter.add(polar(l.PinionMarker, pinion)),
			Driveshaft:    l.DriveshaftCenter.add(polar(l.DriveshaftMarker, pinion)),
		},
	}

	// Both spider gears ride the carrier on opposite sides and spin in
	// opposite senses relative to it.
	carrier := radians(a.SpiderCarrier)
	c1 := Point{X: -l.SpiderOrbit * math.Sin(carrier), Y: l.SpiderOrbit * math.Cos(carrier)}
	c2 := Point{X: l.SpiderOrbit * math.Sin(carrier), Y: -l.SpiderOrbit * math.Cos(carrier)}
	f.SpiderGears[0] = SpiderGear{
		Center: c1,
		Marker: c1.add(polar(l.SpiderMarker, radians(-a.Ring+a.SpiderRotation))),
	}
	f.SpiderGears[1] = SpiderGear{
		Center: c2,
		Marker: c2.add(polar(l.SpiderMarker, radians(-a.Ring-a.SpiderRotation))),
	}

	steer := radians(s.SteeringAngle)
	for i := range f.SteeringSpokes {
		f.SteeringSpokes[i] = polar(l.SpokeLength, steer+float64(i)*2*math.Pi/3)
	}

	f.SpeedoNeedle = math.Pi/3 - (s.BaseSpeed/l.TopSpeed)*math.Pi
	f.NeedleTip = polar(l.NeedleLength, f.SpeedoNeedle)
	f.GearSlot = GearSlot(s.GearIndex)

	return f
}

// GearSlot returns the knob position on an H-pattern gate drawn in a 4x4 box:
// neutral in the middle, odd gears on the top row, even gears below them.
func GearSlot(index int) Point {
	if index <= 0 {
		return Point{X: 2, Y: 2}
	}
	column := float64((index+1)/2*2 - 1)
	if index%2 == 1 {
		return Point{X: column, Y: 3}
	}
	return Point{X: column, Y: 1}
}
