// Package ballistics solves the cannonball arcs used by ships.
//
// A shot leaves the muzzle at a fixed speed. The launch angle is picked from
// the range equation so the ball lands on the target; shots that would need
// more than the maximum elevation are refused.
package ballistics

import (
	"math"

	"isles-of-conquest/pkg/geom"
)

// Params describe the gun.
type Params struct {
	Speed    float64 // muzzle speed
	Gravity  float64
	MaxAngle float64 // radians
}

// DefaultParams returns the cannon used by every ship.
func DefaultParams() Params {
	return Params{
		Speed:    42,
		Gravity:  9.81,
		MaxAngle: 10 * math.Pi / 180,
	}
}

// MaxRange is the farthest distance a shot can reach.
func (p Params) MaxRange() float64 {
	return p.Speed * p.Speed * math.Sin(2*p.MaxAngle) / p.Gravity
}

// Trajectory is a parabolic flight from Origin (at z = 0).
type Trajectory struct {
	Origin     geom.V3D `msgpack:"o"`
	Velocity   geom.V3D `msgpack:"v"`
	Gravity    float64  `msgpack:"g"`
	FlightTime float64  `msgpack:"t"`
}

// FromTarget solves the low arc from origin to target. It returns false when
// the target is out of range or sits on the origin.
func FromTarget(origin, target geom.V2D, p Params) (Trajectory, bool) {
	delta := target.Sub(origin)
	d := delta.Len()
	if d == 0 {
		return Trajectory{}, false
	}

	angle := 0.5 * math.Asin(d*p.Gravity/(p.Speed*p.Speed))
	if math.IsNaN(angle) || angle > p.MaxAngle {
		return Trajectory{}, false
	}

	horizontal := p.Speed * math.Cos(angle)
	flight := d / horizontal
	dir := delta.Scale(1 / d)

	// Vertical speed comes from the flight time rather than sin(angle) so the
	// ball is back at z = 0 exactly when it reaches the target.
	vz := p.Gravity * flight / 2

	return Trajectory{
		Origin:     origin.Extend(0),
		Velocity:   dir.Scale(horizontal).Extend(vz),
		Gravity:    p.Gravity,
		FlightTime: flight,
	}, true
}

// PositionAt evaluates the trajectory at time t.
func (tr Trajectory) PositionAt(t float64) geom.V3D {
	return tr.Origin.
		Add(tr.Velocity.Scale(t)).
		Add(geom.V3D{Z: -tr.Gravity * t * t / 2})
}

// Landed reports whether the ball has come back down by time t.
func (tr Trajectory) Landed(t float64) bool {
	return t >= tr.FlightTime
}

// Impact returns the landing point.
func (tr Trajectory) Impact() geom.V2D {
	return tr.PositionAt(tr.FlightTime).XY()
}
