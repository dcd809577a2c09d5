// Package geom holds the small amount of geometry shared by the world
// generator, the planner and the simulation.
package geom

import "math"

// V2D is a point or direction on the sea plane.
type V2D struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// V3D adds height to V2D. Z grows upward.
type V3D struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Point is an integer grid coordinate or offset.
type Point struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

// Add returns a+b.
func (a V2D) Add(b V2D) V2D { return V2D{a.X + b.X, a.Y + b.Y} }

// Sub returns a-b.
func (a V2D) Sub(b V2D) V2D { return V2D{a.X - b.X, a.Y - b.Y} }

// Scale returns a*s.
func (a V2D) Scale(s float64) V2D { return V2D{a.X * s, a.Y * s} }

// Dot returns the dot product.
func (a V2D) Dot(b V2D) float64 { return a.X*b.X + a.Y*b.Y }

// LenSq returns the squared length.
func (a V2D) LenSq() float64 { return a.X*a.X + a.Y*a.Y }

// Len returns the length.
func (a V2D) Len() float64 { return math.Sqrt(a.LenSq()) }

// Dist returns the distance between a and b.
func (a V2D) Dist(b V2D) float64 { return a.Sub(b).Len() }

// Normalize returns the unit vector in the direction of a, or the zero vector.
func (a V2D) Normalize() V2D {
	l := a.Len()
	if l == 0 {
		return V2D{}
	}
	return V2D{a.X / l, a.Y / l}
}

// Lerp interpolates between a and b.
func (a V2D) Lerp(b V2D, t float64) V2D {
	return V2D{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
}

// Extend lifts the vector to 3D at height z.
func (a V2D) Extend(z float64) V3D { return V3D{a.X, a.Y, z} }

// Add returns a+b.
func (a V3D) Add(b V3D) V3D { return V3D{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

// Scale returns a*s.
func (a V3D) Scale(s float64) V3D { return V3D{a.X * s, a.Y * s, a.Z * s} }

// XY drops the height component.
func (a V3D) XY() V2D { return V2D{a.X, a.Y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Chebyshev returns max(|dx|, |dy|) between p and q.
func (p Point) Chebyshev(q Point) int {
	dx, dy := p.X-q.X, p.Y-q.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return max(dx, dy)
}
