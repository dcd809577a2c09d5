package geom

import (
	"errors"
	"fmt"
)

// Curve is a piecewise-linear function through control points sorted by X.
type Curve []V2D

// ErrCurveOrder is returned by Validate for unsorted control points.
var ErrCurveOrder = errors.New("curve control points must have increasing x")

// Validate checks the curve has at least one point and strictly increasing X.
func (c Curve) Validate() error {
	if len(c) == 0 {
		return errors.New("curve has no control points")
	}
	for i := 1; i < len(c); i++ {
		if c[i].X <= c[i-1].X {
			return fmt.Errorf("%w: point %d", ErrCurveOrder, i)
		}
	}
	return nil
}

// Eval returns the interpolated Y for x. Outside the control range the
// nearest end value is returned.
func (c Curve) Eval(x float64) float64 {
	if len(c) == 0 {
		return x
	}
	if x <= c[0].X {
		return c[0].Y
	}
	last := c[len(c)-1]
	if x >= last.X {
		return last.Y
	}
	for i := 1; i < len(c); i++ {
		if x <= c[i].X {
			a, b := c[i-1], c[i]
			t := (x - a.X) / (b.X - a.X)
			return a.Y + (b.Y-a.Y)*t
		}
	}
	return last.Y
}
