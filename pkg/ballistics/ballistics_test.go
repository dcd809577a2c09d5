package ballistics

import (
	"math"
	"testing"

	"isles-of-conquest/pkg/geom"
)

func TestFromTarget_LandsOnTarget(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		name           string
		origin, target geom.V2D
	}{
		{"diagonal", geom.V2D{}, geom.V2D{X: 5, Y: 5}},
		{"west", geom.V2D{}, geom.V2D{X: -5, Y: 0}},
		{"south", geom.V2D{}, geom.V2D{X: 0, Y: 3}},
		{"offset origin", geom.V2D{X: 100, Y: -40}, geom.V2D{X: 130, Y: -10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, ok := FromTarget(tt.origin, tt.target, p)
			if !ok {
				t.Fatal("expected a solution")
			}
			end := tr.PositionAt(tr.FlightTime)
			if d := end.XY().Dist(tt.target); d >= 1 {
				t.Errorf("landed %.4f from target", d)
			}
			if math.Abs(end.Z) > 1e-9 {
				t.Errorf("expected z = 0 at landing, got %v", end.Z)
			}
			if !tr.Landed(tr.FlightTime) || tr.Landed(tr.FlightTime/2) {
				t.Error("Landed disagrees with flight time")
			}
			if mid := tr.PositionAt(tr.FlightTime / 2); mid.Z <= 0 {
				t.Errorf("expected the ball above water mid-flight, got z = %v", mid.Z)
			}
		})
	}
}

func TestFromTarget_OutOfRange(t *testing.T) {
	p := DefaultParams()
	if _, ok := FromTarget(geom.V2D{}, geom.V2D{X: 1000, Y: 1000}, p); ok {
		t.Error("expected no solution for a target far beyond range")
	}

	// Just past the maximum elevation but still inside the 45 degree range.
	beyond := p.MaxRange() * 1.05
	if _, ok := FromTarget(geom.V2D{}, geom.V2D{X: beyond}, p); ok {
		t.Error("expected no solution past the maximum shoot angle")
	}

	within := p.MaxRange() * 0.99
	if _, ok := FromTarget(geom.V2D{}, geom.V2D{X: within}, p); !ok {
		t.Error("expected a solution just inside max range")
	}
}

func TestFromTarget_ZeroDistance(t *testing.T) {
	if _, ok := FromTarget(geom.V2D{X: 1, Y: 1}, geom.V2D{X: 1, Y: 1}, DefaultParams()); ok {
		t.Error("expected no solution for a target on the origin")
	}
}

func TestMaxRange(t *testing.T) {
	p := DefaultParams()
	want := 42 * 42 * math.Sin(20*math.Pi/180) / 9.81
	if math.Abs(p.MaxRange()-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, p.MaxRange())
	}
}
