package geom

var spiralDirs = [4]Point{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

// Spiral walks integer offsets around (0,0) in square rings: the origin, then
// right 1, down 1, left 2, up 2, right 3 and so on. It never ends; use
// SquareCount to bound a search to a radius.
//
// The zero value is ready to use.
type Spiral struct {
	pos     Point
	dir     int
	leg     int
	stepped int
	started bool
}

// Next returns the next offset.
func (s *Spiral) Next() Point {
	if !s.started {
		s.started = true
		s.leg = 1
		return s.pos
	}

	d := spiralDirs[s.dir]
	s.pos = s.pos.Add(d)
	s.stepped++
	if s.stepped == s.leg {
		s.stepped = 0
		s.dir = (s.dir + 1) % 4
		// Legs grow every second turn.
		if s.dir == 0 || s.dir == 2 {
			s.leg++
		}
	}
	return s.pos
}

// Reset restarts the walk at the origin.
func (s *Spiral) Reset() {
	*s = Spiral{}
}

// SquareCount is the number of offsets Next yields before leaving the square
// of Chebyshev radius r.
func SquareCount(r int) int {
	side := 2*r + 1
	return side * side
}

// SpiralOffsets returns the first n offsets of a fresh spiral.
func SpiralOffsets(n int) []Point {
	var s Spiral
	out := make([]Point, n)
	for i := range out {
		out[i] = s.Next()
	}
	return out
}
