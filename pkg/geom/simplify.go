package geom

import "math"

// Simplify reduces a polyline with the Douglas-Peucker algorithm. Points
// farther than epsilon from the simplified line are kept. The first and last
// points always survive. Uses an explicit work stack so long coastlines do not
// recurse deeply.
func Simplify(points []V2D, epsilon float64) []V2D {
	if len(points) < 3 {
		out := make([]V2D, len(points))
		copy(out, points)
		return out
	}

	keep := make([]bool, len(points))
	keep[0] = true
	keep[len(points)-1] = true

	type span struct{ first, last int }
	stack := []span{{0, len(points) - 1}}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		maxDist := -1.0
		index := -1
		for i := s.first + 1; i < s.last; i++ {
			d := segmentDistance(points[i], points[s.first], points[s.last])
			if d > maxDist {
				maxDist = d
				index = i
			}
		}

		if index >= 0 && maxDist > epsilon {
			keep[index] = true
			stack = append(stack, span{s.first, index}, span{index, s.last})
		}
	}

	out := make([]V2D, 0, len(points))
	for i, p := range points {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// segmentDistance returns the distance from p to the segment ab.
func segmentDistance(p, a, b V2D) float64 {
	ab := b.Sub(a)
	l2 := ab.LenSq()
	if l2 == 0 {
		return p.Dist(a)
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(a.Add(ab.Scale(t)))
}
