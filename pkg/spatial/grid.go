// Package spatial provides a uniform bucket grid for radius queries over
// moving entities. The grid is cheap to clear and is rebuilt every tick.
package spatial

import (
	"math"

	"isles-of-conquest/pkg/geom"
)

type entry[T any] struct {
	pos   geom.V2D
	value T
}

// Grid buckets values by position over a square world centred on the origin.
type Grid[T any] struct {
	size       float64
	bucketSize float64
	side       int
	buckets    [][]entry[T]
	count      int
}

// NewGrid creates a grid covering a world of the given side length. Choose
// bucketSize at least as large as the usual query radius so queries only
// touch the 3x3 neighbourhood.
func NewGrid[T any](worldSize, bucketSize float64) *Grid[T] {
	side := int(math.Ceil(worldSize / bucketSize))
	if side < 1 {
		side = 1
	}
	return &Grid[T]{
		size:       worldSize,
		bucketSize: bucketSize,
		side:       side,
		buckets:    make([][]entry[T], side*side),
	}
}

// BucketSize returns the bucket edge length.
func (g *Grid[T]) BucketSize() float64 { return g.bucketSize }

// Len returns the number of inserted values.
func (g *Grid[T]) Len() int { return g.count }

// cell maps a coordinate to a bucket index, clamping positions off the map
// into the edge buckets.
func (g *Grid[T]) cell(c float64) int {
	i := int(math.Floor((c + g.size/2) / g.bucketSize))
	if i < 0 {
		return 0
	}
	if i >= g.side {
		return g.side - 1
	}
	return i
}

// Insert adds a value at pos.
func (g *Grid[T]) Insert(pos geom.V2D, value T) {
	i := g.cell(pos.Y)*g.side + g.cell(pos.X)
	g.buckets[i] = append(g.buckets[i], entry[T]{pos: pos, value: value})
	g.count++
}

// Clear empties the grid, keeping allocated buckets for reuse.
func (g *Grid[T]) Clear() {
	for i := range g.buckets {
		if g.buckets[i] != nil {
			g.buckets[i] = g.buckets[i][:0]
		}
	}
	g.count = 0
}

// Query appends to dst every value within radius of center and returns it.
// The 3x3 neighbourhood covers any radius up to the bucket size; larger radii
// widen the scanned ring so no value is missed.
func (g *Grid[T]) Query(center geom.V2D, radius float64, dst []T) []T {
	g.Each(center, radius, func(_ geom.V2D, v T) {
		dst = append(dst, v)
	})
	return dst
}

// Each calls fn for every value within radius of center.
func (g *Grid[T]) Each(center geom.V2D, radius float64, fn func(pos geom.V2D, value T)) {
	span := 1
	if radius > g.bucketSize {
		span = int(math.Ceil(radius / g.bucketSize))
	}
	cx, cy := g.cell(center.X), g.cell(center.Y)
	r2 := radius * radius

	for y := max(0, cy-span); y <= min(g.side-1, cy+span); y++ {
		for x := max(0, cx-span); x <= min(g.side-1, cx+span); x++ {
			for _, e := range g.buckets[y*g.side+x] {
				if e.pos.Sub(center).LenSq() <= r2 {
					fn(e.pos, e.value)
				}
			}
		}
	}
}
