package pathfind

import (
	"math"

	"isles-of-conquest/pkg/geom"
)

// DefaultMaxWaypoints is the longest route FindPath returns; longer routes
// fail.
const DefaultMaxWaypoints = 5000

// Terrain is a Grid that also knows its world coordinates.
type Terrain interface {
	Grid
	TileOf(p geom.V2D) (x, y int, ok bool)
	TileCenter(x, y int) geom.V2D
	TileSize() float64
}

// Planner turns world-space move orders into waypoint lists.
type Planner struct {
	terrain Terrain
	cache   *Cache

	MaxWaypoints int
	Smooth       bool
}

// NewPlanner builds the path cache for terrain.
func NewPlanner(terrain Terrain, chunkSize int) *Planner {
	return &Planner{
		terrain:      terrain,
		cache:        NewCache(terrain, chunkSize),
		MaxWaypoints: DefaultMaxWaypoints,
		Smooth:       true,
	}
}

// Cache exposes the underlying tile-level cache.
func (p *Planner) Cache() *Cache { return p.cache }

// FindPath plans a route from one world point to another. The route starts
// at from and ends exactly at to. It returns false when to is off the map,
// on land, unreachable, or needs more than MaxWaypoints waypoints.
func (p *Planner) FindPath(from, to geom.V2D) ([]geom.V2D, bool) {
	tx, ty, ok := p.terrain.TileOf(to)
	if !ok || p.terrain.Cost(tx, ty) < 0 {
		return nil, false
	}
	fx, fy, ok := p.terrain.TileOf(from)
	if !ok {
		return nil, false
	}

	if p.LineClear(from, to) {
		return []geom.V2D{from, to}, true
	}

	tiles, ok := p.cache.FindPath(geom.Point{X: fx, Y: fy}, geom.Point{X: tx, Y: ty})
	if !ok {
		return nil, false
	}

	path := make([]geom.V2D, 0, len(tiles)+1)
	path = append(path, from)
	for _, t := range tiles[1:] {
		path = append(path, p.terrain.TileCenter(t.X, t.Y))
	}
	if len(path) == 1 {
		path = append(path, to)
	} else {
		path[len(path)-1] = to
	}

	if p.Smooth {
		path = p.smooth(path)
	}
	if p.MaxWaypoints > 0 && len(path) > p.MaxWaypoints {
		return nil, false
	}
	return path, true
}

// LineClear reports whether every sample along the segment, taken every half
// tile, lies on water.
func (p *Planner) LineClear(a, b geom.V2D) bool {
	step := p.terrain.TileSize() / 2
	steps := int(math.Ceil(a.Dist(b) / step))
	for i := 0; i <= steps; i++ {
		t := 1.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		x, y, ok := p.terrain.TileOf(a.Lerp(b, t))
		if !ok || p.terrain.Cost(x, y) < 0 {
			return false
		}
	}
	return true
}

// smooth drops waypoints that can be skipped with a clear straight line.
func (p *Planner) smooth(path []geom.V2D) []geom.V2D {
	if len(path) < 3 {
		return path
	}
	out := []geom.V2D{path[0]}
	i := 0
	for i < len(path)-1 {
		j := i + 1
		for j+1 < len(path) && p.LineClear(path[i], path[j+1]) {
			j++
		}
		out = append(out, path[j])
		i = j
	}
	return out
}
