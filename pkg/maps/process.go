package maps

import (
	"math"

	"isles-of-conquest/pkg/geom"
)

var orthogonal = [4]geom.Point{{X: 0, Y: -1}, {X: 0, Y: 1}, {X: -1, Y: 0}, {X: 1, Y: 0}}

// floodFill walks the whole grid starting at tile (0,0). Each fill covers one
// 4-connected region of a single class (water or land); neighbours of the
// other class are pushed on a frontier and filled in turn, so the walk
// crosses from sea to land and back until every tile is visited exactly once.
// It returns the visit order and the land components in discovery order.
func floodFill(w *World) ([]int, [][]int) {
	side := w.Side
	area := side * side
	visited := make([]bool, area)
	order := make([]int, 0, area)
	var components [][]int

	var stack, frontier []int
	fill := func(start int) []int {
		land := w.Tiles[start].Kind.IsLand()
		var region []int
		visited[start] = true
		stack = append(stack[:0], start)

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			region = append(region, i)
			order = append(order, i)

			x, y := i%side, i/side
			for _, d := range orthogonal {
				nx, ny := x+d.X, y+d.Y
				if nx < 0 || nx >= side || ny < 0 || ny >= side {
					continue
				}
				n := ny*side + nx
				if visited[n] {
					continue
				}
				if w.Tiles[n].Kind.IsLand() == land {
					visited[n] = true
					stack = append(stack, n)
				} else {
					frontier = append(frontier, n)
				}
			}
		}
		return region
	}

	drain := func() {
		for len(frontier) > 0 {
			n := frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
			if visited[n] {
				continue
			}
			region := fill(n)
			if w.Tiles[n].Kind.IsLand() {
				components = append(components, region)
			}
		}
	}

	frontier = append(frontier, 0)
	drain()

	for i := 0; i < area; i++ {
		if !visited[i] {
			frontier = append(frontier, i)
			drain()
		}
	}

	return order, components
}

// extractIslands turns land components into islands (with lighthouses) or
// islets and traces their coastlines.
func extractIslands(w *World, components [][]int) {
	cfg := w.Config
	member := make([]int32, len(w.Tiles))
	for ci, comp := range components {
		for _, i := range comp {
			member[i] = int32(ci + 1)
		}
	}

	for ci, comp := range components {
		coastline := traceCoastline(w, member, int32(ci+1), comp)

		if len(comp) < cfg.MinIslandSize {
			w.Islets = append(w.Islets, &Islet{TileCount: len(comp), Coastline: coastline})
			continue
		}

		cx, cy := centroid(comp, w.Side)
		site, ok := findLighthouse(w, int(math.Round(cx)), int(math.Round(cy)))
		if !ok {
			w.Islets = append(w.Islets, &Islet{TileCount: len(comp), Coastline: coastline})
			continue
		}

		id := IslandID(len(w.Islands) + 1)
		isl := &Island{
			ID:             id,
			Tiles:          make([]IslandTile, 0, len(comp)),
			Center:         tileCenter(cfg, cx, cy),
			Lighthouse:     tileCenter(cfg, float64(site.X), float64(site.Y)),
			LighthouseTile: site,
			TileSize:       cfg.TileSize,
			Coastline:      coastline,
		}
		for _, i := range comp {
			t := &w.Tiles[i]
			t.Island = id
			isl.Tiles = append(isl.Tiles, IslandTile{X: i % w.Side, Y: i / w.Side, Height: t.Height})
		}

		lt := &w.Tiles[site.Y*w.Side+site.X]
		lt.Kind = Lighthouse
		lt.Island = id

		w.Islands = append(w.Islands, isl)
	}
}

func centroid(comp []int, side int) (float64, float64) {
	var sx, sy float64
	for _, i := range comp {
		sx += float64(i % side)
		sy += float64(i / side)
	}
	n := float64(len(comp))
	return sx / n, sy / n
}

// findLighthouse spirals out from (cx,cy) for the nearest water tile whose
// whole neighbourhood is in bounds and water.
func findLighthouse(w *World, cx, cy int) (geom.Point, bool) {
	var s geom.Spiral
	limit := geom.SquareCount(w.Side)
	for i := 0; i < limit; i++ {
		p := s.Next().Add(geom.Point{X: cx, Y: cy})
		if lighthouseFits(w, p.X, p.Y) {
			return p, true
		}
	}
	return geom.Point{}, false
}

func lighthouseFits(w *World, x, y int) bool {
	r := w.Config.LighthouseRadius
	if x-r < 0 || y-r < 0 || x+r >= w.Side || y+r >= w.Side {
		return false
	}
	if w.Tiles[y*w.Side+x].Kind != Water {
		return false
	}
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if !w.Tiles[(y+dy)*w.Side+x+dx].Kind.IsWater() {
				return false
			}
		}
	}
	return true
}

// markCoast turns water near land into coast, tagged with the island of the
// nearest land tile found by the spiral.
func markCoast(w *World) {
	r := w.Config.CoastRadius
	if r == 0 {
		return
	}
	offsets := geom.SpiralOffsets(geom.SquareCount(r))[1:]

	for y := 0; y < w.Side; y++ {
		for x := 0; x < w.Side; x++ {
			t := &w.Tiles[y*w.Side+x]
			if t.Kind != Water {
				continue
			}
			for _, o := range offsets {
				nx, ny := x+o.X, y+o.Y
				if nx < 0 || nx >= w.Side || ny < 0 || ny >= w.Side {
					continue
				}
				n := w.Tiles[ny*w.Side+nx]
				if n.Kind.IsLand() {
					t.Kind = Coast
					t.Island = n.Island
					break
				}
			}
		}
	}
}

// Moore neighbourhood, clockwise starting west (y grows downward).
var moore = [8]geom.Point{
	{X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 1},
}

func mooreIndex(d geom.Point) int {
	for i, m := range moore {
		if m == d {
			return i
		}
	}
	return 0
}

// traceCoastline follows the outer boundary of one component with Moore
// neighbour tracing and returns it simplified, in world coordinates.
func traceCoastline(w *World, member []int32, id int32, comp []int) []geom.V2D {
	side := w.Side
	in := func(p geom.Point) bool {
		return p.X >= 0 && p.X < side && p.Y >= 0 && p.Y < side && member[p.Y*side+p.X] == id
	}

	// Topmost-leftmost tile: its west neighbour is outside the component.
	first := comp[0]
	for _, i := range comp {
		if i < first {
			first = i
		}
	}
	start := geom.Point{X: first % side, Y: first / side}

	contour := []geom.Point{start}
	p, back := start, 0
	var second geom.Point
	limit := 4*len(comp) + 16

	for step := 0; step < limit; step++ {
		found := false
		var q geom.Point
		for i := 1; i <= 8; i++ {
			d := (back + i) % 8
			q = p.Add(moore[d])
			if in(q) {
				prev := p.Add(moore[(d+7)%8])
				back = mooreIndex(geom.Point{X: prev.X - q.X, Y: prev.Y - q.Y})
				found = true
				break
			}
		}
		if !found {
			break
		}
		if step == 0 {
			second = q
		} else if p == start && q == second {
			break
		}
		contour = append(contour, q)
		p = q
	}

	// The contour ends back at start; simplify the closed loop, then drop the
	// repeated point.
	points := make([]geom.V2D, len(contour))
	for i, c := range contour {
		points[i] = tileCenter(w.Config, float64(c.X), float64(c.Y))
	}
	simplified := geom.Simplify(points, w.Config.CoastlineEpsilon*w.Config.TileSize)
	if n := len(simplified); n > 1 && simplified[n-1] == simplified[0] {
		simplified = simplified[:n-1]
	}
	return simplified
}
