package pathfind

import (
	"container/heap"

	"isles-of-conquest/pkg/geom"
)

// DefaultChunkSize is the chunk edge length used by the simulation.
const DefaultChunkSize = 16

// Cache is a two-level path abstraction over a Grid. The grid is cut into
// square chunks; every traversable run along a chunk border gets an entrance
// pair at its middle, and entrances inside one chunk are linked by cached
// local paths. Queries search the small abstract graph and splice the cached
// paths together.
//
// A Cache is immutable after NewCache and safe for concurrent queries.
type Cache struct {
	grid   Grid
	chunk  int
	cols   int
	rows   int
	nodes  []geom.Point
	nodeAt map[geom.Point]int
	chunks [][]int  // chunk index -> node ids
	edges  [][]edge // node id -> outgoing edges
}

type edge struct {
	to   int
	cost int
	path []geom.Point // excludes the source, ends at the target
}

// NewCache builds the abstraction. The grid must not change afterwards.
func NewCache(g Grid, chunkSize int) *Cache {
	if chunkSize < 2 {
		chunkSize = DefaultChunkSize
	}
	c := &Cache{
		grid:   g,
		chunk:  chunkSize,
		cols:   (g.Width() + chunkSize - 1) / chunkSize,
		rows:   (g.Height() + chunkSize - 1) / chunkSize,
		nodeAt: make(map[geom.Point]int),
	}
	c.chunks = make([][]int, c.cols*c.rows)

	c.buildEntrances()
	c.buildIntraEdges()
	return c
}

// NodeCount returns the number of abstract nodes.
func (c *Cache) NodeCount() int { return len(c.nodes) }

func (c *Cache) chunkOf(p geom.Point) int {
	return (p.Y/c.chunk)*c.cols + p.X/c.chunk
}

func (c *Cache) chunkRect(i int) rect {
	cx, cy := i%c.cols, i/c.cols
	return rect{
		x0: cx * c.chunk,
		y0: cy * c.chunk,
		x1: min((cx+1)*c.chunk, c.grid.Width()),
		y1: min((cy+1)*c.chunk, c.grid.Height()),
	}
}

func (c *Cache) addNode(p geom.Point) int {
	if id, ok := c.nodeAt[p]; ok {
		return id
	}
	id := len(c.nodes)
	c.nodes = append(c.nodes, p)
	c.nodeAt[p] = id
	c.edges = append(c.edges, nil)
	ci := c.chunkOf(p)
	c.chunks[ci] = append(c.chunks[ci], id)
	return id
}

func (c *Cache) link(a, b geom.Point) {
	ia, ib := c.addNode(a), c.addNode(b)
	cost := costStraight * c.grid.Cost(b.X, b.Y)
	c.edges[ia] = append(c.edges[ia], edge{to: ib, cost: cost, path: []geom.Point{b}})
	cost = costStraight * c.grid.Cost(a.X, a.Y)
	c.edges[ib] = append(c.edges[ib], edge{to: ia, cost: cost, path: []geom.Point{a}})
}

// buildEntrances scans every shared chunk border for runs of tiles open on
// both sides.
func (c *Cache) buildEntrances() {
	w, h := c.grid.Width(), c.grid.Height()

	// Vertical borders between horizontally adjacent chunks.
	for x := c.chunk - 1; x+1 < w; x += c.chunk {
		for y0 := 0; y0 < h; y0 += c.chunk {
			y1 := min(y0+c.chunk, h)
			c.scanBorder(y0, y1, func(i int) (geom.Point, geom.Point) {
				return geom.Point{X: x, Y: i}, geom.Point{X: x + 1, Y: i}
			})
		}
	}

	// Horizontal borders between vertically adjacent chunks.
	for y := c.chunk - 1; y+1 < h; y += c.chunk {
		for x0 := 0; x0 < w; x0 += c.chunk {
			x1 := min(x0+c.chunk, w)
			c.scanBorder(x0, x1, func(i int) (geom.Point, geom.Point) {
				return geom.Point{X: i, Y: y}, geom.Point{X: i, Y: y + 1}
			})
		}
	}
}

func (c *Cache) scanBorder(from, to int, sides func(i int) (geom.Point, geom.Point)) {
	runStart := -1
	flush := func(end int) {
		if runStart < 0 {
			return
		}
		a, b := sides(runStart + (end-runStart)/2)
		c.link(a, b)
		runStart = -1
	}
	for i := from; i < to; i++ {
		a, b := sides(i)
		if passable(c.grid, a) && passable(c.grid, b) {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i)
	}
	flush(to)
}

// buildIntraEdges connects every pair of entrances that can reach each other
// without leaving their chunk.
func (c *Cache) buildIntraEdges() {
	for ci, ids := range c.chunks {
		r := c.chunkRect(ci)
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, b := ids[i], ids[j]
				path, cost, ok := search(c.grid, r, c.nodes[a], c.nodes[b])
				if !ok {
					continue
				}
				c.edges[a] = append(c.edges[a], edge{to: b, cost: cost, path: path[1:]})
				c.edges[b] = append(c.edges[b], edge{to: a, cost: cost, path: reversed(path)[1:]})
			}
		}
	}
}

func reversed(p []geom.Point) []geom.Point {
	out := make([]geom.Point, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}

// FindPath returns a tile path from start to goal, both included.
func (c *Cache) FindPath(start, goal geom.Point) ([]geom.Point, bool) {
	if !passable(c.grid, start) || !passable(c.grid, goal) {
		return nil, false
	}
	if start == goal {
		return []geom.Point{start}, true
	}

	sc, gc := c.chunkOf(start), c.chunkOf(goal)
	if sc == gc {
		if path, _, ok := search(c.grid, c.chunkRect(sc), start, goal); ok {
			return path, true
		}
	}

	// Temporary links from the endpoints into the abstract graph.
	startID, goalID := len(c.nodes), len(c.nodes)+1
	var startEdges []edge
	for _, id := range c.chunks[sc] {
		if path, cost, ok := search(c.grid, c.chunkRect(sc), start, c.nodes[id]); ok {
			startEdges = append(startEdges, edge{to: id, cost: cost, path: path[1:]})
		}
	}
	goalEdges := make(map[int]edge)
	for _, id := range c.chunks[gc] {
		if path, cost, ok := search(c.grid, c.chunkRect(gc), c.nodes[id], goal); ok {
			goalEdges[id] = edge{to: goalID, cost: cost, path: path[1:]}
		}
	}
	if len(startEdges) == 0 || len(goalEdges) == 0 {
		return nil, false
	}

	position := func(id int) geom.Point {
		switch id {
		case startID:
			return start
		case goalID:
			return goal
		}
		return c.nodes[id]
	}
	neighbours := func(id int, fn func(edge)) {
		if id == startID {
			for _, e := range startEdges {
				fn(e)
			}
			return
		}
		for _, e := range c.edges[id] {
			fn(e)
		}
		if e, ok := goalEdges[id]; ok {
			fn(e)
		}
	}

	n := len(c.nodes) + 2
	gScore := make([]int, n)
	for i := range gScore {
		gScore[i] = -1
	}
	via := make([]edge, n)
	from := make([]int, n)
	closed := make([]bool, n)

	gScore[startID] = 0
	from[startID] = -1
	open := &openSet{{idx: startID, f: octile(start, goal)}}

	for open.Len() > 0 {
		cur := heap.Pop(open).(openNode)
		if closed[cur.idx] {
			continue
		}
		closed[cur.idx] = true

		if cur.idx == goalID {
			var chain []edge
			for id := goalID; from[id] != -1; id = from[id] {
				chain = append(chain, via[id])
			}
			path := []geom.Point{start}
			for i := len(chain) - 1; i >= 0; i-- {
				path = append(path, chain[i].path...)
			}
			return path, true
		}

		neighbours(cur.idx, func(e edge) {
			if closed[e.to] {
				return
			}
			ng := cur.g + e.cost
			if gScore[e.to] == -1 || ng < gScore[e.to] {
				gScore[e.to] = ng
				from[e.to] = cur.idx
				via[e.to] = e
				heap.Push(open, openNode{idx: e.to, f: ng + octile(position(e.to), goal), g: ng})
			}
		})
	}

	return nil, false
}
