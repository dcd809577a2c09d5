// Package pathfind plans ship routes over the tile grid: a straight-line
// shortcut for open water and a hierarchical path cache for everything else.
package pathfind

import (
	"container/heap"

	"isles-of-conquest/pkg/geom"
)

// Grid is the traversal cost field. Cost returns a positive step cost for
// traversable tiles and a negative value for blocked ones.
type Grid interface {
	Width() int
	Height() int
	Cost(x, y int) int
}

const (
	costStraight = 10
	costDiagonal = 14
)

var neighbors8 = [8]geom.Point{
	{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1},
	{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1},
}

// rect is a half-open tile rectangle.
type rect struct {
	x0, y0, x1, y1 int
}

func (r rect) contains(p geom.Point) bool {
	return p.X >= r.x0 && p.X < r.x1 && p.Y >= r.y0 && p.Y < r.y1
}

func (r rect) width() int  { return r.x1 - r.x0 }
func (r rect) height() int { return r.y1 - r.y0 }

func passable(g Grid, p geom.Point) bool {
	if p.X < 0 || p.Y < 0 || p.X >= g.Width() || p.Y >= g.Height() {
		return false
	}
	return g.Cost(p.X, p.Y) > 0
}

func octile(a, b geom.Point) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return costStraight*(dx+dy) + (costDiagonal-2*costStraight)*min(dx, dy)
}

type openNode struct {
	idx int
	f   int
	g   int
}

type openSet []openNode

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	if o[i].g != o[j].g {
		return o[i].g > o[j].g
	}
	return o[i].idx < o[j].idx
}
func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o *openSet) Push(x any)   { *o = append(*o, x.(openNode)) }
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	*o = old[:len(old)-1]
	return n
}

// search runs A* from start to goal without leaving r. Moves are
// 8-connected; a diagonal step needs both orthogonal neighbours open.
func search(g Grid, r rect, start, goal geom.Point) ([]geom.Point, int, bool) {
	if !r.contains(start) || !r.contains(goal) || !passable(g, start) || !passable(g, goal) {
		return nil, 0, false
	}
	if start == goal {
		return []geom.Point{start}, 0, true
	}

	w := r.width()
	n := w * r.height()
	local := func(p geom.Point) int { return (p.Y-r.y0)*w + (p.X - r.x0) }
	point := func(i int) geom.Point { return geom.Point{X: r.x0 + i%w, Y: r.y0 + i/w} }

	gScore := make([]int, n)
	for i := range gScore {
		gScore[i] = -1
	}
	parent := make([]int32, n)
	closed := make([]bool, n)

	startIdx, goalIdx := local(start), local(goal)
	gScore[startIdx] = 0
	parent[startIdx] = -1
	open := &openSet{{idx: startIdx, f: octile(start, goal)}}

	for open.Len() > 0 {
		cur := heap.Pop(open).(openNode)
		if closed[cur.idx] {
			continue
		}
		closed[cur.idx] = true

		if cur.idx == goalIdx {
			var path []geom.Point
			for i := int32(goalIdx); i != -1; i = parent[i] {
				path = append(path, point(int(i)))
			}
			for a, b := 0, len(path)-1; a < b; a, b = a+1, b-1 {
				path[a], path[b] = path[b], path[a]
			}
			return path, cur.g, true
		}

		p := point(cur.idx)
		for _, d := range neighbors8 {
			q := p.Add(d)
			if !r.contains(q) || !passable(g, q) {
				continue
			}
			step := costStraight
			if d.X != 0 && d.Y != 0 {
				if !passable(g, geom.Point{X: p.X + d.X, Y: p.Y}) || !passable(g, geom.Point{X: p.X, Y: p.Y + d.Y}) {
					continue
				}
				step = costDiagonal
			}
			qi := local(q)
			if closed[qi] {
				continue
			}
			ng := cur.g + step*g.Cost(q.X, q.Y)
			if gScore[qi] == -1 || ng < gScore[qi] {
				gScore[qi] = ng
				parent[qi] = int32(cur.idx)
				heap.Push(open, openNode{idx: qi, f: ng + octile(q, goal), g: ng})
			}
		}
	}

	return nil, 0, false
}
