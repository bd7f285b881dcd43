package gridmap

import (
	"container/heap"

	"github.com/kilianp07/glpdispatch/core/model"
)

type openItem struct {
	idx int
	g   int
	f   int
	seq uint64
}

// openSet orders by f, then by insertion sequence.
type openSet []openItem

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}
func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o *openSet) Push(x any)   { *o = append(*o, x.(openItem)) }
func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	it := old[n-1]
	*o = old[:n-1]
	return it
}

func astar(width, height int, from, to model.Coordinate, blocked func(model.Edge) bool) []model.Coordinate {
	cols := width + 1
	size := cols * (height + 1)
	index := func(c model.Coordinate) int { return c.Y*cols + c.X }
	coord := func(i int) model.Coordinate { return model.Coordinate{X: i % cols, Y: i / cols} }

	gScore := make([]int, size)
	for i := range gScore {
		gScore[i] = -1
	}
	parent := make([]int32, size)
	closed := make([]bool, size)

	start, goal := index(from), index(to)
	gScore[start] = 0
	parent[start] = -1

	open := &openSet{}
	var seq uint64
	heap.Push(open, openItem{idx: start, g: 0, f: from.Manhattan(to), seq: seq})

	for open.Len() > 0 {
		cur := heap.Pop(open).(openItem)
		if closed[cur.idx] || cur.g != gScore[cur.idx] {
			continue
		}
		if cur.idx == goal {
			return reconstruct(parent, goal, coord)
		}
		closed[cur.idx] = true
		c := coord(cur.idx)
		for _, n := range c.Neighbors() {
			if n.X < 0 || n.Y < 0 || n.X > width || n.Y > height {
				continue
			}
			ni := index(n)
			if closed[ni] || blocked(model.NewEdge(c, n)) {
				continue
			}
			ng := cur.g + 1
			if gScore[ni] >= 0 && ng >= gScore[ni] {
				continue
			}
			gScore[ni] = ng
			parent[ni] = int32(cur.idx)
			seq++
			heap.Push(open, openItem{idx: ni, g: ng, f: ng + n.Manhattan(to), seq: seq})
		}
	}
	return nil
}

func reconstruct(parent []int32, goal int, coord func(int) model.Coordinate) []model.Coordinate {
	var rev []model.Coordinate
	for i := goal; i >= 0; i = int(parent[i]) {
		rev = append(rev, coord(i))
	}
	out := make([]model.Coordinate, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out
}
