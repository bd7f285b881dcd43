package model

import (
	"fmt"
	"time"
)

// Blockage closes the road along a polyline of grid coordinates during a
// time window. Consecutive nodes must share a row or a column.
type Blockage struct {
	Start time.Time    `json:"start"`
	End   time.Time    `json:"end"`
	Nodes []Coordinate `json:"nodes"`
}

// Active reports whether the blockage is in force at t (exclusive bounds).
func (b Blockage) Active(t time.Time) bool {
	return b.Start.Before(t) && t.Before(b.End)
}

// Validate checks the window and that every segment is axis aligned.
func (b Blockage) Validate() error {
	if !b.End.After(b.Start) {
		return fmt.Errorf("blockage end must be after start")
	}
	if len(b.Nodes) < 2 {
		return fmt.Errorf("blockage needs at least two nodes")
	}
	for i := 1; i < len(b.Nodes); i++ {
		a, c := b.Nodes[i-1], b.Nodes[i]
		if a.X != c.X && a.Y != c.Y {
			return fmt.Errorf("blockage segment %s-%s is not axis aligned", a, c)
		}
	}
	return nil
}

// Edges expands the polyline into unit edges.
func (b Blockage) Edges() []Edge {
	var out []Edge
	for i := 1; i < len(b.Nodes); i++ {
		a, c := b.Nodes[i-1], b.Nodes[i]
		dx, dy := sign(c.X-a.X), sign(c.Y-a.Y)
		if dx != 0 && dy != 0 {
			continue
		}
		cur := a
		for cur != c {
			next := Coordinate{X: cur.X + dx, Y: cur.Y + dy}
			out = append(out, NewEdge(cur, next))
			cur = next
		}
	}
	return out
}

// Covers reports whether p lies on the polyline.
func (b Blockage) Covers(p Coordinate) bool {
	if len(b.Nodes) == 1 {
		return b.Nodes[0] == p
	}
	for i := 1; i < len(b.Nodes); i++ {
		a, c := b.Nodes[i-1], b.Nodes[i]
		if a.X == c.X && p.X == a.X && between(p.Y, a.Y, c.Y) {
			return true
		}
		if a.Y == c.Y && p.Y == a.Y && between(p.X, a.X, c.X) {
			return true
		}
	}
	return false
}

// Clone returns a copy with its own node slice.
func (b Blockage) Clone() Blockage {
	b.Nodes = append([]Coordinate(nil), b.Nodes...)
	return b
}

func between(v, a, b int) bool {
	if a > b {
		a, b = b, a
	}
	return v >= a && v <= b
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
