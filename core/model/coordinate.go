package model

import "fmt"

// Coordinate is an integer grid position. X grows eastwards and Y northwards;
// one unit between neighbours is one kilometre.
type Coordinate struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Manhattan returns the 4-directional grid distance between two coordinates.
func (c Coordinate) Manhattan(o Coordinate) int {
	return abs(c.X-o.X) + abs(c.Y-o.Y)
}

// Neighbors returns the four orthogonal neighbours in a fixed order
// (east, west, north, south). Bounds are checked by the caller.
func (c Coordinate) Neighbors() [4]Coordinate {
	return [4]Coordinate{
		{X: c.X + 1, Y: c.Y},
		{X: c.X - 1, Y: c.Y},
		{X: c.X, Y: c.Y + 1},
		{X: c.X, Y: c.Y - 1},
	}
}

func (c Coordinate) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Edge is an undirected unit segment between two adjacent coordinates.
// Use NewEdge so that both directions compare equal.
type Edge struct {
	A Coordinate
	B Coordinate
}

// NewEdge returns the normalised edge between a and b.
func NewEdge(a, b Coordinate) Edge {
	if b.X < a.X || (b.X == a.X && b.Y < a.Y) {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
