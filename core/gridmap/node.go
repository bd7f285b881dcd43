package gridmap

import "errors"

var (
	// ErrOutOfBounds is returned when a coordinate lies outside the grid.
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	// ErrCellOccupied is returned when placing a node on a cell that already
	// holds a different non-plain node.
	ErrCellOccupied = errors.New("cell occupied")
)

// NodeKind enumerates the variants a grid cell can hold.
type NodeKind int

const (
	NodePlain NodeKind = iota
	NodeDepot
	NodeOrder
	NodeStalledTruck
)

func (k NodeKind) String() string {
	switch k {
	case NodePlain:
		return "plain"
	case NodeDepot:
		return "depot"
	case NodeOrder:
		return "order"
	case NodeStalledTruck:
		return "stalled_truck"
	default:
		return "unknown"
	}
}

// Node is the content of a single cell. Ref holds the depot, order or truck
// code; Central is only meaningful for depots.
type Node struct {
	Kind    NodeKind `json:"kind"`
	Ref     string   `json:"ref,omitempty"`
	Central bool     `json:"central,omitempty"`
}

// Plain is the empty cell.
var Plain = Node{Kind: NodePlain}

func DepotNode(code string, central bool) Node {
	return Node{Kind: NodeDepot, Ref: code, Central: central}
}

func OrderNode(code string) Node { return Node{Kind: NodeOrder, Ref: code} }

func StalledTruckNode(code string) Node { return Node{Kind: NodeStalledTruck, Ref: code} }
