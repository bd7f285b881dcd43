package model

import "fmt"

// WaypointKind distinguishes the stops a route can contain.
type WaypointKind int

const (
	WaypointOrder WaypointKind = iota
	WaypointDepot
	WaypointStalledTruck
)

func (k WaypointKind) String() string {
	switch k {
	case WaypointOrder:
		return "order"
	case WaypointDepot:
		return "depot"
	case WaypointStalledTruck:
		return "stalled_truck"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind with its name.
func (k WaypointKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses a kind name.
func (k *WaypointKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "order":
		*k = WaypointOrder
	case "depot":
		*k = WaypointDepot
	case "stalled_truck":
		*k = WaypointStalledTruck
	default:
		return fmt.Errorf("unknown waypoint kind %q", string(b))
	}
	return nil
}

// Waypoint is one stop of a route. Ref is the code of the order, depot or
// stalled truck it points to.
type Waypoint struct {
	Kind     WaypointKind `json:"kind"`
	Ref      string       `json:"ref"`
	Position Coordinate   `json:"position"`
}

// IsTask reports whether the waypoint must be covered exactly once by a plan.
func (w Waypoint) IsTask() bool {
	return w.Kind == WaypointOrder || w.Kind == WaypointStalledTruck
}
