package model

import (
	"fmt"
	"time"
)

const (
	// GLPTonsPerM3 is the weight of one cubic metre of liquefied gas.
	GLPTonsPerM3 = 0.5
	// FuelWeightConstant divides distance × combined weight to obtain gallons.
	FuelWeightConstant = 180.0
)

// TruckClass identifies one of the fleet's tank truck models.
type TruckClass string

const (
	ClassTA TruckClass = "TA"
	ClassTB TruckClass = "TB"
	ClassTC TruckClass = "TC"
	ClassTD TruckClass = "TD"
)

// ClassSpec holds the fixed characteristics of a truck class.
type ClassSpec struct {
	TareTons float64
	GLPMax   float64 // m³
	FuelMax  float64 // gallons
}

var classSpecs = map[TruckClass]ClassSpec{
	ClassTA: {TareTons: 2.5, GLPMax: 25, FuelMax: 25},
	ClassTB: {TareTons: 2.0, GLPMax: 15, FuelMax: 25},
	ClassTC: {TareTons: 1.5, GLPMax: 10, FuelMax: 25},
	ClassTD: {TareTons: 1.0, GLPMax: 5, FuelMax: 25},
}

// Spec returns the class characteristics and whether the class is known.
func (c TruckClass) Spec() (ClassSpec, bool) {
	s, ok := classSpecs[c]
	return s, ok
}

// TruckState is the operational state of a truck.
type TruckState int

const (
	StateAvailable TruckState = iota
	StateImmobilized
	StateRelocating
	StateUnderMaintenance
	StateOutOfFuel
)

var truckStateNames = map[TruckState]string{
	StateAvailable:        "AVAILABLE",
	StateImmobilized:      "IMMOBILIZED_BREAKDOWN",
	StateRelocating:       "RELOCATING_TO_DEPOT",
	StateUnderMaintenance: "UNDER_MAINTENANCE",
	StateOutOfFuel:        "OUT_OF_FUEL",
}

func (s TruckState) String() string {
	if n, ok := truckStateNames[s]; ok {
		return n
	}
	return "unknown"
}

// MarshalText encodes the state with its canonical name.
func (s TruckState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a canonical state name.
func (s *TruckState) UnmarshalText(b []byte) error {
	for k, v := range truckStateNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown truck state %q", string(b))
}

// Truck is a tank truck of the fleet.
type Truck struct {
	Code        string     `json:"code"`
	Class       TruckClass `json:"class"`
	Position    Coordinate `json:"position"`
	FuelCurrent float64    `json:"fuel_current"`
	GLPCurrent  float64    `json:"glp_current"`
	State       TruckState `json:"state"`
	// RelocationEnd is the instant a RELOCATING_TO_DEPOT truck reaches its depot.
	RelocationEnd time.Time `json:"relocation_end,omitempty"`
	// AvailableAt is when an immobilized or maintained truck is released.
	AvailableAt time.Time `json:"available_at,omitempty"`
	// AssignedRoute is the route committed by the last plan.
	AssignedRoute []Waypoint `json:"assigned_route,omitempty"`
}

// NewTruck returns a full, available truck of the given class.
func NewTruck(code string, class TruckClass, pos Coordinate) (Truck, error) {
	spec, ok := class.Spec()
	if !ok {
		return Truck{}, fmt.Errorf("unknown truck class %q", class)
	}
	return Truck{
		Code:        code,
		Class:       class,
		Position:    pos,
		FuelCurrent: spec.FuelMax,
		GLPCurrent:  spec.GLPMax,
		State:       StateAvailable,
	}, nil
}

// Validate checks the class and the fuel/GLP bounds.
func (t Truck) Validate() error {
	spec, ok := t.Class.Spec()
	if !ok {
		return fmt.Errorf("truck %s: unknown class %q", t.Code, t.Class)
	}
	if t.Code == "" {
		return fmt.Errorf("truck code is required")
	}
	if t.FuelCurrent < 0 || t.FuelCurrent > spec.FuelMax {
		return fmt.Errorf("truck %s: fuel %.3f outside [0,%.1f]", t.Code, t.FuelCurrent, spec.FuelMax)
	}
	if t.GLPCurrent < 0 || t.GLPCurrent > spec.GLPMax {
		return fmt.Errorf("truck %s: glp %.3f outside [0,%.1f]", t.Code, t.GLPCurrent, spec.GLPMax)
	}
	return nil
}

// GLPMax returns the tank capacity in m³.
func (t Truck) GLPMax() float64 {
	s, _ := t.Class.Spec()
	return s.GLPMax
}

// FuelMax returns the fuel tank capacity in gallons.
func (t Truck) FuelMax() float64 {
	s, _ := t.Class.Spec()
	return s.FuelMax
}

// CombinedWeight returns tare plus cargo weight in tonnes.
func (t Truck) CombinedWeight() float64 {
	s, _ := t.Class.Spec()
	return s.TareTons + t.GLPCurrent*GLPTonsPerM3
}

// FuelFor returns the gallons needed to drive km with the current load.
func (t Truck) FuelFor(km float64) float64 {
	return km * t.CombinedWeight() / FuelWeightConstant
}

// Available reports whether the truck can receive a route.
func (t Truck) Available() bool { return t.State == StateAvailable }

// Clone returns a deep copy safe to mutate concurrently with the original.
func (t Truck) Clone() Truck {
	cp := t
	if t.AssignedRoute != nil {
		cp.AssignedRoute = append([]Waypoint(nil), t.AssignedRoute...)
	}
	return cp
}
