package fleet

import "github.com/kilianp07/glpdispatch/core/model"

// State is a deep copy of every registry, used to roll back committed plans.
type State struct {
	Trucks     []model.Truck     `json:"trucks"`
	Depots     []model.Depot     `json:"depots"`
	Orders     []model.Order     `json:"orders"`
	Breakdowns []model.Breakdown `json:"breakdowns"`
}

// Registry groups the registries owned by one simulation.
type Registry struct {
	Trucks     *FleetRegistry
	Depots     *DepotRegistry
	Orders     *OrderRegistry
	Breakdowns *BreakdownRegistry
}

// NewRegistry returns empty registries.
func NewRegistry() *Registry {
	return &Registry{
		Trucks:     NewFleetRegistry(),
		Depots:     NewDepotRegistry(),
		Orders:     NewOrderRegistry(),
		Breakdowns: NewBreakdownRegistry(),
	}
}

// Snapshot captures the current content of every registry.
func (r *Registry) Snapshot() State {
	return State{
		Trucks:     r.Trucks.List(),
		Depots:     r.Depots.List(),
		Orders:     r.Orders.List(),
		Breakdowns: r.Breakdowns.List(),
	}
}

// Restore replaces every registry with the content of s.
func (r *Registry) Restore(s State) {
	r.Trucks.s.replace(s.Trucks, func(t model.Truck) string { return t.Code })
	r.Depots.s.replace(s.Depots, func(d model.Depot) string { return d.Code })
	r.Orders.s.replace(s.Orders, func(o model.Order) string { return o.Code })
	r.Breakdowns.s.replace(s.Breakdowns, func(b model.Breakdown) string { return b.ID })
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	cp := State{
		Trucks:     make([]model.Truck, len(s.Trucks)),
		Depots:     append([]model.Depot(nil), s.Depots...),
		Orders:     append([]model.Order(nil), s.Orders...),
		Breakdowns: append([]model.Breakdown(nil), s.Breakdowns...),
	}
	for i, t := range s.Trucks {
		cp.Trucks[i] = t.Clone()
	}
	return cp
}
