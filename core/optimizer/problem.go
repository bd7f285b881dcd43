package optimizer

import (
	"sort"
	"time"

	"github.com/kilianp07/glpdispatch/core/model"
)

// Problem is the immutable input of one optimizer run. Ready holds the
// instant a truck becomes usable when that is later than Start.
type Problem struct {
	Start   time.Time
	Trucks  []model.Truck
	Orders  []model.Order
	Stalled []model.Truck
	Depots  []model.Depot
	Ready   map[string]time.Time
}

// StartOf returns the instant the truck's route may begin.
func (p Problem) StartOf(code string) time.Time {
	if r, ok := p.Ready[code]; ok && r.After(p.Start) {
		return r
	}
	return p.Start
}

// Env holds the mutable copies of orders, depots and stalled trucks an
// Individual is evaluated against.
type Env struct {
	Orders  map[string]*model.Order
	Depots  map[string]*model.Depot
	Stalled map[string]*model.Truck
}

// NewEnv deep copies the problem state.
func (p Problem) NewEnv() *Env {
	env := &Env{
		Orders:  make(map[string]*model.Order, len(p.Orders)),
		Depots:  make(map[string]*model.Depot, len(p.Depots)),
		Stalled: make(map[string]*model.Truck, len(p.Stalled)),
	}
	for _, o := range p.Orders {
		o := o
		env.Orders[o.Code] = &o
	}
	for _, d := range p.Depots {
		d := d
		env.Depots[d.Code] = &d
	}
	for _, s := range p.Stalled {
		s := s.Clone()
		env.Stalled[s.Code] = &s
	}
	return env
}

// tasks lists the waypoints every plan must cover: orders then rescues,
// each sorted by code.
func (p Problem) tasks() []model.Waypoint {
	orders := append([]model.Order(nil), p.Orders...)
	sort.Slice(orders, func(i, j int) bool { return orders[i].Code < orders[j].Code })
	stalled := append([]model.Truck(nil), p.Stalled...)
	sort.Slice(stalled, func(i, j int) bool { return stalled[i].Code < stalled[j].Code })

	out := make([]model.Waypoint, 0, len(orders)+len(stalled))
	for _, o := range orders {
		out = append(out, model.Waypoint{Kind: model.WaypointOrder, Ref: o.Code, Position: o.Position})
	}
	for _, s := range stalled {
		out = append(out, model.Waypoint{Kind: model.WaypointStalledTruck, Ref: s.Code, Position: s.Position})
	}
	return out
}

func (p Problem) sortedTrucks() []model.Truck {
	out := make([]model.Truck, len(p.Trucks))
	for i, t := range p.Trucks {
		out[i] = t.Clone()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
