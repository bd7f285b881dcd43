package fleet

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/glpdispatch/core/model"
)

var (
	// ErrUnknownTruck is returned when a truck code is not registered.
	ErrUnknownTruck = errors.New("unknown truck")
	ErrUnknownDepot = errors.New("unknown depot")
	ErrUnknownOrder = errors.New("unknown order")
	// ErrDuplicate is returned when registering a code twice.
	ErrDuplicate = errors.New("duplicate code")
)

// FleetRegistry stores the trucks of the fleet.
type FleetRegistry struct{ s *keyed[model.Truck] }

func NewFleetRegistry() *FleetRegistry {
	return &FleetRegistry{s: newKeyed(model.Truck.Clone)}
}

// Add registers a new truck.
func (r *FleetRegistry) Add(t model.Truck) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if r.s.has(t.Code) {
		return fmt.Errorf("truck %s: %w", t.Code, ErrDuplicate)
	}
	r.s.put(t.Code, t)
	return nil
}

// Get returns a copy of the truck.
func (r *FleetRegistry) Get(code string) (model.Truck, error) {
	t, ok := r.s.get(code)
	if !ok {
		return model.Truck{}, fmt.Errorf("%s: %w", code, ErrUnknownTruck)
	}
	return t, nil
}

// Set overwrites a registered truck.
func (r *FleetRegistry) Set(t model.Truck) error {
	if !r.s.has(t.Code) {
		return fmt.Errorf("%s: %w", t.Code, ErrUnknownTruck)
	}
	r.s.put(t.Code, t)
	return nil
}

// Update applies fn to the stored truck under the registry lock.
func (r *FleetRegistry) Update(code string, fn func(*model.Truck)) error {
	if !r.s.update(code, fn) {
		return fmt.Errorf("%s: %w", code, ErrUnknownTruck)
	}
	return nil
}

// List returns every truck sorted by code.
func (r *FleetRegistry) List() []model.Truck { return r.s.list() }

// Available returns the AVAILABLE trucks sorted by code.
func (r *FleetRegistry) Available() []model.Truck {
	var out []model.Truck
	for _, t := range r.s.list() {
		if t.Available() {
			out = append(out, t)
		}
	}
	return out
}

func (r *FleetRegistry) Len() int { return r.s.len() }

// DepotRegistry stores depots.
type DepotRegistry struct{ s *keyed[model.Depot] }

func NewDepotRegistry() *DepotRegistry {
	return &DepotRegistry{s: newKeyed[model.Depot](nil)}
}

func (r *DepotRegistry) Add(d model.Depot) error {
	if d.Code == "" {
		return fmt.Errorf("depot code is required")
	}
	if r.s.has(d.Code) {
		return fmt.Errorf("depot %s: %w", d.Code, ErrDuplicate)
	}
	r.s.put(d.Code, d)
	return nil
}

func (r *DepotRegistry) Get(code string) (model.Depot, error) {
	d, ok := r.s.get(code)
	if !ok {
		return model.Depot{}, fmt.Errorf("%s: %w", code, ErrUnknownDepot)
	}
	return d, nil
}

func (r *DepotRegistry) Set(d model.Depot) error {
	if !r.s.has(d.Code) {
		return fmt.Errorf("%s: %w", d.Code, ErrUnknownDepot)
	}
	r.s.put(d.Code, d)
	return nil
}

func (r *DepotRegistry) List() []model.Depot { return r.s.list() }

// Central returns the central depots sorted by code.
func (r *DepotRegistry) Central() []model.Depot {
	var out []model.Depot
	for _, d := range r.s.list() {
		if d.Central {
			out = append(out, d)
		}
	}
	return out
}

// RefillSecondary resets every secondary depot to full inventory and returns
// how many were refilled.
func (r *DepotRegistry) RefillSecondary() int {
	n := 0
	for _, d := range r.s.list() {
		if d.Central {
			continue
		}
		r.s.update(d.Code, func(x *model.Depot) { x.Refill() })
		n++
	}
	return n
}

// NearestCentral returns the central depot closest to c by Manhattan
// distance, ties broken by code.
func NearestCentral(depots []model.Depot, c model.Coordinate) (model.Depot, bool) {
	best, bestDist, found := model.Depot{}, math.MaxInt, false
	for _, d := range depots {
		if !d.Central {
			continue
		}
		dist := d.Position.Manhattan(c)
		if !found || dist < bestDist || (dist == bestDist && d.Code < best.Code) {
			best, bestDist, found = d, dist, true
		}
	}
	return best, found
}

// OrderRegistry stores customer orders. Orders are never removed.
type OrderRegistry struct{ s *keyed[model.Order] }

func NewOrderRegistry() *OrderRegistry {
	return &OrderRegistry{s: newKeyed[model.Order](nil)}
}

func (r *OrderRegistry) Add(o model.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if r.s.has(o.Code) {
		return fmt.Errorf("order %s: %w", o.Code, ErrDuplicate)
	}
	r.s.put(o.Code, o)
	return nil
}

func (r *OrderRegistry) Get(code string) (model.Order, error) {
	o, ok := r.s.get(code)
	if !ok {
		return model.Order{}, fmt.Errorf("%s: %w", code, ErrUnknownOrder)
	}
	return o, nil
}

func (r *OrderRegistry) Set(o model.Order) error {
	if !r.s.has(o.Code) {
		return fmt.Errorf("%s: %w", o.Code, ErrUnknownOrder)
	}
	r.s.put(o.Code, o)
	return nil
}

func (r *OrderRegistry) Update(code string, fn func(*model.Order)) error {
	if !r.s.update(code, fn) {
		return fmt.Errorf("%s: %w", code, ErrUnknownOrder)
	}
	return nil
}

func (r *OrderRegistry) List() []model.Order { return r.s.list() }

// Undelivered returns orders not yet DELIVERED sorted by code.
func (r *OrderRegistry) Undelivered() []model.Order {
	var out []model.Order
	for _, o := range r.s.list() {
		if o.State != model.OrderDelivered {
			out = append(out, o)
		}
	}
	return out
}

// BreakdownRegistry keeps every breakdown ever reported, keyed by ID.
type BreakdownRegistry struct{ s *keyed[model.Breakdown] }

func NewBreakdownRegistry() *BreakdownRegistry {
	return &BreakdownRegistry{s: newKeyed[model.Breakdown](nil)}
}

func (r *BreakdownRegistry) Add(b model.Breakdown) {
	r.s.put(b.ID, b)
}

func (r *BreakdownRegistry) List() []model.Breakdown { return r.s.list() }

// Latest returns the most recent breakdown of a truck.
func (r *BreakdownRegistry) Latest(truckCode string) (model.Breakdown, bool) {
	var (
		best  model.Breakdown
		found bool
	)
	for _, b := range r.s.list() {
		if b.TruckCode != truckCode {
			continue
		}
		if !found || b.OccurredAt.After(best.OccurredAt) {
			best, found = b, true
		}
	}
	return best, found
}
