package optimizer

import (
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/glpdispatch/core/model"
)

// PathFinder answers time-dependent shortest path queries.
type PathFinder interface {
	ShortestPath(from, to model.Coordinate, at time.Time) []model.Coordinate
	IsNodeBlocked(c model.Coordinate, at time.Time) bool
}

// Evaluator scores a route by simulating it on copies of the truck and the
// environment.
type Evaluator struct {
	grid       PathFinder
	kmDuration float64 // nanoseconds per km
	service    time.Duration
	allocation Allocation
}

// NewEvaluator returns an evaluator using grid for pathfinding.
func NewEvaluator(grid PathFinder, cfg EvaluatorConfig) *Evaluator {
	cfg.SetDefaults()
	return &Evaluator{
		grid:       grid,
		kmDuration: float64(time.Hour) / cfg.AvgSpeedKmh,
		service:    cfg.serviceTime(),
		allocation: cfg.Allocation,
	}
}

// TravelTime returns the driving time for km kilometres.
func (e *Evaluator) TravelTime(km int) time.Duration {
	return time.Duration(float64(km) * e.kmDuration)
}

// Evaluate drives truck through waypoints starting at start. Deliveries,
// depot draws and rescue transfers are applied to env.
func (e *Evaluator) Evaluate(start time.Time, truck model.Truck, waypoints []model.Waypoint, env *Env) Gene {
	g := Gene{Truck: truck.Clone(), Waypoints: append([]model.Waypoint(nil), waypoints...)}
	cur := truck.Clone()
	cur.AssignedRoute = nil
	t := start
	g.Path = []model.Coordinate{cur.Position}
	g.Trace = []TracePoint{{Position: cur.Position, At: t, Fuel: cur.FuelCurrent, GLP: cur.GLPCurrent}}

	ordersLeft := 0
	for _, w := range waypoints {
		if w.Kind == model.WaypointOrder {
			ordersLeft++
		}
	}

	var detour []model.Coordinate
	for _, wp := range waypoints {
		if len(detour) > 1 {
			if err := e.drive(&g, &cur, &t, detour); err != nil {
				return g.fail(err, cur)
			}
		}
		detour = nil

		path := e.grid.ShortestPath(cur.Position, wp.Position, t)
		if len(path) == 0 {
			return g.fail(fmt.Errorf("%s to %s: %w", cur.Position, wp.Position, ErrPathNotFound), cur)
		}
		if err := e.drive(&g, &cur, &t, path); err != nil {
			return g.fail(err, cur)
		}
		v := Visit{Waypoint: wp, Arrival: t}

		switch wp.Kind {
		case model.WaypointOrder:
			o, ok := env.Orders[wp.Ref]
			if !ok {
				return g.fail(fmt.Errorf("order %s: %w", wp.Ref, ErrRouteInfeasible), cur)
			}
			if t.After(o.Deadline) {
				return g.fail(fmt.Errorf("order %s reached at %s after deadline %s: %w",
					o.Code, t.Format(time.RFC3339), o.Deadline.Format(time.RFC3339), ErrRouteInfeasible), cur)
			}
			want := o.Remaining()
			if e.allocation == AllocationEven && ordersLeft > 0 {
				want = math.Min(want, cur.GLPCurrent/float64(ordersLeft))
			}
			want = math.Min(want, cur.GLPCurrent)
			got := o.Deliver(want)
			cur.GLPCurrent = math.Max(0, cur.GLPCurrent-got)
			v.Volume = got
			g.Delivered += got
			ordersLeft--
			if e.grid.IsNodeBlocked(wp.Position, t) {
				detour = reversed(path)
			}
		case model.WaypointDepot:
			d, ok := env.Depots[wp.Ref]
			if !ok {
				return g.fail(fmt.Errorf("depot %s: %w", wp.Ref, ErrRouteInfeasible), cur)
			}
			v.Volume = d.DrawGLP(cur.GLPMax() - cur.GLPCurrent)
			cur.GLPCurrent += v.Volume
			v.Fuel = d.DrawFuel(cur.FuelMax() - cur.FuelCurrent)
			cur.FuelCurrent += v.Fuel
		case model.WaypointStalledTruck:
			s, ok := env.Stalled[wp.Ref]
			if !ok {
				return g.fail(fmt.Errorf("stalled truck %s: %w", wp.Ref, ErrRouteInfeasible), cur)
			}
			amt := math.Min(cur.GLPMax()-cur.GLPCurrent, s.GLPCurrent)
			s.GLPCurrent -= amt
			cur.GLPCurrent += amt
			v.Volume = amt
		}

		t = t.Add(e.service)
		v.Departure = t
		g.Visits = append(g.Visits, v)
		g.Trace = append(g.Trace, TracePoint{Position: cur.Position, At: t, Fuel: cur.FuelCurrent, GLP: cur.GLPCurrent})
	}
	g.End = cur
	g.Fitness = g.Distance
	return g
}

// drive moves cur along path one kilometre at a time, burning fuel for the
// current load.
func (e *Evaluator) drive(g *Gene, cur *model.Truck, t *time.Time, path []model.Coordinate) error {
	legStart := *t
	for k := 1; k < len(path); k++ {
		burn := cur.FuelFor(1)
		if cur.FuelCurrent+1e-9 < burn {
			*t = legStart.Add(time.Duration(float64(k-1) * e.kmDuration))
			return fmt.Errorf("%s at %s: %w", cur.Code, cur.Position, ErrTruckStranded)
		}
		cur.FuelCurrent = math.Max(0, cur.FuelCurrent-burn)
		cur.Position = path[k]
		at := legStart.Add(time.Duration(float64(k) * e.kmDuration))
		g.Distance++
		g.Path = append(g.Path, cur.Position)
		g.Trace = append(g.Trace, TracePoint{Position: cur.Position, At: at, Fuel: cur.FuelCurrent, GLP: cur.GLPCurrent})
	}
	*t = legStart.Add(time.Duration(float64(len(path)-1) * e.kmDuration))
	return nil
}

func (g Gene) fail(err error, cur model.Truck) Gene {
	g.Err = err
	g.End = cur
	g.Fitness = math.Inf(1)
	return g
}

func reversed(p []model.Coordinate) []model.Coordinate {
	out := make([]model.Coordinate, len(p))
	for i, c := range p {
		out[len(p)-1-i] = c
	}
	return out
}
