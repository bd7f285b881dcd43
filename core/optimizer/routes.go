package optimizer

import (
	"math"

	"github.com/kilianp07/glpdispatch/core/fleet"
	"github.com/kilianp07/glpdispatch/core/model"
)

// prepared caches what the genetic operators need from a Problem.
type prepared struct {
	problem Problem
	tasks   []model.Waypoint
	trucks  []model.Truck
	demand  map[string]float64
	rescue  map[string]float64
	depots  []model.Depot
}

func prepare(p Problem) *prepared {
	pr := &prepared{
		problem: p,
		tasks:   p.tasks(),
		trucks:  p.sortedTrucks(),
		demand:  make(map[string]float64, len(p.Orders)),
		rescue:  make(map[string]float64, len(p.Stalled)),
		depots:  append([]model.Depot(nil), p.Depots...),
	}
	for _, o := range p.Orders {
		pr.demand[o.Code] = o.Remaining()
	}
	for _, s := range p.Stalled {
		pr.rescue[s.Code] = s.GLPCurrent
	}
	return pr
}

// nearestDepot returns the closest depot able to supply GLP, ties broken by code.
func (pr *prepared) nearestDepot(c model.Coordinate) (model.Depot, bool) {
	var (
		best  model.Depot
		dist  = math.MaxInt
		found bool
	)
	for _, d := range pr.depots {
		if !d.Central && d.GLPCurrent <= model.DeliveryEpsilon {
			continue
		}
		dd := d.Position.Manhattan(c)
		if !found || dd < dist || (dd == dist && d.Code < best.Code) {
			best, dist, found = d, dd, true
		}
	}
	return best, found
}

func depotWaypoint(d model.Depot) model.Waypoint {
	return model.Waypoint{Kind: model.WaypointDepot, Ref: d.Code, Position: d.Position}
}

// route expands a task list into the waypoints of a gene. A refill stop at
// the nearest depot is inserted before a task when the estimated GLP or fuel
// would not cover it, and the route ends at the nearest central depot.
// Estimates use Manhattan distances.
func (pr *prepared) route(truck model.Truck, tasks []model.Waypoint) []model.Waypoint {
	if len(tasks) == 0 {
		return nil
	}
	spec, _ := truck.Class.Spec()
	glp, fuel, pos := truck.GLPCurrent, truck.FuelCurrent, truck.Position
	burn := func(km int, load float64) float64 {
		return float64(km) * (spec.TareTons + load*model.GLPTonsPerM3) / model.FuelWeightConstant
	}

	out := make([]model.Waypoint, 0, len(tasks)+2)
	for _, task := range tasks {
		need := 0.0
		if task.Kind == model.WaypointOrder {
			need = pr.demand[task.Ref]
		}
		reserve := 0
		if d, ok := pr.nearestDepot(task.Position); ok {
			reserve = d.Position.Manhattan(task.Position)
		}
		lowGLP := need > glp+model.DeliveryEpsilon && glp < spec.GLPMax-model.DeliveryEpsilon
		lowFuel := fuel < burn(pos.Manhattan(task.Position)+reserve, glp)
		if lowGLP || lowFuel {
			if d, ok := pr.nearestDepot(pos); ok {
				fuel -= burn(pos.Manhattan(d.Position), glp)
				out = append(out, depotWaypoint(d))
				glp, fuel, pos = spec.GLPMax, spec.FuelMax, d.Position
			}
		}
		fuel -= burn(pos.Manhattan(task.Position), glp)
		out = append(out, task)
		switch task.Kind {
		case model.WaypointOrder:
			glp -= math.Min(glp, need)
		case model.WaypointStalledTruck:
			glp = math.Min(spec.GLPMax, glp+pr.rescue[task.Ref])
		}
		pos = task.Position
	}
	if d, ok := fleet.NearestCentral(pr.depots, pos); ok {
		out = append(out, depotWaypoint(d))
	}
	return out
}
