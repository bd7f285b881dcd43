package optimizer

import (
	"math"
	"time"

	"github.com/kilianp07/glpdispatch/core/model"
)

// TracePoint is the truck state at one instant of a route.
type TracePoint struct {
	Position model.Coordinate `json:"position"`
	At       time.Time        `json:"at"`
	Fuel     float64          `json:"fuel"`
	GLP      float64          `json:"glp"`
}

// Visit records the service of one waypoint. Volume is the GLP delivered to
// an order, loaded at a depot or taken from a stalled truck; Fuel is the
// fuel loaded at a depot.
type Visit struct {
	Waypoint  model.Waypoint `json:"waypoint"`
	Arrival   time.Time      `json:"arrival"`
	Departure time.Time      `json:"departure"`
	Volume    float64        `json:"volume"`
	Fuel      float64        `json:"fuel,omitempty"`
}

// Gene is one truck's route inside an Individual together with its evaluation.
type Gene struct {
	Truck     model.Truck
	Waypoints []model.Waypoint
	Path      []model.Coordinate
	Trace     []TracePoint
	Visits    []Visit
	Distance  float64
	Delivered float64
	Fitness   float64
	End       model.Truck
	Err       error
}

// Feasible reports whether the gene has a finite fitness.
func (g Gene) Feasible() bool { return !math.IsInf(g.Fitness, 1) && !math.IsNaN(g.Fitness) }

// StateAt returns the truck state at cutoff and the visits whose service
// completed by then.
func (g Gene) StateAt(cutoff time.Time) (TracePoint, []Visit) {
	if len(g.Trace) == 0 {
		return TracePoint{Position: g.Truck.Position, At: cutoff, Fuel: g.Truck.FuelCurrent, GLP: g.Truck.GLPCurrent}, nil
	}
	last := g.Trace[0]
	for _, p := range g.Trace[1:] {
		if p.At.After(cutoff) {
			break
		}
		last = p
	}
	var done []Visit
	for _, v := range g.Visits {
		if v.Departure.After(cutoff) {
			break
		}
		done = append(done, v)
	}
	return last, done
}

// Individual is a complete candidate plan: one task list per truck in scope.
// Tasks drive the genetic operators; Genes are rebuilt from them on evaluation.
type Individual struct {
	Tasks     [][]model.Waypoint
	Genes     []Gene
	Fitness   float64
	Delivered float64
}

func (in Individual) cloneTasks() [][]model.Waypoint {
	out := make([][]model.Waypoint, len(in.Tasks))
	for i, t := range in.Tasks {
		out[i] = append([]model.Waypoint(nil), t...)
	}
	return out
}

// Feasible reports whether every gene is feasible.
func (in Individual) Feasible() bool {
	return !math.IsInf(in.Fitness, 1) && !math.IsNaN(in.Fitness)
}

// Assignment returns the task references of every truck keyed by truck code.
func (in Individual) Assignment() map[string][]string {
	out := make(map[string][]string, len(in.Genes))
	for _, g := range in.Genes {
		refs := []string{}
		for _, w := range g.Waypoints {
			if w.IsTask() {
				refs = append(refs, w.Ref)
			}
		}
		out[g.Truck.Code] = refs
	}
	return out
}
