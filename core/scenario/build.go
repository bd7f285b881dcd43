package scenario

import (
	"fmt"
	"time"

	"github.com/kilianp07/glpdispatch/core/fleet"
	"github.com/kilianp07/glpdispatch/core/gridmap"
	"github.com/kilianp07/glpdispatch/core/model"
	"github.com/kilianp07/glpdispatch/core/simulation"
)

// Registry builds the registries described by the scenario. Secondary
// depots start full and orders start REGISTERED.
func (s *Scenario) Registry() (*fleet.Registry, error) {
	reg := fleet.NewRegistry()
	for _, t := range s.Trucks {
		tr, err := model.NewTruck(t.Code, t.Class, t.Position)
		if err != nil {
			return nil, err
		}
		if err := reg.Trucks.Add(tr); err != nil {
			return nil, err
		}
	}
	for _, d := range s.Depots {
		if err := reg.Depots.Add(model.Depot{
			Code:        d.Code,
			Central:     d.Central,
			Position:    d.Position,
			GLPCurrent:  d.GLPMax,
			GLPMax:      d.GLPMax,
			FuelCurrent: d.FuelMax,
			FuelMax:     d.FuelMax,
		}); err != nil {
			return nil, err
		}
	}
	for _, o := range s.Orders {
		if err := reg.Orders.Add(s.order(o)); err != nil {
			return nil, fmt.Errorf("order %s: %w", o.Code, err)
		}
	}
	return reg, nil
}

func (s *Scenario) order(o Order) model.Order {
	registered := o.RegisteredAt
	if registered.IsZero() {
		registered = s.Start
	}
	deadline := o.Deadline
	if deadline.IsZero() {
		deadline = registered.Add(time.Duration(o.DeadlineHours * float64(time.Hour)))
	}
	return model.Order{
		Code:           o.Code,
		Position:       o.Position,
		RegisteredAt:   registered,
		Deadline:       deadline,
		VolumeAssigned: o.VolumeM3,
		State:          model.OrderRegistered,
	}
}

// GridMap returns an empty grid of the scenario size carrying its blockage schedule.
func (s *Scenario) GridMap() *gridmap.GridMap {
	g := gridmap.New(s.Grid.Width, s.Grid.Height)
	bs := make([]model.Blockage, len(s.Blockages))
	for i, b := range s.Blockages {
		bs[i] = model.Blockage{Start: b.Start, End: b.End, Nodes: append([]model.Coordinate(nil), b.Nodes...)}
	}
	g.SetBlockages(bs)
	return g
}

// Install hands the maintenance cycles and scheduled breakdowns to the clock.
func (s *Scenario) Install(c *simulation.Clock) {
	c.SetMaintenance(s.Maintenance)
	c.SetScheduledBreakdowns(s.Breakdowns)
}
