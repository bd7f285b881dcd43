package simulation

import (
	"encoding/json"
	"time"

	"github.com/kilianp07/glpdispatch/core/model"
	"github.com/kilianp07/glpdispatch/core/optimizer"
	"github.com/kilianp07/glpdispatch/core/solutionlog"
)

// PacketKind discriminates regular, breakdown and degraded packets.
type PacketKind string

const (
	KindNormal    PacketKind = "NORMAL"
	KindPatch     PacketKind = "PATCH"
	KindEmergency PacketKind = "EMERGENCY"
)

// Route is the plan of one truck inside a packet. ReadyAt is when the truck
// starts driving, later than the interval start for trucks released mid-interval.
type Route struct {
	TruckCode string             `json:"truck_code"`
	ReadyAt   time.Time          `json:"ready_at"`
	Waypoints []model.Waypoint   `json:"waypoints"`
	Path      []model.Coordinate `json:"path"`
	Visits    []optimizer.Visit  `json:"visits"`
	Distance  float64            `json:"distance_km"`
	Delivered float64            `json:"delivered_m3"`
}

// SolutionPacket is the immutable result of one planned interval.
type SolutionPacket struct {
	ID            string           `json:"id"`
	Index         int              `json:"index"`
	Kind          PacketKind       `json:"kind"`
	IntervalStart time.Time        `json:"interval_start"`
	IntervalEnd   time.Time        `json:"interval_end"`
	Routes        []Route          `json:"routes"`
	Orders        []model.Order    `json:"orders"`
	Trucks        []model.Truck    `json:"trucks"`
	Blockages     []model.Blockage `json:"blockages"`
	Fitness       float64          `json:"fitness"`
	Feasible      bool             `json:"feasible"`
	Error         string           `json:"error,omitempty"`
}

// Route returns the route planned for the truck.
func (p SolutionPacket) Route(code string) (Route, bool) {
	for _, r := range p.Routes {
		if r.TruckCode == code {
			return r, true
		}
	}
	return Route{}, false
}

// Truck returns the truck state recorded in the packet.
func (p SolutionPacket) Truck(code string) (model.Truck, bool) {
	for _, t := range p.Trucks {
		if t.Code == code {
			return t, true
		}
	}
	return model.Truck{}, false
}

// Order returns the order state recorded in the packet.
func (p SolutionPacket) Order(code string) (model.Order, bool) {
	for _, o := range p.Orders {
		if o.Code == code {
			return o, true
		}
	}
	return model.Order{}, false
}

// Clone returns a deep copy so callers cannot alter the history.
func (p SolutionPacket) Clone() SolutionPacket {
	cp := p
	cp.Routes = make([]Route, len(p.Routes))
	for i, r := range p.Routes {
		r.Waypoints = append([]model.Waypoint(nil), r.Waypoints...)
		r.Path = append([]model.Coordinate(nil), r.Path...)
		r.Visits = append([]optimizer.Visit(nil), r.Visits...)
		cp.Routes[i] = r
	}
	cp.Orders = append([]model.Order(nil), p.Orders...)
	cp.Trucks = make([]model.Truck, len(p.Trucks))
	for i, t := range p.Trucks {
		cp.Trucks[i] = t.Clone()
	}
	cp.Blockages = make([]model.Blockage, len(p.Blockages))
	for i, b := range p.Blockages {
		cp.Blockages[i] = b.Clone()
	}
	return cp
}

// Record converts the packet into its persisted form.
func (p SolutionPacket) Record() (solutionlog.Record, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return solutionlog.Record{}, err
	}
	trucks := make([]string, 0, len(p.Routes))
	for _, r := range p.Routes {
		trucks = append(trucks, r.TruckCode)
	}
	return solutionlog.Record{
		Timestamp:     p.IntervalStart,
		PacketID:      p.ID,
		Index:         p.Index,
		Kind:          string(p.Kind),
		IntervalStart: p.IntervalStart,
		IntervalEnd:   p.IntervalEnd,
		Fitness:       p.Fitness,
		Feasible:      p.Feasible,
		Trucks:        trucks,
		Packet:        payload,
	}, nil
}

func newRoute(g optimizer.Gene) Route {
	r := Route{
		TruckCode: g.Truck.Code,
		Waypoints: append([]model.Waypoint(nil), g.Waypoints...),
		Path:      append([]model.Coordinate(nil), g.Path...),
		Visits:    append([]optimizer.Visit(nil), g.Visits...),
		Distance:  g.Distance,
		Delivered: g.Delivered,
	}
	if len(g.Trace) > 0 {
		r.ReadyAt = g.Trace[0].At
	}
	return r
}
