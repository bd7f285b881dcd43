package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/glpdispatch/core/events"
	"github.com/kilianp07/glpdispatch/core/fleet"
	"github.com/kilianp07/glpdispatch/core/gridmap"
	"github.com/kilianp07/glpdispatch/core/metrics"
	"github.com/kilianp07/glpdispatch/core/model"
	"github.com/kilianp07/glpdispatch/core/monitoring"
	coremqtt "github.com/kilianp07/glpdispatch/core/mqtt"
	"github.com/kilianp07/glpdispatch/core/optimizer"
)

// generate plans the interval starting at c.now. c.mu must be held.
func (c *Clock) generate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := c.now
	end := start.Add(c.interval)
	rollback := c.reg.Snapshot()
	prevTick := c.lastTick

	c.housekeeping(start)
	c.log.Infof("tick [%s, %s)", start.Format(time.RFC3339), end.Format(time.RFC3339))
	_, err := c.plan(ctx, "interval", KindNormal, start, end, c.lastTick)
	if err != nil && ctx.Err() != nil {
		c.reg.Restore(rollback)
		c.lastTick = prevTick
		return err
	}
	c.now = end
	c.refreshStatus()
	if err != nil {
		return fmt.Errorf("interval %s: %w", start.Format(time.RFC3339), err)
	}
	return nil
}

// housekeeping runs the midnight jobs due up to now and the truck state
// transitions. c.mu must be held.
func (c *Clock) housekeeping(now time.Time) {
	for m := model.LocalMidnight(c.lastTick, c.loc).AddDate(0, 0, 1); !m.After(now); m = m.AddDate(0, 0, 1) {
		c.transitions(m)
		n := c.reg.Depots.RefillSecondary()
		c.log.Debugf("midnight %s: %d secondary depots refilled", m.Format("2006-01-02"), n)
		c.startMaintenance(m)
	}
	c.transitions(now)
	c.strandCheck()
	c.lastTick = now
}

// startMaintenance moves the trucks due on day m to UNDER_MAINTENANCE until
// the next local midnight.
func (c *Clock) startMaintenance(m time.Time) {
	if c.maintenance.Len() == 0 {
		return
	}
	release := m.AddDate(0, 0, 1)
	for _, t := range c.reg.Trucks.List() {
		if !c.maintenance.Due(t.Code, m) {
			continue
		}
		if !t.Available() {
			c.log.Warnf("truck %s due for maintenance but %s", t.Code, t.State)
			continue
		}
		_ = c.reg.Trucks.Update(t.Code, func(tr *model.Truck) {
			tr.State = model.StateUnderMaintenance
			tr.AvailableAt = release
			tr.AssignedRoute = nil
		})
		c.log.Infof("truck %s under preventive maintenance until %s", t.Code, release.Format(time.RFC3339))
	}
}

// transitions applies the relocation and release instants reached by now.
func (c *Clock) transitions(now time.Time) {
	depots := c.reg.Depots.List()
	for _, t := range c.reg.Trucks.List() {
		tr := t.Clone()
		if advanceTruck(&tr, now, depots) {
			_ = c.reg.Trucks.Set(tr)
			c.log.Debugf("truck %s now %s", tr.Code, tr.State)
		}
	}
}

// advanceTruck moves t through the breakdown and maintenance states that
// end by now. It reports whether t changed.
func advanceTruck(t *model.Truck, now time.Time, depots []model.Depot) bool {
	changed := false
	if t.State == model.StateRelocating && !t.RelocationEnd.After(now) {
		if d, ok := fleet.NearestCentral(depots, t.Position); ok {
			t.Position = d.Position
		}
		t.FuelCurrent = t.FuelMax()
		t.State = model.StateUnderMaintenance
		changed = true
	}
	if (t.State == model.StateUnderMaintenance || t.State == model.StateImmobilized) && !t.AvailableAt.After(now) {
		t.State = model.StateAvailable
		t.AvailableAt = time.Time{}
		t.RelocationEnd = time.Time{}
		changed = true
	}
	return changed
}

// strandCheck marks available trucks that cannot reach any depot as OUT_OF_FUEL.
func (c *Clock) strandCheck() {
	depots := c.reg.Depots.List()
	for _, t := range c.reg.Trucks.Available() {
		best := math.Inf(1)
		for _, d := range depots {
			if !d.Central && d.FuelCurrent <= model.DeliveryEpsilon {
				continue
			}
			best = math.Min(best, float64(t.Position.Manhattan(d.Position)))
		}
		if math.IsInf(best, 1) || t.FuelCurrent+model.DeliveryEpsilon >= t.FuelFor(best) {
			continue
		}
		_ = c.reg.Trucks.Update(t.Code, func(tr *model.Truck) {
			tr.State = model.StateOutOfFuel
			tr.AssignedRoute = nil
		})
		c.log.Warnf("truck %s stranded at %s with %.2f gal", t.Code, t.Position, t.FuelCurrent)
	}
}

// scope is the optimizer input for one planning window together with the
// codes of the orders it covers.
type scope struct {
	problem optimizer.Problem
	orders  []string
}

// problem collects the trucks, orders, rescues and depots of [start, end).
// Trucks released before end join with a delayed start.
func (c *Clock) problem(start, end time.Time) scope {
	depots := c.reg.Depots.List()
	sc := scope{problem: optimizer.Problem{Start: start, Depots: depots, Ready: map[string]time.Time{}}}
	inScope := map[string]struct{}{}
	for _, t := range c.reg.Trucks.List() {
		if t.Available() {
			sc.problem.Trucks = append(sc.problem.Trucks, t)
			inScope[t.Code] = struct{}{}
			continue
		}
		if t.State == model.StateOutOfFuel {
			continue
		}
		tr := t.Clone()
		if !advanceTruck(&tr, end, depots) || !tr.Available() {
			continue
		}
		tr.AssignedRoute = nil
		sc.problem.Trucks = append(sc.problem.Trucks, tr)
		sc.problem.Ready[t.Code] = t.AvailableAt
		inScope[t.Code] = struct{}{}
	}
	for _, t := range c.reg.Trucks.List() {
		if _, ok := inScope[t.Code]; ok {
			continue
		}
		if stalled(t) {
			sc.problem.Stalled = append(sc.problem.Stalled, t)
		}
	}
	for _, o := range c.reg.Orders.Undelivered() {
		if o.RegisteredAt.After(end) {
			continue
		}
		if !o.Deadline.After(start) {
			if _, seen := c.expired[o.Code]; !seen {
				c.expired[o.Code] = struct{}{}
				expiredOrders.Inc()
				c.log.Warnf("order %s expired at %s with %.2f m³ undelivered", o.Code, o.Deadline.Format(time.RFC3339), o.Remaining())
			}
			continue
		}
		sc.problem.Orders = append(sc.problem.Orders, o)
		sc.orders = append(sc.orders, o.Code)
	}
	return sc
}

// stalled reports whether t needs a rescue visit.
func stalled(t model.Truck) bool {
	switch t.State {
	case model.StateOutOfFuel:
		return true
	case model.StateImmobilized, model.StateRelocating:
		return t.GLPCurrent > model.DeliveryEpsilon
	}
	return false
}

// plan optimises [start, end) from the current registry state, commits the
// best plan up to end and appends the resulting packet. tick is recorded
// with the entry for rollbacks. c.mu must be held.
func (c *Clock) plan(ctx context.Context, purpose string, kind PacketKind, start, end, tick time.Time) (SolutionPacket, error) {
	sc := c.problem(start, end)
	c.syncGrid(sc)
	before := c.reg.Snapshot()

	c.log.Debugw("planning", map[string]any{
		"purpose": purpose,
		"start":   start,
		"trucks":  len(sc.problem.Trucks),
		"orders":  len(sc.problem.Orders),
		"rescues": len(sc.problem.Stalled),
	})
	res, err := c.opt.Run(ctx, sc.problem)
	if err != nil && ctx.Err() != nil && !errors.Is(err, optimizer.ErrOptimizationFailed) {
		return SolutionPacket{}, err
	}
	c.recordOptimization(purpose, res, err)

	var p SolutionPacket
	e := entry{before: before, tick: tick}
	if err != nil {
		p = c.packet(KindEmergency, start, end, sc, nil)
		p.Error = err.Error()
		c.log.Errorf("%s planning [%s, %s) failed: %v", purpose, start.Format(time.RFC3339), end.Format(time.RFC3339), err)
		monitoring.CaptureException(err, map[string]string{
			"interval_start": start.Format(time.RFC3339),
			"packet_kind":    string(KindEmergency),
		})
		c.recordStranded(res.Best.Genes)
	} else {
		c.commit(res.Best.Genes, end)
		p = c.packet(kind, start, end, sc, res.Best.Genes)
		p.Fitness = res.Best.Fitness
		p.Feasible = true
		e.genes = res.Best.Genes
		c.log.Infof("%s packet fitness=%.1f km delivered=%.2f m³ evaluations=%d", kind, res.Best.Fitness, res.Best.Delivered, res.Evaluations)
	}
	p.Index = len(c.history)
	e.packet = p
	c.history = append(c.history, e)
	c.emit(ctx, p)
	return p, err
}

// recordStranded logs the trucks a failed plan could not keep fuelled.
func (c *Clock) recordStranded(genes []optimizer.Gene) {
	for _, g := range genes {
		if errors.Is(g.Err, optimizer.ErrTruckStranded) {
			c.log.Warnf("truck %s: %v", g.Truck.Code, g.Err)
		}
	}
}

// syncGrid mirrors the orders and stalled trucks of sc onto the grid.
func (c *Clock) syncGrid(sc scope) {
	open := make(map[string]struct{}, len(sc.orders))
	for _, code := range sc.orders {
		open[code] = struct{}{}
	}
	for pos, n := range c.grid.Nodes(gridmap.NodeOrder) {
		if _, ok := open[n.Ref]; !ok {
			c.grid.Clear(pos, gridmap.NodeOrder, n.Ref)
		}
	}
	for pos, n := range c.grid.Nodes(gridmap.NodeStalledTruck) {
		c.grid.Clear(pos, gridmap.NodeStalledTruck, n.Ref)
	}
	for _, o := range sc.problem.Orders {
		if err := c.grid.Place(o.Position, gridmap.OrderNode(o.Code)); err != nil {
			c.log.Debugf("order %s at %s: %v", o.Code, o.Position, err)
		}
	}
	for _, t := range sc.problem.Stalled {
		if err := c.grid.Place(t.Position, gridmap.StalledTruckNode(t.Code)); err != nil {
			c.log.Debugf("stalled truck %s at %s: %v", t.Code, t.Position, err)
		}
	}
}

// commit applies genes to the registries up to cutoff: completed visits
// deliver, refill and rescue; trucks end at their position at cutoff.
func (c *Clock) commit(genes []optimizer.Gene, cutoff time.Time) {
	planned := map[string]struct{}{}
	for _, g := range genes {
		for _, w := range g.Waypoints {
			if w.Kind == model.WaypointOrder {
				planned[w.Ref] = struct{}{}
			}
		}
		if len(g.Trace) == 0 || cutoff.Before(g.Trace[0].At) {
			continue
		}
		st, visits := g.StateAt(cutoff)
		for _, v := range visits {
			c.applyVisit(v)
		}
		remaining := remainingWaypoints(g, len(visits))
		_ = c.reg.Trucks.Update(g.Truck.Code, func(t *model.Truck) {
			t.State = g.Truck.State
			t.AvailableAt = g.Truck.AvailableAt
			t.RelocationEnd = g.Truck.RelocationEnd
			t.Position = st.Position
			t.FuelCurrent = math.Max(0, math.Min(st.Fuel, t.FuelMax()))
			t.GLPCurrent = math.Max(0, math.Min(st.GLP, t.GLPMax()))
			t.AssignedRoute = remaining
		})
	}
	codes := make([]string, 0, len(planned))
	for code := range planned {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		_ = c.reg.Orders.Update(code, func(o *model.Order) {
			if !o.IsDelivered() {
				o.State = model.OrderPlanned
			}
		})
	}
}

func remainingWaypoints(g optimizer.Gene, done int) []model.Waypoint {
	if done >= len(g.Waypoints) {
		return nil
	}
	return append([]model.Waypoint(nil), g.Waypoints[done:]...)
}

// applyVisit mirrors one completed visit on the registries.
func (c *Clock) applyVisit(v optimizer.Visit) {
	switch v.Waypoint.Kind {
	case model.WaypointOrder:
		_ = c.reg.Orders.Update(v.Waypoint.Ref, func(o *model.Order) { o.Deliver(v.Volume) })
	case model.WaypointDepot:
		d, err := c.reg.Depots.Get(v.Waypoint.Ref)
		if err != nil {
			return
		}
		d.DrawGLP(v.Volume)
		d.DrawFuel(v.Fuel)
		_ = c.reg.Depots.Set(d)
	case model.WaypointStalledTruck:
		_ = c.reg.Trucks.Update(v.Waypoint.Ref, func(t *model.Truck) {
			t.GLPCurrent = math.Max(0, t.GLPCurrent-v.Volume)
			if t.State == model.StateOutOfFuel {
				t.FuelCurrent = t.FuelMax()
				t.State = model.StateAvailable
			}
		})
		c.grid.Clear(v.Waypoint.Position, gridmap.NodeStalledTruck, v.Waypoint.Ref)
	}
}

// packet builds a packet from the committed registry state.
func (c *Clock) packet(kind PacketKind, start, end time.Time, sc scope, genes []optimizer.Gene) SolutionPacket {
	p := SolutionPacket{
		ID:            uuid.NewString(),
		Kind:          kind,
		IntervalStart: start,
		IntervalEnd:   end,
		Routes:        []Route{},
		Trucks:        c.reg.Trucks.List(),
	}
	for _, g := range genes {
		p.Routes = append(p.Routes, newRoute(g))
	}
	for _, code := range sc.orders {
		if o, err := c.reg.Orders.Get(code); err == nil {
			p.Orders = append(p.Orders, o)
		}
	}
	for _, b := range c.grid.Blockages() {
		if b.Start.Before(end) && b.End.After(start) {
			p.Blockages = append(p.Blockages, b)
		}
	}
	return p
}

// emit hands a new packet to every configured consumer. Failures are
// logged; they never invalidate the packet.
func (c *Clock) emit(ctx context.Context, p SolutionPacket) {
	packetsTotal.WithLabelValues(string(p.Kind)).Inc()
	historyLength.Set(float64(len(c.history)))
	octx := context.WithoutCancel(ctx)

	rec, err := p.Record()
	if err != nil {
		c.log.Errorf("encode packet %d: %v", p.Index, err)
	} else {
		if c.publisher != nil {
			pctx, cancel := context.WithTimeout(octx, time.Duration(c.cfg.PublishTimeoutMS)*time.Millisecond)
			if err := c.publisher.Publish(pctx, coremqtt.Message{Topic: "solutions/" + string(p.Kind), Payload: rec.Packet}); err != nil {
				c.log.Warnf("publish packet %d: %v", p.Index, err)
			}
			cancel()
		}
		if c.store != nil {
			if err := c.store.Append(octx, rec); err != nil {
				c.log.Warnf("store packet %d: %v", p.Index, err)
			}
		}
	}

	delivered := 0
	for _, o := range p.Orders {
		if o.IsDelivered() {
			delivered++
		}
	}
	now := time.Now()
	if err := c.sink.RecordPacket(metrics.PacketRecord{
		PacketID:      p.ID,
		Index:         p.Index,
		Kind:          string(p.Kind),
		IntervalStart: p.IntervalStart,
		IntervalEnd:   p.IntervalEnd,
		Fitness:       p.Fitness,
		Trucks:        len(p.Routes),
		Orders:        len(p.Orders),
		Delivered:     delivered,
		Blockages:     len(p.Blockages),
		Time:          now,
	}); err != nil {
		c.log.Warnf("record packet %d: %v", p.Index, err)
	}
	if tr, ok := c.sink.(metrics.TruckStateRecorder); ok {
		recs := make([]metrics.TruckStateRecord, len(p.Trucks))
		for i, t := range p.Trucks {
			recs[i] = metrics.TruckStateRecord{Truck: t, Time: p.IntervalEnd}
		}
		if err := tr.RecordTruckState(recs); err != nil {
			c.log.Warnf("record truck states: %v", err)
		}
	}
	if c.bus != nil {
		c.bus.Publish(events.PacketEvent{
			ID:            p.ID,
			Index:         p.Index,
			Kind:          string(p.Kind),
			IntervalStart: p.IntervalStart,
			IntervalEnd:   p.IntervalEnd,
			Fitness:       p.Fitness,
		})
	}
}

// recordOptimization reports one optimizer run to the sink and the bus.
func (c *Clock) recordOptimization(purpose string, res optimizer.Result, err error) {
	fitness := res.Best.Fitness
	if math.IsInf(fitness, 0) || math.IsNaN(fitness) {
		fitness = 0
	}
	if or, ok := c.sink.(metrics.OptimizationRecorder); ok {
		if rerr := or.RecordOptimization(metrics.OptimizationRecord{
			Purpose:     purpose,
			Fitness:     fitness,
			Evaluations: res.Evaluations,
			Generations: len(res.Generations),
			Duration:    res.Duration,
			Failed:      err != nil,
			Time:        time.Now(),
		}); rerr != nil {
			c.log.Warnf("record optimization: %v", rerr)
		}
	}
	if c.bus != nil {
		c.bus.Publish(events.OptimizationEvent{
			Purpose:     purpose,
			Fitness:     fitness,
			Evaluations: res.Evaluations,
			Duration:    res.Duration,
			Err:         err,
		})
	}
}
