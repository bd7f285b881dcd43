package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/glpdispatch/core/events"
	"github.com/kilianp07/glpdispatch/core/metrics"
	"github.com/kilianp07/glpdispatch/core/model"
	"github.com/kilianp07/glpdispatch/core/monitoring"
	"github.com/kilianp07/glpdispatch/core/optimizer"
)

type breakdownJob struct {
	ctx      context.Context
	code     string
	incident model.IncidentType
	at       time.Time
	done     chan error
}

// ReportBreakdown pauses the clock and replans around the failed truck.
// Breakdowns are processed one at a time in arrival order; the call returns
// once its own recalculation has completed. Queued packets planned before
// the breakdown never survive it.
func (c *Clock) ReportBreakdown(ctx context.Context, truckCode string, incident model.IncidentType, at time.Time) error {
	if _, err := model.ParseIncidentType(string(incident)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBreakdownTarget, err)
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClockClosed
	}
	if err := c.validateTarget(truckCode); err != nil {
		c.mu.Unlock()
		return err
	}
	c.pending++
	c.pendingTrucks[truckCode] = struct{}{}
	c.paused.Store(true)
	pausedGauge.Set(1)
	c.refreshStatus()
	c.mu.Unlock()

	c.startWorker()
	job := breakdownJob{ctx: context.WithoutCancel(ctx), code: truckCode, incident: incident, at: at, done: make(chan error, 1)}
	select {
	case c.jobs <- job:
	case <-c.closing:
		return ErrClockClosed
	}
	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closing:
		return ErrClockClosed
	}
}

// validateTarget rejects unknown trucks and trucks that already failed or
// have a breakdown queued. c.mu must be held.
func (c *Clock) validateTarget(code string) error {
	t, err := c.reg.Trucks.Get(code)
	if err != nil {
		return fmt.Errorf("truck %s: %w", code, ErrInvalidBreakdownTarget)
	}
	if _, queued := c.pendingTrucks[code]; queued {
		return fmt.Errorf("truck %s already has a breakdown queued: %w", code, ErrInvalidBreakdownTarget)
	}
	switch t.State {
	case model.StateImmobilized, model.StateRelocating:
		return fmt.Errorf("truck %s is %s: %w", code, t.State, ErrInvalidBreakdownTarget)
	}
	return nil
}

func (c *Clock) startWorker() {
	c.workerOnce.Do(func() {
		c.wg.Add(1)
		monitoring.Go(func() {
			defer c.wg.Done()
			c.work()
		})
	})
}

func (c *Clock) work() {
	for {
		select {
		case job := <-c.jobs:
			job.done <- c.handle(job)
		case <-c.closing:
			return
		}
	}
}

// handle processes one queued breakdown with the clock held.
func (c *Clock) handle(job breakdownJob) error {
	c.mu.Lock()
	defer func() {
		c.pending--
		delete(c.pendingTrucks, job.code)
		if c.pending == 0 {
			c.paused.Store(false)
			pausedGauge.Set(0)
		}
		c.refreshStatus()
		c.cond.Broadcast()
		c.mu.Unlock()
	}()
	if c.closed {
		return ErrClockClosed
	}
	return c.apply(job.ctx, ScheduledBreakdown{TruckCode: job.code, Incident: job.incident, At: job.at})
}

// apply routes a breakdown to the packet being played. A breakdown inside
// that packet's interval replaces it with a patch; a later one discards every
// queued packet and takes the truck out of service at once, leaving the next
// interval to plan without it. c.mu must be held.
func (c *Clock) apply(ctx context.Context, sb ScheduledBreakdown) error {
	idx := c.playing()
	if idx >= 0 && sb.At.Before(c.history[idx].packet.IntervalEnd) {
		return c.recalculate(ctx, idx, sb)
	}
	return c.breakAhead(idx+1, sb)
}

// playing returns the index of the packet the consumer is on: a pending
// repair packet, otherwise the last one handed out. -1 means none.
func (c *Clock) playing() int {
	if c.cursor < len(c.history) && c.history[c.cursor].repair {
		return c.cursor
	}
	return c.cursor - 1
}

// truncate drops history[cut:] and rewinds the cursor. It returns the number
// of packets dropped.
func (c *Clock) truncate(cut int) int {
	n := len(c.history) - cut
	c.history = c.history[:cut]
	if c.cursor > cut {
		c.cursor = cut
	}
	return n
}

// recalculate discards packet idx and everything after it, replays its plan
// up to the breakdown, takes the truck out of service and plans the rest of
// the interval as a patch. c.mu must be held.
func (c *Clock) recalculate(ctx context.Context, idx int, sb ScheduledBreakdown) error {
	// an optimizer run started for a breakdown is never cancelled
	ctx = context.WithoutCancel(ctx)
	e := c.history[idx]
	at := sb.At
	if at.Before(e.packet.IntervalStart) {
		at = e.packet.IntervalStart
	}
	audit := c.reg.Trucks.List()

	discarded := c.truncate(idx)
	c.reg.Restore(e.before.Clone())
	c.lastTick = e.tick
	c.commit(e.genes, at)

	released := c.release(sb.TruckCode, geneWaypoints(e.genes, sb.TruckCode))
	bd, err := c.immobilize(sb, at)
	if err != nil {
		return err
	}

	end := e.packet.IntervalEnd
	_, perr := c.plan(ctx, "breakdown", KindPatch, at, end, e.tick)
	c.history[len(c.history)-1].repair = true
	c.now = end
	c.announce(bd, discarded, released, audit, perr)
	// an EMERGENCY patch is the degraded answer, not a caller error
	return nil
}

// breakAhead handles a breakdown past the interval being played: the queued
// packets from cut on are discarded, the registries rolled back to the first
// of them and the truck taken out of service immediately. c.mu must be held.
func (c *Clock) breakAhead(cut int, sb ScheduledBreakdown) error {
	audit := c.reg.Trucks.List()
	var assigned []model.Waypoint
	if cut > 0 {
		assigned = geneWaypoints(c.history[cut-1].genes, sb.TruckCode)
	}
	discarded := 0
	if cut < len(c.history) {
		e := c.history[cut]
		discarded = c.truncate(cut)
		c.reg.Restore(e.before.Clone())
		c.lastTick = e.tick
		c.now = e.packet.IntervalStart
	}
	at := sb.At
	if at.Before(c.now) {
		at = c.now
	}
	if t, err := c.reg.Trucks.Get(sb.TruckCode); err == nil {
		assigned = append(assigned, t.AssignedRoute...)
	}
	released := c.release(sb.TruckCode, assigned)
	bd, err := c.immobilize(sb, at)
	if err != nil {
		return err
	}
	c.announce(bd, discarded, released, audit, nil)
	return nil
}

func geneWaypoints(genes []optimizer.Gene, code string) []model.Waypoint {
	for _, g := range genes {
		if g.Truck.Code == code {
			return g.Waypoints
		}
	}
	return nil
}

// release puts the undelivered orders among ws back to REGISTERED and
// returns their codes in route order.
func (c *Clock) release(code string, ws []model.Waypoint) []string {
	var released []string
	seen := map[string]struct{}{}
	for _, w := range ws {
		if w.Kind != model.WaypointOrder {
			continue
		}
		if _, dup := seen[w.Ref]; dup {
			continue
		}
		seen[w.Ref] = struct{}{}
		o, err := c.reg.Orders.Get(w.Ref)
		if err != nil || o.IsDelivered() {
			continue
		}
		_ = c.reg.Orders.Update(w.Ref, func(o *model.Order) { o.State = model.OrderRegistered })
		released = append(released, w.Ref)
	}
	if len(released) > 0 {
		c.log.Debugf("truck %s: orders %v released", code, released)
	}
	return released
}

// immobilize records the breakdown and moves the truck to its breakdown state.
func (c *Clock) immobilize(sb ScheduledBreakdown, at time.Time) (model.Breakdown, error) {
	bd := model.NewBreakdown(uuid.NewString(), sb.TruckCode, sb.Incident, at, c.loc)
	if err := c.reg.Trucks.Update(sb.TruckCode, func(t *model.Truck) {
		if sb.Incident.RequiresRelocation() {
			t.State = model.StateRelocating
			t.RelocationEnd = bd.RelocationWaitEnd
		} else {
			t.State = model.StateImmobilized
		}
		t.AvailableAt = bd.AvailableAt
		t.AssignedRoute = nil
	}); err != nil {
		return model.Breakdown{}, fmt.Errorf("truck %s: %w", sb.TruckCode, ErrInvalidBreakdownTarget)
	}
	c.reg.Breakdowns.Add(bd)
	breakdownsTotal.WithLabelValues(string(sb.Incident)).Inc()
	return bd, nil
}

// announce logs, records and publishes a handled breakdown.
func (c *Clock) announce(bd model.Breakdown, discarded int, released []string, audit []model.Truck, err error) {
	c.log.Warnf("truck %s breakdown %s at %s: %d packets discarded, %d orders released, available at %s",
		bd.TruckCode, bd.Incident, bd.OccurredAt.Format(time.RFC3339), discarded, len(released), bd.AvailableAt.Format(time.RFC3339))
	if br, ok := c.sink.(metrics.BreakdownRecorder); ok {
		if rerr := br.RecordBreakdown(metrics.BreakdownRecord{
			TruckCode: bd.TruckCode,
			Incident:  bd.Incident,
			Discarded: discarded,
			Released:  len(released),
			Time:      bd.OccurredAt,
		}); rerr != nil {
			c.log.Warnf("record breakdown: %v", rerr)
		}
	}
	if c.bus != nil {
		c.bus.Publish(events.BreakdownEvent{
			Breakdown: bd,
			Discarded: discarded,
			Released:  released,
			Trucks:    audit,
			Err:       err,
		})
	}
}

// fireScheduled applies the scheduled breakdowns that occur before the end
// of the packet just handed out, as if reported while it is played.
// c.mu must be held.
func (c *Clock) fireScheduled(ctx context.Context) {
	idx := c.playing()
	if idx < 0 {
		return
	}
	for _, sb := range c.scheduled {
		if sb.fired || !sb.At.Before(c.history[idx].packet.IntervalEnd) {
			continue
		}
		sb.fired = true
		if err := c.validateTarget(sb.TruckCode); err != nil {
			c.log.Warnf("scheduled breakdown skipped: %v", err)
			continue
		}
		if err := c.recalculate(ctx, idx, sb.ScheduledBreakdown); err != nil {
			c.log.Errorf("scheduled breakdown of %s: %v", sb.TruckCode, err)
		}
	}
}
