package simulation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kilianp07/glpdispatch/core/fleet"
	"github.com/kilianp07/glpdispatch/core/gridmap"
	"github.com/kilianp07/glpdispatch/core/logger"
	"github.com/kilianp07/glpdispatch/core/metrics"
	"github.com/kilianp07/glpdispatch/core/model"
	coremqtt "github.com/kilianp07/glpdispatch/core/mqtt"
	"github.com/kilianp07/glpdispatch/core/optimizer"
	"github.com/kilianp07/glpdispatch/core/solutionlog"
	"github.com/kilianp07/glpdispatch/internal/eventbus"
)

// ScheduledBreakdown is a breakdown known in advance. It is reported when
// the packet whose interval contains At is handed out.
type ScheduledBreakdown struct {
	TruckCode string             `json:"truck_code" yaml:"truck_code"`
	Incident  model.IncidentType `json:"incident" yaml:"incident"`
	At        time.Time          `json:"at" yaml:"at"`
}

// scheduled tracks whether a breakdown has been reported.
type scheduled struct {
	ScheduledBreakdown
	fired bool
}

// entry is one packet of the history together with the registry state it
// was planned from and the genes committed from it.
type entry struct {
	packet SolutionPacket
	before fleet.State
	genes  []optimizer.Gene
	// tick is the last instant whose midnight housekeeping ran before planning.
	tick time.Time
	// repair marks a patch replacing a packet already handed out.
	repair bool
}

// Status describes the clock for polling callers.
type Status struct {
	Paused        bool           `json:"paused"`
	Now           time.Time      `json:"now"`
	Packets       int            `json:"packets"`
	Cursor        int            `json:"cursor"`
	Pending       int            `json:"pending_breakdowns"`
	ExpiredOrders int            `json:"expired_orders"`
	Trucks        map[string]int `json:"trucks"`
}

// Clock is the simulation clock. It owns every time dependent state and
// serialises interval generation with breakdown recalculation.
type Clock struct {
	mu   sync.Mutex
	cond *sync.Cond

	cfg      Config
	loc      *time.Location
	interval time.Duration
	reg      *fleet.Registry
	grid     *gridmap.GridMap
	opt      *optimizer.Optimizer
	log      logger.Logger

	bus       eventbus.EventBus
	sink      metrics.MetricsSink
	publisher coremqtt.Publisher
	store     solutionlog.Store

	now         time.Time
	lastTick    time.Time
	history     []entry
	cursor      int
	last        *SolutionPacket
	expired     map[string]struct{}
	maintenance MaintenancePlan
	scheduled   []*scheduled

	pending       int
	pendingTrucks map[string]struct{}
	paused        atomic.Bool
	status        atomic.Pointer[Status]
	closed        bool

	jobs       chan breakdownJob
	closing    chan struct{}
	workerOnce sync.Once
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// NewClock creates a clock whose first interval starts at start. Depots of
// reg are placed on the grid.
func NewClock(cfg Config, reg *fleet.Registry, grid *gridmap.GridMap, opt *optimizer.Optimizer, start time.Time, log logger.Logger) (*Clock, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil || grid == nil || opt == nil {
		return nil, fmt.Errorf("simulation: registry, grid and optimizer are required")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	for _, d := range reg.Depots.List() {
		if err := grid.Place(d.Position, gridmap.DepotNode(d.Code, d.Central)); err != nil {
			return nil, fmt.Errorf("depot %s at %s: %w", d.Code, d.Position, err)
		}
	}
	c := &Clock{
		cfg:           cfg,
		loc:           loc,
		interval:      cfg.Interval(),
		reg:           reg,
		grid:          grid,
		opt:           opt,
		log:           log,
		sink:          metrics.NopSink{},
		now:           start,
		lastTick:      start.Add(-time.Nanosecond),
		expired:       make(map[string]struct{}),
		maintenance:   NewMaintenancePlan(nil, loc),
		pendingTrucks: make(map[string]struct{}),
		jobs:          make(chan breakdownJob, 16),
		closing:       make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	c.refreshStatus()
	return c, nil
}

// SetEventBus configures the bus used to publish simulation events.
func (c *Clock) SetEventBus(bus eventbus.EventBus) {
	c.mu.Lock()
	c.bus = bus
	c.mu.Unlock()
}

// SetMetricsSink configures the sink used to record packets.
func (c *Clock) SetMetricsSink(s metrics.MetricsSink) {
	c.mu.Lock()
	if s == nil {
		s = metrics.NopSink{}
	}
	c.sink = s
	c.mu.Unlock()
}

// SetPublisher configures the transport every emitted packet is sent to.
func (c *Clock) SetPublisher(p coremqtt.Publisher) {
	c.mu.Lock()
	c.publisher = p
	c.mu.Unlock()
}

// SetPacketStore configures the store used to persist packets.
func (c *Clock) SetPacketStore(s solutionlog.Store) {
	c.mu.Lock()
	c.store = s
	c.mu.Unlock()
}

// SetMaintenance installs the preventive maintenance cycles.
func (c *Clock) SetMaintenance(entries []MaintenanceEntry) {
	c.mu.Lock()
	c.maintenance = NewMaintenancePlan(entries, c.loc)
	c.mu.Unlock()
}

// SetScheduledBreakdowns installs breakdowns reported as their packets are handed out.
func (c *Clock) SetScheduledBreakdowns(bs []ScheduledBreakdown) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduled = c.scheduled[:0]
	for _, b := range bs {
		c.scheduled = append(c.scheduled, &scheduled{ScheduledBreakdown: b})
	}
	sort.SliceStable(c.scheduled, func(i, j int) bool { return c.scheduled[i].At.Before(c.scheduled[j].At) })
}

// Location returns the time zone defining local midnight and shifts.
func (c *Clock) Location() *time.Location { return c.loc }

// AdvanceInterval returns the next packet of the history, planning a new
// interval when no precomputed packet is queued. A now later than the next
// interval start skips ahead to it. Scheduled breakdowns falling inside the
// returned packet are reported once it is handed out, so the next call
// returns their patch. The returned error wraps
// optimizer.ErrOptimizationFailed when the interval produced an EMERGENCY
// packet; the packet is returned alongside it.
func (c *Clock) AdvanceInterval(ctx context.Context, now time.Time) (SolutionPacket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.waitResumed(); err != nil {
		return SolutionPacket{}, err
	}
	var genErr error
	if c.cursor >= len(c.history) {
		if now.After(c.now) {
			c.now = now
		}
		if err := c.generate(ctx); err != nil {
			if ctx.Err() != nil {
				return SolutionPacket{}, err
			}
			genErr = err
		}
	}
	p := c.history[c.cursor].packet.Clone()
	c.cursor++
	c.last = &p
	c.fireScheduled(ctx)
	c.refreshStatus()
	return p.Clone(), genErr
}

// Prefetch plans up to n intervals ahead of the consumption cursor.
func (c *Clock) Prefetch(ctx context.Context, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.waitResumed(); err != nil {
		return err
	}
	for len(c.history)-c.cursor < n {
		if err := c.generate(ctx); err != nil && ctx.Err() != nil {
			return err
		}
	}
	return nil
}

// GetSolution returns the packet stored at index.
func (c *Clock) GetSolution(index int) (SolutionPacket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.history) {
		return SolutionPacket{}, fmt.Errorf("index %d: %w", index, ErrPacketNotFound)
	}
	return c.history[index].packet.Clone(), nil
}

// Latest returns the last packet handed out by AdvanceInterval, even when a
// breakdown has since replaced it in the history.
func (c *Clock) Latest() (SolutionPacket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return SolutionPacket{}, ErrPacketNotFound
	}
	return c.last.Clone(), nil
}

// Fleet returns a copy of the registries as left by the last planned
// interval.
func (c *Clock) Fleet() fleet.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg.Snapshot().Clone()
}

// Status reports the clock state. It never waits for an in-flight
// recalculation, so Paused is observable while one runs.
func (c *Clock) Status() Status {
	cur := c.status.Load()
	st := *cur
	st.Trucks = make(map[string]int, len(cur.Trucks))
	for k, v := range cur.Trucks {
		st.Trucks[k] = v
	}
	st.Paused = c.paused.Load()
	return st
}

// refreshStatus republishes the status snapshot. c.mu must be held.
func (c *Clock) refreshStatus() {
	st := &Status{
		Now:           c.now,
		Packets:       len(c.history),
		Cursor:        c.cursor,
		Pending:       c.pending,
		ExpiredOrders: len(c.expired),
		Trucks:        make(map[string]int),
	}
	for _, t := range c.reg.Trucks.List() {
		st.Trucks[t.State.String()]++
	}
	c.status.Store(st)
	historyLength.Set(float64(len(c.history)))
}

// Close stops the breakdown worker. Pending and later calls fail with ErrClockClosed.
func (c *Clock) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.cond.Broadcast()
		c.mu.Unlock()
		close(c.closing)
		c.wg.Wait()
	})
}

// waitResumed blocks while breakdowns are queued. c.mu must be held.
func (c *Clock) waitResumed() error {
	for c.pending > 0 && !c.closed {
		c.cond.Wait()
	}
	if c.closed {
		return ErrClockClosed
	}
	return nil
}
