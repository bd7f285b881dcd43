package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/glpdispatch/core/events"
	"github.com/kilianp07/glpdispatch/core/logger"
	"github.com/kilianp07/glpdispatch/core/monitoring"
	"github.com/kilianp07/glpdispatch/internal/eventbus"
)

var busEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "glp_bus_events_total",
	Help: "Simulation events observed on the event bus",
}, []string{"type"})

func init() {
	_ = prometheus.Register(busEvents)
}

// StartEventCollector subscribes to the event bus, counts every simulation
// event and logs it. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, log logger.Logger) {
	if bus == nil {
		return
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	monitoring.Go(func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				observe(ev, log)
			}
		}
	})
}

func observe(ev events.Event, log logger.Logger) {
	busEvents.WithLabelValues(ev.EventType()).Inc()
	switch e := ev.(type) {
	case events.PacketEvent:
		log.Debugw("packet emitted", map[string]any{
			"id":             e.ID,
			"index":          e.Index,
			"kind":           e.Kind,
			"interval_start": e.IntervalStart,
			"fitness":        e.Fitness,
		})
	case events.OptimizationEvent:
		fields := map[string]any{
			"purpose":     e.Purpose,
			"fitness":     e.Fitness,
			"evaluations": e.Evaluations,
			"duration_ms": e.Duration.Milliseconds(),
		}
		if e.Err != nil {
			fields["error"] = e.Err.Error()
		}
		log.Debugw("optimizer run", fields)
	case events.BreakdownEvent:
		log.Infof("breakdown %s of %s handled: %d packets discarded, orders released %v",
			e.Breakdown.Incident, e.Breakdown.TruckCode, e.Discarded, e.Released)
		if e.Err != nil {
			log.Warnf("breakdown %s replanned with an emergency packet: %v", e.Breakdown.ID, e.Err)
		}
	}
}
