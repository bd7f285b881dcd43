package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/glpdispatch/core/metrics"
)

// PromSink exposes solution packets, optimizer runs, breakdowns and truck
// snapshots as Prometheus metrics.
type PromSink struct {
	packets     *prometheus.CounterVec
	fitness     *prometheus.GaugeVec
	delivered   prometheus.Gauge
	optDuration *prometheus.HistogramVec
	optRuns     *prometheus.CounterVec
	breakdowns  *prometheus.CounterVec
	discarded   prometheus.Counter
	truckFuel   *prometheus.GaugeVec
	truckGLP    *prometheus.GaugeVec
	truckStates *prometheus.GaugeVec
}

// NewPromSink registers the dispatch metrics on the default Prometheus registerer.
// The Prometheus server should be started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glp_packets_emitted_total",
			Help: "Solution packets emitted by kind",
		}, []string{"kind"}),
		fitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "glp_packet_fitness",
			Help: "Fitness of the last packet of each kind",
		}, []string{"kind"}),
		delivered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "glp_packet_orders_delivered",
			Help: "Orders fully delivered as of the last packet",
		}),
		optDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glp_optimization_duration_seconds",
			Help:    "Wall time of optimizer runs",
			Buckets: prometheus.DefBuckets,
		}, []string{"purpose"}),
		optRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glp_optimization_runs_total",
			Help: "Optimizer runs by purpose and outcome",
		}, []string{"purpose", "failed"}),
		breakdowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glp_breakdowns_handled_total",
			Help: "Breakdowns handled by incident type",
		}, []string{"incident"}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glp_packets_discarded_total",
			Help: "Queued packets discarded by breakdown recalculations",
		}),
		truckFuel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "glp_truck_fuel_gallons",
			Help: "Fuel on board per truck",
		}, []string{"truck"}),
		truckGLP: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "glp_truck_glp_m3",
			Help: "GLP on board per truck",
		}, []string{"truck"}),
		truckStates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "glp_trucks",
			Help: "Trucks per operational state",
		}, []string{"state"}),
	}
	var err error
	if s.packets, err = register(reg, s.packets); err != nil {
		return nil, err
	}
	if s.fitness, err = register(reg, s.fitness); err != nil {
		return nil, err
	}
	if s.delivered, err = register(reg, s.delivered); err != nil {
		return nil, err
	}
	if s.optDuration, err = register(reg, s.optDuration); err != nil {
		return nil, err
	}
	if s.optRuns, err = register(reg, s.optRuns); err != nil {
		return nil, err
	}
	if s.breakdowns, err = register(reg, s.breakdowns); err != nil {
		return nil, err
	}
	if s.discarded, err = register(reg, s.discarded); err != nil {
		return nil, err
	}
	if s.truckFuel, err = register(reg, s.truckFuel); err != nil {
		return nil, err
	}
	if s.truckGLP, err = register(reg, s.truckGLP); err != nil {
		return nil, err
	}
	if s.truckStates, err = register(reg, s.truckStates); err != nil {
		return nil, err
	}
	return s, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPacket counts the packet and exposes its fitness.
func (s *PromSink) RecordPacket(rec coremetrics.PacketRecord) error {
	s.packets.WithLabelValues(rec.Kind).Inc()
	s.fitness.WithLabelValues(rec.Kind).Set(rec.Fitness)
	s.delivered.Set(float64(rec.Delivered))
	return nil
}

// RecordOptimization observes the run duration.
func (s *PromSink) RecordOptimization(rec coremetrics.OptimizationRecord) error {
	s.optDuration.WithLabelValues(rec.Purpose).Observe(rec.Duration.Seconds())
	s.optRuns.WithLabelValues(rec.Purpose, strconv.FormatBool(rec.Failed)).Inc()
	return nil
}

// RecordBreakdown counts the breakdown and the packets it discarded.
func (s *PromSink) RecordBreakdown(rec coremetrics.BreakdownRecord) error {
	s.breakdowns.WithLabelValues(string(rec.Incident)).Inc()
	s.discarded.Add(float64(rec.Discarded))
	return nil
}

// RecordTruckState sets the per truck gauges and the state distribution.
func (s *PromSink) RecordTruckState(recs []coremetrics.TruckStateRecord) error {
	s.truckStates.Reset()
	for _, r := range recs {
		s.truckFuel.WithLabelValues(r.Truck.Code).Set(r.Truck.FuelCurrent)
		s.truckGLP.WithLabelValues(r.Truck.Code).Set(r.Truck.GLPCurrent)
		s.truckStates.WithLabelValues(r.Truck.State.String()).Inc()
	}
	return nil
}
