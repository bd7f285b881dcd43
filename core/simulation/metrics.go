package simulation

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	packetsTotal    *prometheus.CounterVec
	breakdownsTotal *prometheus.CounterVec
	expiredOrders   prometheus.Counter
	pausedGauge     prometheus.Gauge
	historyLength   prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Gauge, prometheus.Gauge) {
	packets := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simulation_packets_total",
			Help: "Number of solution packets emitted by kind",
		},
		[]string{"kind"},
	)
	breakdowns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simulation_breakdowns_total",
			Help: "Number of processed truck breakdowns by incident type",
		},
		[]string{"incident"},
	)
	expired := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simulation_expired_orders_total",
			Help: "Number of orders excluded because their deadline passed",
		},
	)
	paused := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "simulation_paused",
			Help: "1 while breakdown recalculation holds the clock",
		},
	)
	history := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "simulation_history_packets",
			Help: "Number of packets in the solution history",
		},
	)
	return packets, breakdowns, expired, paused, history
}

func init() {
	packetsTotal, breakdownsTotal, expiredOrders, pausedGauge, historyLength = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers simulation metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(packetsTotal, breakdownsTotal, expiredOrders, pausedGauge, historyLength)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	packetsTotal, breakdownsTotal, expiredOrders, pausedGauge, historyLength = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
