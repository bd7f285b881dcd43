package optimizer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	optimizerRuns        *prometheus.CounterVec
	optimizerDuration    prometheus.Histogram
	optimizerEvaluations prometheus.Counter
	optimizerBestFitness prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, prometheus.Counter, prometheus.Gauge) {
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimizer_runs_total",
			Help: "Number of genetic optimizer runs by outcome",
		},
		[]string{"outcome"},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "optimizer_duration_seconds",
			Help:    "Wall clock duration of optimizer runs",
			Buckets: prometheus.DefBuckets,
		},
	)
	evals := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "optimizer_evaluations_total",
			Help: "Number of individuals evaluated",
		},
	)
	best := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "optimizer_best_fitness_km",
			Help: "Fitness of the last feasible best individual",
		},
	)
	return runs, dur, evals, best
}

func init() {
	optimizerRuns, optimizerDuration, optimizerEvaluations, optimizerBestFitness = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers optimizer metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(optimizerRuns, optimizerDuration, optimizerEvaluations, optimizerBestFitness)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	optimizerRuns, optimizerDuration, optimizerEvaluations, optimizerBestFitness = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
