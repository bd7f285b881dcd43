package events

import "time"

// OptimizationEvent reports one optimizer run. Purpose is "interval" or
// "breakdown".
type OptimizationEvent struct {
	Purpose     string
	Fitness     float64
	Evaluations int
	Duration    time.Duration
	Err         error
}
