package optimizer

import "errors"

var (
	// ErrPathNotFound marks a leg whose destination is unreachable.
	ErrPathNotFound = errors.New("path not found")
	// ErrRouteInfeasible marks a missed deadline or an unknown waypoint.
	ErrRouteInfeasible = errors.New("route infeasible")
	// ErrTruckStranded marks a truck that ran out of fuel mid-route.
	ErrTruckStranded = errors.New("truck stranded")
	// ErrOptimizationFailed is returned when no feasible plan was found.
	ErrOptimizationFailed = errors.New("optimization failed")
)
