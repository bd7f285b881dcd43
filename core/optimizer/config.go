package optimizer

import (
	"fmt"
	"runtime"
	"time"
)

// Allocation selects how a truck's GLP is split across the orders of its route.
type Allocation string

const (
	// AllocationEven gives each remaining order of the route an equal share.
	AllocationEven Allocation = "even"
	// AllocationGreedy serves orders in route order up to remaining capacity.
	AllocationGreedy Allocation = "greedy"
)

// EvaluatorConfig holds the travel model used to score routes.
type EvaluatorConfig struct {
	AvgSpeedKmh    float64    `json:"avg_speed_kmh"`
	ServiceMinutes int        `json:"service_minutes"`
	Allocation     Allocation `json:"allocation"`
}

func (c *EvaluatorConfig) SetDefaults() {
	if c.AvgSpeedKmh == 0 {
		c.AvgSpeedKmh = 50
	}
	if c.ServiceMinutes == 0 {
		c.ServiceMinutes = 15
	}
	if c.Allocation == "" {
		c.Allocation = AllocationEven
	}
}

func (c EvaluatorConfig) Validate() error {
	if c.AvgSpeedKmh <= 0 {
		return fmt.Errorf("avg_speed_kmh must be positive")
	}
	if c.ServiceMinutes < 0 {
		return fmt.Errorf("service_minutes must not be negative")
	}
	switch c.Allocation {
	case AllocationEven, AllocationGreedy:
	default:
		return fmt.Errorf("unknown allocation %q", c.Allocation)
	}
	return nil
}

func (c EvaluatorConfig) serviceTime() time.Duration {
	return time.Duration(c.ServiceMinutes) * time.Minute
}

// Config defines the genetic algorithm parameters. Generations and
// MutationRate are pointers so that an explicit zero is kept: zero
// generations returns the best seeded individual, a zero rate disables
// mutation.
type Config struct {
	PopulationSize int      `json:"population_size"`
	Generations    *int     `json:"generations"`
	Seed           int64    `json:"seed"`
	MutationRate   *float64 `json:"mutation_rate"`
	Workers        int      `json:"workers"`
}

// Ptr returns a pointer to v, for the optional Config fields.
func Ptr[T any](v T) *T { return &v }

func (c *Config) SetDefaults() {
	if c.PopulationSize == 0 {
		c.PopulationSize = 100
	}
	if c.Generations == nil {
		c.Generations = Ptr(10)
	}
	if c.MutationRate == nil {
		c.MutationRate = Ptr(0.3)
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
}

func (c Config) Validate() error {
	if c.PopulationSize < 2 {
		return fmt.Errorf("population_size must be at least 2")
	}
	if c.Generations != nil && *c.Generations < 0 {
		return fmt.Errorf("generations must not be negative")
	}
	if r := c.MutationRate; r != nil && (*r < 0 || *r > 1) {
		return fmt.Errorf("mutation_rate must be within [0,1]")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}
