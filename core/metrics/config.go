package metrics

import (
	"fmt"
	"strconv"

	"github.com/kilianp07/glpdispatch/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks          []factory.ModuleConfig `json:"sinks"`
	PrometheusPort string                 `json:"prometheus_port"`
}

func (c *Config) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = "9090"
	}
}

// Validate checks the sink types against the registered ones and the port.
func (c Config) Validate() error {
	known := map[string]bool{}
	for _, n := range SinkTypes() {
		known[n] = true
	}
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics sink %d: type is required", i)
		}
		if !known[s.Type] {
			return fmt.Errorf("metrics sink %d: unknown type %q (known: %v)", i, s.Type, SinkTypes())
		}
	}
	if p, err := strconv.Atoi(c.PrometheusPort); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("prometheus_port %q is not a valid port", c.PrometheusPort)
	}
	return nil
}
