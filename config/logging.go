package config

import (
	"fmt"

	"github.com/kilianp07/glpdispatch/core/solutionlog"
)

// LoggingConfig defines the application log level and the solution packet
// log storage and rotation.
type LoggingConfig struct {
	// Level is the minimum zerolog level ("debug", "info", "warn", "error").
	Level string `json:"level"`
	// Packets configures the persisted packet log. An empty backend disables it.
	Packets solutionlog.Config `json:"packets"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Packets.Backend != "" && c.Packets.Path == "" {
		c.Packets.Path = "packets.jsonl"
	}
	c.Packets.SetDefaults()
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %s", c.Level)
	}
	switch c.Packets.Backend {
	case "", "jsonl", "rotating", "sqlite":
	default:
		return fmt.Errorf("unknown packet log backend %s", c.Packets.Backend)
	}
	return nil
}
