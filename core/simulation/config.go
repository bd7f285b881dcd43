package simulation

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/kilianp07/glpdispatch/core/optimizer"
)

var (
	// ErrInvalidBreakdownTarget rejects breakdowns of unknown or already failed trucks.
	ErrInvalidBreakdownTarget = errors.New("invalid breakdown target")
	// ErrClockClosed is returned once Close has been called.
	ErrClockClosed = errors.New("simulation clock closed")
	// ErrPacketNotFound is returned for indexes outside the history.
	ErrPacketNotFound = errors.New("solution packet not found")
)

// Config holds the clock settings. The travel model fields are shared with
// the route evaluator.
type Config struct {
	IntervalMinutes  int    `json:"interval_minutes"`
	Timezone         string `json:"timezone"`
	GridWidth        int    `json:"grid_width"`
	GridHeight       int    `json:"grid_height"`
	LookaheadPackets int    `json:"lookahead_packets"`
	PublishTimeoutMS int    `json:"publish_timeout_ms"`

	optimizer.EvaluatorConfig `json:",squash"`
}

func (c *Config) SetDefaults() {
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = 120
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.GridWidth == 0 {
		c.GridWidth = 70
	}
	if c.GridHeight == 0 {
		c.GridHeight = 50
	}
	if c.PublishTimeoutMS == 0 {
		c.PublishTimeoutMS = 5000
	}
	c.EvaluatorConfig.SetDefaults()
}

func (c Config) Validate() error {
	if c.IntervalMinutes <= 0 {
		return fmt.Errorf("interval_minutes must be positive")
	}
	if c.GridWidth <= 0 || c.GridHeight <= 0 {
		return fmt.Errorf("grid size must be positive, got %dx%d", c.GridWidth, c.GridHeight)
	}
	if c.LookaheadPackets < 0 {
		return fmt.Errorf("lookahead_packets must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return c.EvaluatorConfig.Validate()
}

// Interval returns the tick length.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}
