package solutionlog

import (
	"fmt"

	"github.com/kilianp07/glpdispatch/core/factory"
)

// Config selects and configures a packet store. An empty Backend disables
// persistence.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies the rotation defaults.
func (c *Config) SetDefaults() {
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 7
	}
}

var registry = factory.NewRegistry[Store]()

func init() {
	_ = registry.Register("jsonl", func(conf map[string]any) (Store, error) {
		c, err := decode(conf)
		if err != nil {
			return nil, err
		}
		return NewJSONLStore(c.Path)
	})
	_ = registry.Register("rotating", func(conf map[string]any) (Store, error) {
		c, err := decode(conf)
		if err != nil {
			return nil, err
		}
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	_ = registry.Register("sqlite", func(conf map[string]any) (Store, error) {
		c, err := decode(conf)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
}

func decode(conf map[string]any) (Config, error) {
	var c Config
	if err := factory.Decode(conf, &c); err != nil {
		return c, err
	}
	c.SetDefaults()
	if c.Path == "" {
		return c, fmt.Errorf("solution log: path is required")
	}
	return c, nil
}

// RegisterStore makes a custom backend available to New.
func RegisterStore(name string, f factory.Factory[Store]) error {
	return registry.Register(name, f)
}

// New builds the configured store. It returns nil when persistence is disabled.
func New(cfg Config) (Store, error) {
	if cfg.Backend == "" {
		return nil, nil
	}
	conf := map[string]any{
		"path":         cfg.Path,
		"max_size_mb":  cfg.MaxSizeMB,
		"max_backups":  cfg.MaxBackups,
		"max_age_days": cfg.MaxAgeDays,
	}
	return registry.Create(factory.ModuleConfig{Type: cfg.Backend, Conf: conf})
}
