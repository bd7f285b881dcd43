package config

import "fmt"

// APIConfig configures the HTTP solution API. An empty Address disables it.
type APIConfig struct {
	Address string `json:"address"`
	// Token, when set, is required as a bearer token on every request.
	Token string `json:"token"`
}

// ScenarioConfig points to the input feed.
type ScenarioConfig struct {
	Path string `json:"path"`
}

func (c ScenarioConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("scenario.path is required")
	}
	return nil
}
