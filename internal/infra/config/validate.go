package config

import "fmt"

// Validate checks bounds on the routing tunables and required settings.
func (c *Config) Validate() error {
	for name, v := range map[string]float64{
		"routing.emergency_confidence":  c.Routing.EmergencyConfidence,
		"routing.low_confidence_floor":  c.Routing.LowConfidenceFloor,
		"routing.multi_agent_threshold": c.Routing.MultiAgentThreshold,
		"routing.fallback_confidence":   c.Routing.FallbackConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, v)
		}
	}
	if c.Routing.AgeGroupBoost < 0 || c.Routing.AgeGroupBoost > 1 {
		return fmt.Errorf("routing.age_group_boost must be in [0,1], got %v", c.Routing.AgeGroupBoost)
	}
	if c.Routing.MaxMessageChars <= 0 {
		return fmt.Errorf("routing.max_message_chars must be positive")
	}
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("session.timeout must be positive")
	}
	if c.Session.HistoryLimit <= 0 {
		return fmt.Errorf("session.history_limit must be positive")
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported store driver: %q", c.Store.Driver)
	}

	switch c.Inference.Provider {
	case "http":
		if c.Inference.BaseURL == "" {
			return fmt.Errorf("inference.base_url is required for the http provider")
		}
	case "mock":
	default:
		return fmt.Errorf("unsupported inference provider: %q", c.Inference.Provider)
	}
	return nil
}
