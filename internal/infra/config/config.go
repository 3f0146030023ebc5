package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "24h" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Routing   RoutingConfig   `yaml:"routing"`
	Session   SessionConfig   `yaml:"session"`
	Inference InferenceConfig `yaml:"inference"`
	Store     StoreConfig     `yaml:"store"`
	Notify    NotifyConfig    `yaml:"notify"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
}

// ServerConfig holds HTTP gateway settings.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	RequestsPerMin int    `yaml:"requests_per_min"`
	BurstSize      int    `yaml:"burst_size"`
}

// RoutingConfig holds the orchestration tunables. The reference values are
// empirically chosen, so every one of them is configurable rather than a
// hard constant.
type RoutingConfig struct {
	// EmergencyConfidence is the confidence assigned to a forced
	// emergency-override selection.
	EmergencyConfidence float64 `yaml:"emergency_confidence"`
	// LowConfidenceFloor flags (but never blocks) selections scoring below it.
	LowConfidenceFloor float64 `yaml:"low_confidence_floor"`
	// MultiAgentThreshold: a runner-up scoring strictly above it marks the
	// decision as multi-agent and records alternatives.
	MultiAgentThreshold float64 `yaml:"multi_agent_threshold"`
	// AgeGroupBoost is added to an agent's score when the detected age
	// group matches the agent's preferred groups.
	AgeGroupBoost float64 `yaml:"age_group_boost"`
	// FallbackConfidence is assigned when no agent can handle the message
	// and the default agent is selected.
	FallbackConfidence float64 `yaml:"fallback_confidence"`
	// MaxAlternatives bounds OrchestrationDecision.AlternativeAgentIDs.
	MaxAlternatives int `yaml:"max_alternatives"`
	// MaxMessageChars rejects oversized input before evaluation.
	MaxMessageChars int `yaml:"max_message_chars"`
}

// SessionConfig holds conversation-memory lifecycle settings.
type SessionConfig struct {
	Timeout       Duration `yaml:"timeout"`        // inactivity expiry, default 24h
	HistoryLimit  int      `yaml:"history_limit"`  // bounded message history per session
	TopicLimit    int      `yaml:"topic_limit"`    // bounded health-topic set per session
	ContextWindow int      `yaml:"context_window"` // last-N history handed to agents
	SweepInterval Duration `yaml:"sweep_interval"` // expiry scan period
}

// InferenceConfig holds settings for the external inference collaborator.
type InferenceConfig struct {
	Provider string        `yaml:"provider"` // "http" or "mock"
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"` // CAREGATE_INFERENCE_API_KEY overrides
	Model    string        `yaml:"model"`
	Timeout  Duration      `yaml:"timeout"`
	Breaker  BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker around the inference client.
type BreakerConfig struct {
	MaxFailures uint32   `yaml:"max_failures"` // consecutive failures before the circuit opens
	OpenFor     Duration `yaml:"open_for"`     // how long the circuit stays open
	Interval    Duration `yaml:"interval"`     // closed-state cycle for clearing failure counts
}

// StoreConfig selects and configures the session store backend.
type StoreConfig struct {
	Driver  string   `yaml:"driver"` // "memory" or "sqlite"
	Path    string   `yaml:"path"`   // sqlite database path
	Timeout Duration `yaml:"timeout"`
}

// NotifyConfig holds alert delivery settings.
type NotifyConfig struct {
	WebhookURL string   `yaml:"webhook_url"` // empty = log-only sink
	Timeout    Duration `yaml:"timeout"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout or noop
}

// Default returns the configuration with reference defaults applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			RequestsPerMin: 120,
			BurstSize:      20,
		},
		Routing: RoutingConfig{
			EmergencyConfidence: 0.95,
			LowConfidenceFloor:  0.6,
			MultiAgentThreshold: 0.8,
			AgeGroupBoost:       0.3,
			FallbackConfidence:  0.5,
			MaxAlternatives:     2,
			MaxMessageChars:     4000,
		},
		Session: SessionConfig{
			Timeout:       Duration(24 * time.Hour),
			HistoryLimit:  50,
			TopicLimit:    20,
			ContextWindow: 10,
			SweepInterval: Duration(time.Hour),
		},
		Inference: InferenceConfig{
			Provider: "mock",
			Timeout:  Duration(20 * time.Second),
			Breaker: BreakerConfig{
				MaxFailures: 5,
				OpenFor:     Duration(30 * time.Second),
				Interval:    Duration(60 * time.Second),
			},
		},
		Store: StoreConfig{
			Driver:  "memory",
			Timeout: Duration(5 * time.Second),
		},
		Notify: NotifyConfig{
			Timeout: Duration(5 * time.Second),
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, overlays it on defaults, applies
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if key := os.Getenv("CAREGATE_INFERENCE_API_KEY"); key != "" {
		cfg.Inference.APIKey = key
	}
	if url := os.Getenv("CAREGATE_NOTIFY_WEBHOOK_URL"); url != "" {
		cfg.Notify.WebhookURL = url
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
