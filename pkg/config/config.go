// Package config provides unified configuration for the agentgate server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (AGENTGATE_ prefix)
//  4. Validation
package config

import "time"

// Config holds all configuration for the agentgate server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Session       SessionConfig       `yaml:"session"`
	Negotiation   NegotiationConfig   `yaml:"negotiation"`
	Dispatch      DispatchConfig      `yaml:"dispatch"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MB
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// SessionConfig holds session store settings.
type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`   // default: 30m
	SweepInterval time.Duration `yaml:"sweep_interval"` // default: 1m
}

// NegotiationConfig holds the response mode heuristic settings.
type NegotiationConfig struct {
	// ParamsSizeThreshold is the serialized params size, in bytes, above
	// which a call defaults to the streamed mode.
	ParamsSizeThreshold int `yaml:"params_size_threshold"` // default: 1024

	// StreamingMethods lists the methods whose calls default to the
	// streamed mode regardless of params size.
	StreamingMethods []string `yaml:"streaming_methods"` // default: chat, generate
}

// DispatchConfig holds call execution settings.
type DispatchConfig struct {
	CallTimeout time.Duration `yaml:"call_timeout"` // default: 60s
	ReplayLimit int           `yaml:"replay_limit"` // default: 1024
	ReplayGrace time.Duration `yaml:"replay_grace"` // default: 30s
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			MaxBodySize:     10 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Session: SessionConfig{
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Negotiation: NegotiationConfig{
			ParamsSizeThreshold: 1024,
			StreamingMethods:    []string{"chat", "generate"},
		},
		Dispatch: DispatchConfig{
			CallTimeout: 60 * time.Second,
			ReplayLimit: 1024,
			ReplayGrace: 30 * time.Second,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
