package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("default server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.MaxBodySize != 10<<20 {
		t.Errorf("default server.max_body_size = %d, want 10 MB", cfg.Server.MaxBodySize)
	}
	if cfg.Session.IdleTimeout != 30*time.Minute {
		t.Errorf("default session.idle_timeout = %v, want 30m", cfg.Session.IdleTimeout)
	}
	if cfg.Negotiation.ParamsSizeThreshold != 1024 {
		t.Errorf("default negotiation.params_size_threshold = %d, want 1024", cfg.Negotiation.ParamsSizeThreshold)
	}
	if len(cfg.Negotiation.StreamingMethods) != 2 {
		t.Errorf("default negotiation.streaming_methods = %v", cfg.Negotiation.StreamingMethods)
	}
	if cfg.Dispatch.CallTimeout != 60*time.Second {
		t.Errorf("default dispatch.call_timeout = %v, want 60s", cfg.Dispatch.CallTimeout)
	}
	if cfg.Dispatch.ReplayLimit != 1024 {
		t.Errorf("default dispatch.replay_limit = %d, want 1024", cfg.Dispatch.ReplayLimit)
	}
	if !cfg.Observability.Metrics.Enabled {
		t.Error("default observability.metrics.enabled = false, want true")
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
server:
  port: 9090
  max_body_size: 1048576
  shutdown_timeout: 10s
session:
  idle_timeout: 15m
  sweep_interval: 30s
negotiation:
  params_size_threshold: 4096
  streaming_methods: [chat, generate, transcribe]
dispatch:
  call_timeout: 90s
  replay_limit: 256
  replay_grace: 1m
observability:
  metrics:
    enabled: false
`

	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.MaxBodySize != 1048576 {
		t.Errorf("server.max_body_size = %d, want 1048576", cfg.Server.MaxBodySize)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("server.shutdown_timeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Session.IdleTimeout != 15*time.Minute {
		t.Errorf("session.idle_timeout = %v, want 15m", cfg.Session.IdleTimeout)
	}
	if cfg.Session.SweepInterval != 30*time.Second {
		t.Errorf("session.sweep_interval = %v, want 30s", cfg.Session.SweepInterval)
	}
	if cfg.Negotiation.ParamsSizeThreshold != 4096 {
		t.Errorf("negotiation.params_size_threshold = %d, want 4096", cfg.Negotiation.ParamsSizeThreshold)
	}
	if len(cfg.Negotiation.StreamingMethods) != 3 || cfg.Negotiation.StreamingMethods[2] != "transcribe" {
		t.Errorf("negotiation.streaming_methods = %v", cfg.Negotiation.StreamingMethods)
	}
	if cfg.Dispatch.CallTimeout != 90*time.Second {
		t.Errorf("dispatch.call_timeout = %v, want 90s", cfg.Dispatch.CallTimeout)
	}
	if cfg.Dispatch.ReplayLimit != 256 {
		t.Errorf("dispatch.replay_limit = %d, want 256", cfg.Dispatch.ReplayLimit)
	}
	if cfg.Dispatch.ReplayGrace != time.Minute {
		t.Errorf("dispatch.replay_grace = %v, want 1m", cfg.Dispatch.ReplayGrace)
	}
	if cfg.Observability.Metrics.Enabled {
		t.Error("observability.metrics.enabled = true, want false")
	}
}

func TestYAMLDefaultsMerge(t *testing.T) {
	// A partial file keeps defaults for everything it omits.
	tmpFile := writeTemp(t, "config-*.yaml", "server:\n  port: 9999\n")

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Dispatch.CallTimeout != 60*time.Second {
		t.Errorf("dispatch.call_timeout = %v, want default 60s", cfg.Dispatch.CallTimeout)
	}
	if cfg.Session.IdleTimeout != 30*time.Minute {
		t.Errorf("session.idle_timeout = %v, want default 30m", cfg.Session.IdleTimeout)
	}
}

func TestEnvOverride(t *testing.T) {
	tmpFile := writeTemp(t, "config-*.yaml", "server:\n  port: 9090\n")

	t.Setenv("AGENTGATE_PORT", "7070")
	t.Setenv("AGENTGATE_CALL_TIMEOUT", "45s")
	t.Setenv("AGENTGATE_SESSION_IDLE_TIMEOUT", "5m")
	t.Setenv("AGENTGATE_PARAMS_SIZE_THRESHOLD", "2048")
	t.Setenv("AGENTGATE_STREAMING_METHODS", "chat, summarize")
	t.Setenv("AGENTGATE_REPLAY_LIMIT", "32")
	t.Setenv("AGENTGATE_METRICS_ENABLED", "false")

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("server.port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Dispatch.CallTimeout != 45*time.Second {
		t.Errorf("dispatch.call_timeout = %v, want 45s", cfg.Dispatch.CallTimeout)
	}
	if cfg.Session.IdleTimeout != 5*time.Minute {
		t.Errorf("session.idle_timeout = %v, want 5m", cfg.Session.IdleTimeout)
	}
	if cfg.Negotiation.ParamsSizeThreshold != 2048 {
		t.Errorf("negotiation.params_size_threshold = %d, want 2048", cfg.Negotiation.ParamsSizeThreshold)
	}
	want := []string{"chat", "summarize"}
	if len(cfg.Negotiation.StreamingMethods) != 2 ||
		cfg.Negotiation.StreamingMethods[0] != want[0] ||
		cfg.Negotiation.StreamingMethods[1] != want[1] {
		t.Errorf("negotiation.streaming_methods = %v, want %v", cfg.Negotiation.StreamingMethods, want)
	}
	if cfg.Dispatch.ReplayLimit != 32 {
		t.Errorf("dispatch.replay_limit = %d, want 32", cfg.Dispatch.ReplayLimit)
	}
	if cfg.Observability.Metrics.Enabled {
		t.Error("observability.metrics.enabled = true, want env override false")
	}
}

func TestMalformedEnvValueIgnored(t *testing.T) {
	t.Setenv("AGENTGATE_PORT", "not-a-port")
	t.Setenv("AGENTGATE_CALL_TIMEOUT", "soon")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Dispatch.CallTimeout != 60*time.Second {
		t.Errorf("dispatch.call_timeout = %v, want default 60s", cfg.Dispatch.CallTimeout)
	}
}

func TestFileDiscovery(t *testing.T) {
	envFile := writeTemp(t, "env-config-*.yaml", "server:\n  port: 6061\n")
	t.Setenv("AGENTGATE_CONFIG", envFile)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 6061 {
		t.Errorf("server.port = %d, want 6061 from AGENTGATE_CONFIG file", cfg.Server.Port)
	}

	// An explicit path beats the env var.
	explicit := writeTemp(t, "explicit-*.yaml", "server:\n  port: 6062\n")
	cfg, err = Load(explicit)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 6062 {
		t.Errorf("server.port = %d, want 6062 from explicit path", cfg.Server.Port)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() with a missing explicit file succeeded")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"huge port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"zero body size", func(c *Config) { c.Server.MaxBodySize = 0 }, "server.max_body_size"},
		{"zero idle timeout", func(c *Config) { c.Session.IdleTimeout = 0 }, "session.idle_timeout"},
		{"negative threshold", func(c *Config) { c.Negotiation.ParamsSizeThreshold = -1 }, "params_size_threshold"},
		{"empty method", func(c *Config) { c.Negotiation.StreamingMethods = []string{"chat", " "} }, "streaming_methods"},
		{"zero call timeout", func(c *Config) { c.Dispatch.CallTimeout = 0 }, "dispatch.call_timeout"},
		{"zero replay limit", func(c *Config) { c.Dispatch.ReplayLimit = 0 }, "dispatch.replay_limit"},
		{"bad metrics path", func(c *Config) { c.Observability.Metrics.Path = "metrics" }, "metrics.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}

	defaults := Defaults()
	if err := defaults.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
}

func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()
	return f.Name()
}
