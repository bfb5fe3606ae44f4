package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for valid values. Returns an error
// with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	if c.Session.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("session.idle_timeout must be > 0, got %s", c.Session.IdleTimeout))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("session.sweep_interval must be > 0, got %s", c.Session.SweepInterval))
	}

	if c.Negotiation.ParamsSizeThreshold < 0 {
		errs = append(errs, fmt.Errorf("negotiation.params_size_threshold must be >= 0, got %d", c.Negotiation.ParamsSizeThreshold))
	}
	for i, m := range c.Negotiation.StreamingMethods {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, fmt.Errorf("negotiation.streaming_methods[%d] is empty", i))
		}
	}

	if c.Dispatch.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.call_timeout must be > 0, got %s", c.Dispatch.CallTimeout))
	}
	if c.Dispatch.ReplayLimit <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.replay_limit must be > 0, got %d", c.Dispatch.ReplayLimit))
	}
	if c.Dispatch.ReplayGrace <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.replay_grace must be > 0, got %s", c.Dispatch.ReplayGrace))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	return errors.Join(errs...)
}
