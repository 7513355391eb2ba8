package config

import (
	"fmt"
	"time"
)

// Validate checks invariants after defaults have been applied.
// The bench command is deliberately not required here: it is only needed
// when a release-profile run is attempted, and that is checked at run time.
func (c *Config) Validate() error {
	if len(c.Steps.Build.Command) == 0 {
		return fmt.Errorf("steps.build.command must not be empty")
	}
	if len(c.Steps.Test.Command) == 0 {
		return fmt.Errorf("steps.test.command must not be empty")
	}

	switch c.Retry.Mode {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
	default:
		return fmt.Errorf("retry.mode %q is not one of fixed|linear|exponential", c.Retry.Mode)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries cannot be negative")
	}
	for name, raw := range map[string]string{
		"retry.initial":   c.Retry.Initial,
		"retry.max":       c.Retry.Max,
		"daemon.interval": c.Daemon.Interval,
		"daemon.debounce": c.Daemon.Debounce,
	} {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", name, raw, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %q", name, raw)
		}
	}

	for k := range c.Diagnostics.Env {
		if k == "" {
			return fmt.Errorf("diagnostics.env contains an empty variable name")
		}
	}

	if c.Events.Enabled {
		if c.Events.NATSURL == "" {
			return fmt.Errorf("events.nats_url is required when events are enabled")
		}
		if c.Events.Subject == "" {
			return fmt.Errorf("events.subject is required when events are enabled")
		}
	}

	return nil
}
