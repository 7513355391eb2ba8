// Package config loads and validates the buildcheck configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config filename looked up when -c is not given.
const DefaultConfigFile = "buildcheck.yaml"

// Config represents the application configuration
type Config struct {
	ProjectDir  string            `yaml:"project_dir,omitempty"`
	Profiles    ProfilesConfig    `yaml:"profiles,omitempty"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics,omitempty"`
	Steps       StepsConfig       `yaml:"steps"`
	Retry       RetryConfig       `yaml:"retry,omitempty"`
	History     HistoryConfig     `yaml:"history,omitempty"`
	Events      EventsConfig      `yaml:"events,omitempty"`
	Daemon      DaemonConfig      `yaml:"daemon,omitempty"`
	Metrics     MetricsConfig     `yaml:"metrics,omitempty"`
}

// ProfilesConfig selects the literal that switches a run onto the release path.
type ProfilesConfig struct {
	ReleaseFlag string `yaml:"release_flag,omitempty"`
}

// DiagnosticsConfig lists environment variables exported before the first
// step spawns, so every child process inherits verbose failure diagnostics.
type DiagnosticsConfig struct {
	Env map[string]string `yaml:"env,omitempty"`
}

// StepConfig describes one external tool invocation.
type StepConfig struct {
	Command      []string `yaml:"command"`
	AllowFailure *bool    `yaml:"allow_failure,omitempty"` // nil -> per-step default
	Retryable    bool     `yaml:"retryable,omitempty"`
}

// StepsConfig holds the three pipeline steps.
type StepsConfig struct {
	Build StepConfig `yaml:"build"`
	Test  StepConfig `yaml:"test"`
	Bench StepConfig `yaml:"bench,omitempty"`
}

// RetryBackoffMode selects the backoff growth curve for retryable steps.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// RetryConfig holds backoff settings for steps marked retryable.
// Durations are Go duration strings ("1s", "250ms"), parsed during
// validation.
type RetryConfig struct {
	Mode       RetryBackoffMode `yaml:"mode,omitempty"`
	Initial    string           `yaml:"initial,omitempty"`
	Max        string           `yaml:"max,omitempty"`
	MaxRetries int              `yaml:"max_retries,omitempty"`
}

// InitialDuration parses the initial backoff delay, falling back to the
// default when unset or unparsable.
func (r RetryConfig) InitialDuration() time.Duration {
	if d, err := time.ParseDuration(r.Initial); err == nil && d > 0 {
		return d
	}
	return DefaultRetryInitial
}

// MaxDuration parses the backoff cap, falling back to the default.
func (r RetryConfig) MaxDuration() time.Duration {
	if d, err := time.ParseDuration(r.Max); err == nil && d > 0 {
		return d
	}
	return DefaultRetryMax
}

// HistoryConfig controls the SQLite run-history store.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"` // nil -> true
	Path    string `yaml:"path,omitempty"`
}

// EventsConfig controls NATS publication of run summaries.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// DaemonConfig controls continuous mode. Interval and debounce are Go
// duration strings.
type DaemonConfig struct {
	Interval string   `yaml:"interval,omitempty"`
	Watch    []string `yaml:"watch,omitempty"`
	Debounce string   `yaml:"debounce,omitempty"`
}

// IntervalDuration parses the scheduled run interval, falling back to the
// default when unset or unparsable.
func (d DaemonConfig) IntervalDuration() time.Duration {
	if v, err := time.ParseDuration(d.Interval); err == nil && v > 0 {
		return v
	}
	return DefaultDaemonInterval
}

// DebounceDuration parses the watch debounce window, falling back to the
// default.
func (d DaemonConfig) DebounceDuration() time.Duration {
	if v, err := time.ParseDuration(d.Debounce); err == nil && v > 0 {
		return v
	}
	return DefaultDaemonDebounce
}

// MetricsConfig controls the Prometheus endpoint in daemon mode.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Listen  string `yaml:"listen,omitempty"`
}

// HistoryEnabled resolves the pointer default.
func (c *Config) HistoryEnabled() bool {
	if c.History.Enabled == nil {
		return true
	}
	return *c.History.Enabled
}

// StepAllowsFailure resolves the allow_failure default for a step: test
// failures are suppressed unless configured otherwise, everything else is
// fail-fast.
func (s StepConfig) StepAllowsFailure(defaultAllow bool) bool {
	if s.AllowFailure == nil {
		return defaultAllow
	}
	return *s.AllowFailure
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env files if present; existing process env is never overridden.
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// loadEnvFiles loads .env/.env.local, stopping at the first file present.
func loadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		// godotenv.Load never overrides variables already set.
		if err := godotenv.Load(envPath); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", envPath)
			return
		}
	}
}
