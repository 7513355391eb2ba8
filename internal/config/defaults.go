package config

import "time"

// Default values applied after unmarshal. Kept in one place so the
// defaults self-check test can enumerate them.
const (
	DefaultReleaseFlag    = "--release"
	DefaultDiagnosticsVar = "BUILDCHECK_DIAGNOSTICS"
	DefaultDiagnosticsVal = "1"
	DefaultHistoryPath    = ".buildcheck/history.db"
	DefaultMetricsListen  = ":9190"
)

var (
	DefaultRetryInitial   = time.Second
	DefaultRetryMax       = 30 * time.Second
	DefaultDaemonInterval = 10 * time.Minute
	DefaultDaemonDebounce = 2 * time.Second
)

// ApplyDefaults fills zero-valued fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.ProjectDir == "" {
		c.ProjectDir = "."
	}
	if c.Profiles.ReleaseFlag == "" {
		c.Profiles.ReleaseFlag = DefaultReleaseFlag
	}
	if c.Diagnostics.Env == nil {
		c.Diagnostics.Env = map[string]string{DefaultDiagnosticsVar: DefaultDiagnosticsVal}
	}
	if c.Retry.Mode == "" {
		c.Retry.Mode = RetryBackoffLinear
	}
	if c.Retry.Initial == "" {
		c.Retry.Initial = DefaultRetryInitial.String()
	}
	if c.Retry.Max == "" {
		c.Retry.Max = DefaultRetryMax.String()
	}
	if c.History.Path == "" {
		c.History.Path = DefaultHistoryPath
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "buildcheck.runs"
	}
	if c.Daemon.Interval == "" {
		c.Daemon.Interval = DefaultDaemonInterval.String()
	}
	if c.Daemon.Debounce == "" {
		c.Daemon.Debounce = DefaultDaemonDebounce.String()
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = DefaultMetricsListen
	}
}
