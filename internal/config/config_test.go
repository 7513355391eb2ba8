package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buildcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMinimal(t *testing.T) {
	path := writeConfig(t, `
steps:
  build:
    command: ["make", "examples"]
  test:
    command: ["make", "test"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.ProjectDir)
	assert.Equal(t, DefaultReleaseFlag, cfg.Profiles.ReleaseFlag)
	assert.Equal(t, map[string]string{DefaultDiagnosticsVar: DefaultDiagnosticsVal}, cfg.Diagnostics.Env)
	assert.Equal(t, []string{"make", "examples"}, cfg.Steps.Build.Command)
	assert.True(t, cfg.HistoryEnabled())
	assert.Equal(t, DefaultHistoryPath, cfg.History.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("BC_TEST_TOOL", "gradle")
	path := writeConfig(t, `
steps:
  build:
    command: ["${BC_TEST_TOOL}", "build"]
  test:
    command: ["${BC_TEST_TOOL}", "test"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"gradle", "build"}, cfg.Steps.Build.Command)
}

func TestValidateRejectsEmptyBuild(t *testing.T) {
	path := writeConfig(t, `
steps:
  test:
    command: ["make", "test"]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps.build.command")
}

func TestValidateRejectsUnknownRetryMode(t *testing.T) {
	path := writeConfig(t, `
steps:
  build:
    command: ["make"]
  test:
    command: ["make", "test"]
retry:
  mode: quadratic
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry.mode")
}

func TestValidateRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
steps:
  build:
    command: ["make"]
  test:
    command: ["make", "test"]
retry:
  initial: soonish
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry.initial")
}

func TestValidateEventsRequireURL(t *testing.T) {
	path := writeConfig(t, `
steps:
  build:
    command: ["make"]
  test:
    command: ["make", "test"]
events:
  enabled: true
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events.nats_url")
}

func TestStepAllowsFailureDefaults(t *testing.T) {
	var sc StepConfig
	assert.False(t, sc.StepAllowsFailure(false))
	assert.True(t, sc.StepAllowsFailure(true))

	deny := false
	sc.AllowFailure = &deny
	assert.False(t, sc.StepAllowsFailure(true))

	allow := true
	sc.AllowFailure = &allow
	assert.True(t, sc.StepAllowsFailure(false))
}

// TestDefaultsSelfCheck enumerates documented defaults against ApplyDefaults.
func TestDefaultsSelfCheck(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, ".", cfg.ProjectDir)
	assert.Equal(t, "--release", cfg.Profiles.ReleaseFlag)
	assert.Equal(t, RetryBackoffLinear, cfg.Retry.Mode)
	assert.Equal(t, time.Second, cfg.Retry.InitialDuration())
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDuration())
	assert.Zero(t, cfg.Retry.MaxRetries)
	assert.Equal(t, 10*time.Minute, cfg.Daemon.IntervalDuration())
	assert.Equal(t, 2*time.Second, cfg.Daemon.DebounceDuration())
	assert.Equal(t, "buildcheck.runs", cfg.Events.Subject)
	assert.Equal(t, ":9190", cfg.Metrics.Listen)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buildcheck.yaml")
	require.NoError(t, Init(path, false))

	// Refuses to overwrite without force.
	err := Init(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	require.NoError(t, Init(path, true))

	// The generated file must load cleanly.
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Steps.Build.Command)
	assert.NotEmpty(t, cfg.Steps.Test.Command)
	assert.NotEmpty(t, cfg.Steps.Bench.Command)
}
