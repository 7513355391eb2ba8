package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Init creates a starter configuration file at configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		ProjectDir: ".",
		Steps: StepsConfig{
			Build: StepConfig{Command: []string{"make", "examples"}},
			Test:  StepConfig{Command: []string{"make", "test"}},
			Bench: StepConfig{Command: []string{"make", "bench"}},
		},
	}
	exampleConfig.ApplyDefaults()

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	header := `# buildcheck configuration
#
# The run pipeline executes steps.build (fail-fast), steps.test
# (failure suppressed by default), and steps.bench when the release
# profile is selected. The profile string is appended verbatim to the
# build and test commands; bench runs without extra arguments.
`
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
