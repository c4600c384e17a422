// Package config provides unified configuration loading for hounds.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/hounds/internal/constants"
	"github.com/nvandessel/hounds/internal/strategy"
	"gopkg.in/yaml.v3"
)

// HoundsConfig contains all hounds configuration settings.
type HoundsConfig struct {
	// Simulation contains the defaults for simulate and expected.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Logging contains settings for operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// History contains settings for the run history store.
	History HistoryConfig `json:"history" yaml:"history"`
}

// SimulationConfig holds simulation defaults. Flags override them.
type SimulationConfig struct {
	// Trials is the number of trials per run.
	Trials int `json:"trials" yaml:"trials"`

	// Paths is the number of paths at the fork.
	Paths int `json:"paths" yaml:"paths"`

	// Seed seeds the random source. 0 seeds from the clock.
	Seed uint64 `json:"seed" yaml:"seed"`

	// Workers is the number of goroutines trials are split across.
	Workers int `json:"workers" yaml:"workers"`

	// Tolerance is the absolute accuracy difference below which two
	// strategies are reported as equal.
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`

	// Strategies lists the strategies to compare. Empty means the defaults.
	Strategies []string `json:"strategies,omitempty" yaml:"strategies,omitempty"`
}

// LoggingConfig configures hounds' logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "warn", "info" (default), "debug", or "trace".
	// "debug" logs run start and finish; "trace" adds per-worker timings.
	Level string `json:"level" yaml:"level"`
}

// HistoryConfig configures run recording.
type HistoryConfig struct {
	// Enabled records every simulate run. --record forces recording for
	// one run regardless.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Scope selects where history lives: "global" (~/.hounds) or "local"
	// (<root>/.hounds).
	Scope string `json:"scope" yaml:"scope"`
}

// Default returns a HoundsConfig with sensible defaults.
func Default() *HoundsConfig {
	return &HoundsConfig{
		Simulation: SimulationConfig{
			Trials:    constants.DefaultTrials,
			Paths:     constants.DefaultPaths,
			Seed:      0,
			Workers:   constants.DefaultWorkers,
			Tolerance: constants.DefaultTolerance,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		History: HistoryConfig{
			Enabled: false,
			Scope:   string(constants.ScopeGlobal),
		},
	}
}

// Path returns the default config file location, ~/.hounds/config.yaml.
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DirName, "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.hounds/config.yaml -> environment variables
func Load() (*HoundsConfig, error) {
	config := Default()

	if configPath, err := Path(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*HoundsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// Save writes the configuration as YAML, creating the directory if needed.
func (c *HoundsConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *HoundsConfig) Validate() error {
	s := c.Simulation
	if s.Trials < 1 {
		return fmt.Errorf("trials must be at least 1, got %d", s.Trials)
	}
	if s.Paths < constants.MinPaths {
		return fmt.Errorf("paths must be at least %d, got %d", constants.MinPaths, s.Paths)
	}
	if s.Workers < 1 || s.Workers > constants.MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d, got %d", constants.MaxWorkers, s.Workers)
	}
	if math.IsNaN(s.Tolerance) || s.Tolerance < 0 || s.Tolerance >= 1 {
		return fmt.Errorf("tolerance must be in [0, 1), got %v", s.Tolerance)
	}
	if _, err := strategy.ParseList(s.Strategies); err != nil {
		return err
	}

	validLevels := map[string]bool{"warn": true, "info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: warn, info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if !constants.Scope(c.History.Scope).Valid() {
		return fmt.Errorf("invalid history scope: %s (valid: local, global)", c.History.Scope)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Malformed numbers are ignored and the previous value is kept.
func applyEnvOverrides(config *HoundsConfig) {
	if v := os.Getenv("HOUNDS_TRIALS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Trials = n
		}
	}
	if v := os.Getenv("HOUNDS_PATHS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Paths = n
		}
	}
	if v := os.Getenv("HOUNDS_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.Seed = n
		}
	}
	if v := os.Getenv("HOUNDS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Workers = n
		}
	}
	if v := os.Getenv("HOUNDS_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.Tolerance = f
		}
	}
	if v := os.Getenv("HOUNDS_STRATEGIES"); v != "" {
		config.Simulation.Strategies = SplitList(v)
	}

	if v := os.Getenv("HOUNDS_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("HOUNDS_HISTORY_ENABLED"); v != "" {
		config.History.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("HOUNDS_HISTORY_SCOPE"); v != "" {
		config.History.Scope = v
	}
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
