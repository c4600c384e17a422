// Package trial implements the Monte Carlo trial engine.
//
// An Engine draws many independent trials of a hunting party reaching a fork
// in the road. In each trial every dog picks a path on its own, correct with
// its configured probability, and every configured strategy selects a path
// from the dogs' choices. The engine returns aggregate success counts per
// strategy; it never keeps per-trial history.
package trial

import (
	"errors"
	"fmt"
	"math"

	"github.com/nvandessel/hounds/internal/constants"
)

// CorrectPath is the index of the path that leads to the quarry.
const CorrectPath = constants.CorrectPath

// ErrInvalidConfiguration is wrapped by every validation failure. Callers
// match it with errors.Is.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ConfigError describes which part of a configuration is invalid.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

func invalid(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Config describes one hunting party at one fork.
type Config struct {
	// NumPaths is the number of paths at the fork. Must be at least 2.
	NumPaths int `json:"num_paths" yaml:"num_paths"`

	// NumAgents is the number of dogs in the party. Must be at least 1.
	NumAgents int `json:"num_agents" yaml:"num_agents"`

	// Probabilities holds, per dog, the probability that it independently
	// picks the correct path. Each must lie in (0, 1].
	Probabilities []float64 `json:"probabilities" yaml:"probabilities"`
}

// NewConfig builds a Config for a party with one dog per probability.
func NewConfig(numPaths int, probabilities ...float64) Config {
	probs := make([]float64, len(probabilities))
	copy(probs, probabilities)
	return Config{
		NumPaths:      numPaths,
		NumAgents:     len(probs),
		Probabilities: probs,
	}
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.NumPaths < constants.MinPaths {
		return invalid("num_paths", "must be at least %d, got %d", constants.MinPaths, c.NumPaths)
	}
	if c.NumAgents < constants.MinAgents {
		return invalid("num_agents", "must be at least %d, got %d", constants.MinAgents, c.NumAgents)
	}
	if len(c.Probabilities) != c.NumAgents {
		return invalid("probabilities", "must have one entry per agent: got %d for %d agents", len(c.Probabilities), c.NumAgents)
	}
	for i, p := range c.Probabilities {
		if !validProbability(p) {
			return invalid(fmt.Sprintf("probabilities[%d]", i), "must be in (0, 1], got %v", p)
		}
	}
	return nil
}

func validProbability(p float64) bool {
	return !math.IsNaN(p) && p > 0 && p <= 1
}

func validateTrials(n int) error {
	if n < 1 {
		return invalid("num_trials", "must be at least 1, got %d", n)
	}
	return nil
}
