// Package analytic computes exact success probabilities for the decision
// strategies, so simulated rates can be checked against what they should
// converge to.
package analytic

import (
	"errors"
	"fmt"
	"math"

	"github.com/nvandessel/hounds/internal/strategy"
	"github.com/nvandessel/hounds/internal/trial"
)

// MaxOutcomes bounds the joint choices Expected will enumerate.
const MaxOutcomes = 1 << 20

// ErrTooManyOutcomes is returned when NumPaths^NumAgents exceeds MaxOutcomes.
var ErrTooManyOutcomes = errors.New("too many outcomes to enumerate")

// AgreementAccuracy returns p² / (p² + (1-p)²), the probability that two
// dogs on two paths are right given that they agree.
func AgreementAccuracy(p float64) float64 {
	right := p * p
	wrong := (1 - p) * (1 - p)
	return right / (right + wrong)
}

// Expected returns the exact probability that s selects the correct path
// under cfg.
func Expected(cfg trial.Config, s strategy.Strategy) (float64, error) {
	out, err := ExpectedAll(cfg, []strategy.Strategy{s})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// ExpectedAll returns the exact success probability of each strategy,
// enumerating every joint choice of the party once.
func ExpectedAll(cfg trial.Config, strategies []strategy.Strategy) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	outcomes, err := countOutcomes(cfg.NumPaths, cfg.NumAgents)
	if err != nil {
		return nil, err
	}

	// weights[a][c] is the probability that dog a chooses path c.
	weights := make([][]float64, cfg.NumAgents)
	for a, p := range cfg.Probabilities {
		weights[a] = make([]float64, cfg.NumPaths)
		weights[a][trial.CorrectPath] = p
		for c := trial.CorrectPath + 1; c < cfg.NumPaths; c++ {
			weights[a][c] = (1 - p) / float64(cfg.NumPaths-1)
		}
	}

	choices := make([]int, cfg.NumAgents)
	ballot := strategy.Ballot{
		Choices:       choices,
		Probabilities: cfg.Probabilities,
		NumPaths:      cfg.NumPaths,
	}
	sums := make([]float64, len(strategies))
	for range outcomes {
		w := 1.0
		for a, c := range choices {
			w *= weights[a][c]
		}
		if w > 0 {
			for i, s := range strategies {
				sums[i] += w * s.SuccessProbability(ballot)
			}
		}
		next(choices, cfg.NumPaths)
	}
	return sums, nil
}

// UnanimousAccuracy returns the probability that the party is right given
// that every dog chose the same path. For two dogs on two paths it equals
// AgreementAccuracy.
func UnanimousAccuracy(cfg trial.Config) (float64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	right, wrong := 1.0, 1.0
	for _, p := range cfg.Probabilities {
		right *= p
		wrong *= (1 - p) / float64(cfg.NumPaths-1)
	}
	return right / (right + float64(cfg.NumPaths-1)*wrong), nil
}

// StdErr returns the standard error of a rate with the given expectation
// over n trials.
func StdErr(expected float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Sqrt(expected * (1 - expected) / float64(n))
}

// Within reports whether an observed rate over n trials lies within sigmas
// standard errors of expected. A degenerate expectation of 0 or 1 admits
// only the exact value.
func Within(observed, expected float64, n int, sigmas float64) bool {
	se := StdErr(expected, n)
	if se == 0 {
		return math.Abs(observed-expected) < 1e-12
	}
	return math.Abs(observed-expected) <= sigmas*se
}

func countOutcomes(numPaths, numAgents int) (int, error) {
	total := 1
	for range numAgents {
		total *= numPaths
		if total > MaxOutcomes {
			return 0, fmt.Errorf("%d paths and %d dogs: %w", numPaths, numAgents, ErrTooManyOutcomes)
		}
	}
	return total, nil
}

// next advances choices to the following joint outcome, odometer style.
func next(choices []int, numPaths int) {
	for i := len(choices) - 1; i >= 0; i-- {
		choices[i]++
		if choices[i] < numPaths {
			return
		}
		choices[i] = 0
	}
}
