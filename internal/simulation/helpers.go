package simulation

import "github.com/nvandessel/hounds/internal/trial"

// EqualParty builds a configuration of dogs that all share probability p.
func EqualParty(paths, dogs int, p float64) trial.Config {
	probs := make([]float64, dogs)
	for i := range probs {
		probs[i] = p
	}
	return trial.NewConfig(paths, probs...)
}

// Party builds a configuration with one dog per probability.
func Party(paths int, probs ...float64) trial.Config {
	return trial.NewConfig(paths, probs...)
}
