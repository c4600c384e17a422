package simulation

import (
	"github.com/nvandessel/hounds/internal/store"
	"github.com/nvandessel/hounds/internal/trial"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name   string
	Config trial.Config
	Trials int
	Seed   uint64 // 0 = clock-seeded, not reproducible

	// Workers splits each run across goroutines. 0 means 1.
	Workers int

	// Strategies names the strategies to apply. Empty means every
	// registered strategy.
	Strategies []string

	// Repeats runs the scenario this many times on the same engine, so the
	// runs share one random stream. 0 means 1.
	Repeats int
}

// Result captures every run of a scenario and the exact values the rates
// should converge to.
type Result struct {
	Scenario Scenario
	Runs     []*trial.Statistics
	RunIDs   []string

	// Expected maps strategy name to its exact success probability.
	Expected map[string]float64

	// UnanimousAccuracy is the exact accuracy on trials where every dog
	// chose the same path.
	UnanimousAccuracy float64

	Store *store.SQLiteRunStore
}

// Last returns the final run.
func (r Result) Last() *trial.Statistics {
	return r.Runs[len(r.Runs)-1]
}
