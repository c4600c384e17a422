package simulation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nvandessel/hounds/internal/analytic"
	"github.com/nvandessel/hounds/internal/store"
	"github.com/nvandessel/hounds/internal/strategy"
	"github.com/nvandessel/hounds/internal/trial"
)

// Runner orchestrates simulation experiments against the real engine and
// run store.
type Runner struct {
	t     *testing.T
	store *store.SQLiteRunStore
}

// NewRunner creates a simulation runner with an isolated SQLite store
// and sandboxed HOME directory.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s, err := store.NewSQLiteRunStore(filepath.Join(tmpDir, ".hounds"))
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Runner{t: t, store: s}
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) Result {
	r.t.Helper()
	ctx := context.Background()

	strategies := strategy.All()
	if len(scenario.Strategies) > 0 {
		var err error
		strategies, err = strategy.ParseList(scenario.Strategies)
		if err != nil {
			r.t.Fatalf("scenario %s: %v", scenario.Name, err)
		}
	}

	// Phase 1: Exact values.
	exact, err := analytic.ExpectedAll(scenario.Config, strategies)
	if err != nil {
		r.t.Fatalf("scenario %s: ExpectedAll: %v", scenario.Name, err)
	}
	expected := make(map[string]float64, len(strategies))
	for i, s := range strategies {
		expected[s.Name()] = exact[i]
	}
	unanimous, err := analytic.UnanimousAccuracy(scenario.Config)
	if err != nil {
		r.t.Fatalf("scenario %s: UnanimousAccuracy: %v", scenario.Name, err)
	}

	// Phase 2: Runs on one engine.
	engine := trial.NewEngine(
		trial.WithSeed(scenario.Seed),
		trial.WithWorkers(max(scenario.Workers, 1)),
		trial.WithStrategies(strategies...),
	)
	repeats := max(scenario.Repeats, 1)
	result := Result{
		Scenario:          scenario,
		Runs:              make([]*trial.Statistics, 0, repeats),
		RunIDs:            make([]string, 0, repeats),
		Expected:          expected,
		UnanimousAccuracy: unanimous,
		Store:             r.store,
	}
	for i := 0; i < repeats; i++ {
		stats, err := engine.Run(ctx, scenario.Config, scenario.Trials)
		if err != nil {
			r.t.Fatalf("scenario %s: run %d: %v", scenario.Name, i, err)
		}

		// Phase 3: Record.
		id, err := r.store.SaveRun(ctx, store.RunFromStatistics(stats))
		if err != nil {
			r.t.Fatalf("scenario %s: run %d: SaveRun: %v", scenario.Name, i, err)
		}
		result.Runs = append(result.Runs, stats)
		result.RunIDs = append(result.RunIDs, id)
	}

	return result
}
