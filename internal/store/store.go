// Package store persists the aggregate statistics of simulation runs.
//
// Only what a run returns is stored: the configuration, the seed, and one
// success count per strategy. Individual trials are never written.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/hounds/internal/strategy"
	"github.com/nvandessel/hounds/internal/trial"
)

// ErrRunNotFound is returned when no stored run matches an ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded simulation run.
type Run struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Config    trial.Config  `json:"config"`
	Trials    int           `json:"trials"`
	Seed      uint64        `json:"seed"`
	Workers   int           `json:"workers"`
	Elapsed   time.Duration `json:"elapsed"`

	Unanimous        int `json:"unanimous"`
	UnanimousCorrect int `json:"unanimous_correct"`

	Results []trial.StrategyResult `json:"results"`
}

// RunFromStatistics converts the result of Engine.Run into a Run ready to
// be saved. ID and CreatedAt are assigned by the store.
func RunFromStatistics(stats *trial.Statistics) Run {
	results := make([]trial.StrategyResult, len(stats.Results))
	copy(results, stats.Results)
	return Run{
		Config:           stats.Config,
		Trials:           stats.Trials,
		Seed:             stats.Seed,
		Workers:          stats.Workers,
		Elapsed:          stats.Elapsed,
		Unanimous:        stats.Unanimous,
		UnanimousCorrect: stats.UnanimousCorrect,
		Results:          results,
	}
}

// Statistics converts a stored run back into the engine's result type.
func (r Run) Statistics() *trial.Statistics {
	results := make([]trial.StrategyResult, len(r.Results))
	copy(results, r.Results)
	return &trial.Statistics{
		Config:           r.Config,
		Trials:           r.Trials,
		Seed:             r.Seed,
		Workers:          r.Workers,
		Elapsed:          r.Elapsed,
		Unanimous:        r.Unanimous,
		UnanimousCorrect: r.UnanimousCorrect,
		Results:          results,
	}
}

// describe fills in the title and description of registered strategies.
// Results for strategies that are no longer registered keep their name only.
func describe(results []trial.StrategyResult) {
	for i := range results {
		s, err := strategy.Lookup(results[i].Name)
		if err != nil {
			continue
		}
		results[i].Title = s.Title()
		results[i].Description = s.Description()
	}
}

// RunStore defines the interface for recording and reading run history.
type RunStore interface {
	// SaveRun stores run and returns its ID. A missing ID or creation time
	// is assigned.
	SaveRun(ctx context.Context, run Run) (string, error)

	// GetRun returns the run whose ID equals id or, failing that, the single
	// run whose ID starts with id. Returns ErrRunNotFound when none match.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns up to limit runs, newest first. A limit of zero or
	// less returns every run.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// DeleteAll removes every run and returns how many were removed.
	DeleteAll(ctx context.Context) (int, error)

	Close() error
}
