package store

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/hounds/internal/trial"
)

var (
	_ RunStore = (*SQLiteRunStore)(nil)
	_ RunStore = (*InMemoryRunStore)(nil)
)

// newStores returns one of each RunStore implementation, closed on cleanup.
func newStores(t *testing.T) map[string]RunStore {
	t.Helper()
	sqlite, err := NewSQLiteRunStore(filepath.Join(t.TempDir(), ".hounds"))
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]RunStore{
		"sqlite": sqlite,
		"memory": NewInMemoryRunStore(),
	}
}

func sampleRun(seed uint64) Run {
	return Run{
		Config:           trial.NewConfig(2, 0.7, 0.7),
		Trials:           1000,
		Seed:             seed,
		Workers:          2,
		Elapsed:          1500 * time.Microsecond,
		Unanimous:        580,
		UnanimousCorrect: 490,
		Results: []trial.StrategyResult{
			{Name: "consensus", Successes: 702, Trials: 1000},
			{Name: "single", Successes: 698, Trials: 1000},
		},
	}
}

func TestNewSQLiteRunStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".hounds")

	s, err := NewSQLiteRunStore(dir)
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, "hounds.db")); os.IsNotExist(err) {
		t.Error("hounds.db was not created")
	}
	if s.Path() != filepath.Join(dir, "hounds.db") {
		t.Errorf("Path() = %v", s.Path())
	}
}

func TestSQLiteRunStore_Reopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".hounds")
	ctx := context.Background()

	s, err := NewSQLiteRunStore(dir)
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	id, err := s.SaveRun(ctx, sampleRun(7))
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	s.Close()

	// A second open runs the integrity check on the existing schema.
	s, err = NewSQLiteRunStore(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if _, err := s.GetRun(ctx, id); err != nil {
		t.Errorf("GetRun() after reopen error = %v", err)
	}
}

func TestRunStore_SaveAndGet(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			// High bit set: must survive storage as text.
			seed := uint64(math.MaxUint64 - 12)

			id, err := s.SaveRun(ctx, sampleRun(seed))
			if err != nil {
				t.Fatalf("SaveRun() error = %v", err)
			}
			if id == "" {
				t.Fatal("SaveRun() returned empty ID")
			}

			got, err := s.GetRun(ctx, id)
			if err != nil {
				t.Fatalf("GetRun() error = %v", err)
			}
			if got.Seed != seed {
				t.Errorf("Seed = %d, want %d", got.Seed, seed)
			}
			if got.Config.NumPaths != 2 || got.Config.NumAgents != 2 || len(got.Config.Probabilities) != 2 {
				t.Errorf("Config = %+v", got.Config)
			}
			if got.Elapsed != 1500*time.Microsecond {
				t.Errorf("Elapsed = %v", got.Elapsed)
			}
			if got.Unanimous != 580 || got.UnanimousCorrect != 490 {
				t.Errorf("unanimous = %d/%d", got.UnanimousCorrect, got.Unanimous)
			}
			if len(got.Results) != 2 {
				t.Fatalf("Results = %v", got.Results)
			}
			if got.Results[0].Name != "consensus" || got.Results[0].Successes != 702 {
				t.Errorf("Results[0] = %+v", got.Results[0])
			}
			if got.Results[0].Title != "Waldo's Strategy" {
				t.Errorf("Results[0].Title = %q, want the registered title", got.Results[0].Title)
			}
			if got.CreatedAt.IsZero() {
				t.Error("CreatedAt was not assigned")
			}

			// Prefix lookup.
			byPrefix, err := s.GetRun(ctx, id[:8])
			if err != nil {
				t.Fatalf("GetRun(prefix) error = %v", err)
			}
			if byPrefix.ID != id {
				t.Errorf("GetRun(prefix).ID = %v, want %v", byPrefix.ID, id)
			}
		})
	}
}

func TestRunStore_GetMissing(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetRun(context.Background(), "does-not-exist")
			if !errors.Is(err, ErrRunNotFound) {
				t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
			}
			if _, err := s.GetRun(context.Background(), ""); err == nil {
				t.Error("GetRun(\"\") should fail")
			}
		})
	}
}

func TestRunStore_AmbiguousPrefix(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"abc-1", "abc-2"} {
				r := sampleRun(1)
				r.ID = id
				if _, err := s.SaveRun(ctx, r); err != nil {
					t.Fatalf("SaveRun(%s) error = %v", id, err)
				}
			}
			_, err := s.GetRun(ctx, "abc")
			if err == nil || errors.Is(err, ErrRunNotFound) {
				t.Errorf("GetRun(abc) error = %v, want ambiguity error", err)
			}
			got, err := s.GetRun(ctx, "abc-2")
			if err != nil || got.ID != "abc-2" {
				t.Errorf("GetRun(abc-2) = %v, %v", got, err)
			}
		})
	}
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				r := sampleRun(uint64(i + 1))
				r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
				if _, err := s.SaveRun(ctx, r); err != nil {
					t.Fatalf("SaveRun() error = %v", err)
				}
			}

			all, err := s.ListRuns(ctx, 0)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(all) != 5 {
				t.Fatalf("ListRuns(0) returned %d runs, want 5", len(all))
			}
			if all[0].Seed != 5 || all[4].Seed != 1 {
				t.Errorf("order = %d..%d, want newest (5) first", all[0].Seed, all[4].Seed)
			}
			if len(all[0].Results) != 2 {
				t.Errorf("listed run has %d results, want 2", len(all[0].Results))
			}

			limited, err := s.ListRuns(ctx, 2)
			if err != nil {
				t.Fatalf("ListRuns(2) error = %v", err)
			}
			if len(limited) != 2 || limited[0].Seed != 5 {
				t.Errorf("ListRuns(2) = %d runs starting at seed %d", len(limited), limited[0].Seed)
			}
		})
	}
}

func TestRunStore_DeleteAll(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 3; i++ {
				if _, err := s.SaveRun(ctx, sampleRun(1)); err != nil {
					t.Fatalf("SaveRun() error = %v", err)
				}
			}
			n, err := s.DeleteAll(ctx)
			if err != nil {
				t.Fatalf("DeleteAll() error = %v", err)
			}
			if n != 3 {
				t.Errorf("DeleteAll() = %d, want 3", n)
			}
			runs, err := s.ListRuns(ctx, 0)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(runs) != 0 {
				t.Errorf("ListRuns() after DeleteAll returned %d runs", len(runs))
			}
		})
	}
}

func TestRunFromStatistics_RoundTrip(t *testing.T) {
	stats := &trial.Statistics{
		Config:  trial.NewConfig(3, 0.6),
		Trials:  10,
		Seed:    99,
		Workers: 1,
		Results: []trial.StrategyResult{{Name: "single", Successes: 6, Trials: 10}},
	}
	run := RunFromStatistics(stats)
	stats.Results[0].Successes = 0
	if run.Results[0].Successes != 6 {
		t.Error("RunFromStatistics aliases the results slice")
	}
	back := run.Statistics()
	if back.Seed != 99 || back.Trials != 10 || back.Results[0].Rate() != 0.6 {
		t.Errorf("Statistics() = %+v", back)
	}
}
