package simulation

import (
	"context"
	"math"
	"testing"

	"github.com/nvandessel/hounds/internal/analytic"
	"github.com/nvandessel/hounds/internal/trial"
)

// AssertRateNear asserts that a strategy's rate lies within tol of want in
// every run.
func AssertRateNear(t *testing.T, result Result, name string, want, tol float64) {
	t.Helper()
	for i, stats := range result.Runs {
		r := lookup(t, stats, name)
		if math.Abs(r.Rate()-want) > tol {
			t.Errorf("AssertRateNear: run %d: %s rate %.4f not within %.4f of %.4f", i, name, r.Rate(), tol, want)
		}
	}
}

// AssertRateWithinSigma asserts that a strategy's rate lies within sigmas
// standard errors of its exact value in every run.
func AssertRateWithinSigma(t *testing.T, result Result, name string, sigmas float64) {
	t.Helper()
	want, ok := result.Expected[name]
	if !ok {
		t.Fatalf("AssertRateWithinSigma: no expected value for %s", name)
	}
	for i, stats := range result.Runs {
		r := lookup(t, stats, name)
		if !analytic.Within(r.Rate(), want, r.Trials, sigmas) {
			t.Errorf("AssertRateWithinSigma: run %d: %s rate %.5f is more than %.1f sigma (%.5f) from exact %.5f",
				i, name, r.Rate(), sigmas, analytic.StdErr(want, r.Trials), want)
		}
	}
}

// AssertUnanimousAccuracyWithinSigma asserts that the accuracy on trials
// where every dog agreed lies within sigmas standard errors of its exact
// value in every run.
func AssertUnanimousAccuracyWithinSigma(t *testing.T, result Result, sigmas float64) {
	t.Helper()
	want := result.UnanimousAccuracy
	for i, stats := range result.Runs {
		if stats.Unanimous == 0 {
			t.Errorf("AssertUnanimousAccuracyWithinSigma: run %d: the dogs never agreed", i)
			continue
		}
		got := stats.UnanimousAccuracy()
		if !analytic.Within(got, want, stats.Unanimous, sigmas) {
			t.Errorf("AssertUnanimousAccuracyWithinSigma: run %d: accuracy %.5f over %d agreeing trials is more than %.1f sigma from exact %.5f",
				i, got, stats.Unanimous, sigmas, want)
		}
	}
}

// AssertOutperforms asserts that better beats worse by more than margin in
// every run.
func AssertOutperforms(t *testing.T, result Result, better, worse string, margin float64) {
	t.Helper()
	for i, stats := range result.Runs {
		b := lookup(t, stats, better)
		w := lookup(t, stats, worse)
		if b.Rate()-w.Rate() <= margin {
			t.Errorf("AssertOutperforms: run %d: %s (%.4f) does not beat %s (%.4f) by more than %.4f",
				i, better, b.Rate(), worse, w.Rate(), margin)
		}
	}
}

// AssertRatesEqual asserts that two strategies are reported equal at the
// given tolerance in every run.
func AssertRatesEqual(t *testing.T, result Result, a, b string, tolerance float64) {
	t.Helper()
	for i, stats := range result.Runs {
		v := trial.Compare(lookup(t, stats, a), lookup(t, stats, b), tolerance)
		if !v.Equal {
			t.Errorf("AssertRatesEqual: run %d: %s and %s differ by %.4f (tolerance %.4f)", i, a, b, v.Diff, tolerance)
		}
	}
}

// AssertRunsConsistent asserts that every pair of runs agrees on a
// strategy's rate within sigmas standard errors of their difference.
func AssertRunsConsistent(t *testing.T, result Result, name string, sigmas float64) {
	t.Helper()
	if len(result.Runs) < 2 {
		t.Fatalf("AssertRunsConsistent: need at least 2 runs, have %d", len(result.Runs))
	}
	for i := 0; i < len(result.Runs); i++ {
		for j := i + 1; j < len(result.Runs); j++ {
			a := lookup(t, result.Runs[i], name)
			b := lookup(t, result.Runs[j], name)
			se := math.Hypot(a.StdErr(), b.StdErr())
			if diff := math.Abs(a.Rate() - b.Rate()); diff > sigmas*se && diff > 1e-12 {
				t.Errorf("AssertRunsConsistent: runs %d and %d: %s rates %.5f and %.5f differ by more than %.1f sigma",
					i, j, name, a.Rate(), b.Rate(), sigmas)
			}
		}
	}
}

// AssertRecorded asserts that every run can be read back from the store
// with the same counts.
func AssertRecorded(t *testing.T, result Result) {
	t.Helper()
	ctx := context.Background()
	for i, id := range result.RunIDs {
		run, err := result.Store.GetRun(ctx, id)
		if err != nil {
			t.Errorf("AssertRecorded: run %d: GetRun(%s): %v", i, id, err)
			continue
		}
		stats := result.Runs[i]
		if run.Seed != stats.Seed || run.Trials != stats.Trials {
			t.Errorf("AssertRecorded: run %d: stored seed/trials %d/%d, want %d/%d", i, run.Seed, run.Trials, stats.Seed, stats.Trials)
		}
		for _, want := range stats.Results {
			got, ok := run.Statistics().Lookup(want.Name)
			if !ok || got.Successes != want.Successes {
				t.Errorf("AssertRecorded: run %d: %s stored %d successes, want %d", i, want.Name, got.Successes, want.Successes)
			}
		}
	}
}

func lookup(t *testing.T, stats *trial.Statistics, name string) trial.StrategyResult {
	t.Helper()
	r, ok := stats.Lookup(name)
	if !ok {
		t.Fatalf("strategy %s was not run", name)
	}
	return r
}
