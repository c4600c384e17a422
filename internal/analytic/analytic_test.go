package analytic

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/hounds/internal/strategy"
	"github.com/nvandessel/hounds/internal/trial"
)

const eps = 1e-9

func TestAgreementAccuracy(t *testing.T) {
	tests := []struct {
		p    float64
		want float64
	}{
		{0.5, 0.5},
		{1, 1},
		{0.7, 0.49 / 0.58},
		{0.9, 0.81 / 0.82},
	}
	for _, tt := range tests {
		if got := AgreementAccuracy(tt.p); math.Abs(got-tt.want) > eps {
			t.Errorf("AgreementAccuracy(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestExpected(t *testing.T) {
	consensus, _ := strategy.Lookup(strategy.NameConsensus)
	single, _ := strategy.Lookup(strategy.NameSingle)
	random, _ := strategy.Lookup(strategy.NameRandom)
	best, _ := strategy.Lookup(strategy.NameBest)
	uniform, _ := strategy.Lookup(strategy.NameMajorityUniform)

	tests := []struct {
		name string
		cfg  trial.Config
		s    strategy.Strategy
		want float64
	}{
		{"consensus two dogs equals p", trial.NewConfig(2, 0.7, 0.7), consensus, 0.7},
		{"consensus unequal dogs", trial.NewConfig(2, 0.5, 0.9), consensus, 0.7},
		{"consensus three paths", trial.NewConfig(3, 0.7, 0.7), consensus, 0.7},
		{"consensus three dogs two paths", trial.NewConfig(2, 0.7, 0.7, 0.7), consensus, 0.784},
		{"consensus three dogs three paths", trial.NewConfig(3, 0.6, 0.6, 0.6), consensus, 0.696},
		{"consensus perfect dogs", trial.NewConfig(4, 1, 1), consensus, 1},
		{"single", trial.NewConfig(2, 0.6, 0.9), single, 0.6},
		{"best", trial.NewConfig(2, 0.6, 0.9), best, 0.9},
		{"random ignores dogs", trial.NewConfig(4, 0.9, 0.9), random, 0.25},
		{"majority-uniform two paths", trial.NewConfig(2, 0.7, 0.7), uniform, 0.7},
		{"coin flip dogs", trial.NewConfig(2, 0.5, 0.5), consensus, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expected(tt.cfg, tt.s)
			if err != nil {
				t.Fatalf("Expected: %v", err)
			}
			if math.Abs(got-tt.want) > eps {
				t.Errorf("Expected = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpectedAll_MatchesExpected(t *testing.T) {
	cfg := trial.NewConfig(3, 0.55, 0.8, 0.65)
	all := strategy.All()
	got, err := ExpectedAll(cfg, all)
	if err != nil {
		t.Fatalf("ExpectedAll: %v", err)
	}
	for i, s := range all {
		want, err := Expected(cfg, s)
		if err != nil {
			t.Fatalf("Expected(%s): %v", s.Name(), err)
		}
		if math.Abs(got[i]-want) > eps {
			t.Errorf("%s: ExpectedAll = %v, Expected = %v", s.Name(), got[i], want)
		}
	}
}

func TestExpected_Errors(t *testing.T) {
	consensus, _ := strategy.Lookup(strategy.NameConsensus)

	_, err := Expected(trial.NewConfig(1, 0.7), consensus)
	if !errors.Is(err, trial.ErrInvalidConfiguration) {
		t.Errorf("one path: error = %v, want ErrInvalidConfiguration", err)
	}

	probs := make([]float64, 21)
	for i := range probs {
		probs[i] = 0.6
	}
	_, err = Expected(trial.NewConfig(2, probs...), consensus)
	if !errors.Is(err, ErrTooManyOutcomes) {
		t.Errorf("2^21 outcomes: error = %v, want ErrTooManyOutcomes", err)
	}
}

func TestUnanimousAccuracy(t *testing.T) {
	for _, p := range []float64{0.55, 0.7, 0.9} {
		got, err := UnanimousAccuracy(trial.NewConfig(2, p, p))
		if err != nil {
			t.Fatalf("UnanimousAccuracy: %v", err)
		}
		if want := AgreementAccuracy(p); math.Abs(got-want) > eps {
			t.Errorf("p=%v: UnanimousAccuracy = %v, AgreementAccuracy = %v", p, got, want)
		}
	}

	// Three paths: wrong agreement is split across two paths.
	got, err := UnanimousAccuracy(trial.NewConfig(3, 0.6, 0.6))
	if err != nil {
		t.Fatalf("UnanimousAccuracy: %v", err)
	}
	want := 0.36 / (0.36 + 2*0.2*0.2)
	if math.Abs(got-want) > eps {
		t.Errorf("three paths: UnanimousAccuracy = %v, want %v", got, want)
	}
}

func TestWithin(t *testing.T) {
	tests := []struct {
		name     string
		observed float64
		expected float64
		n        int
		want     bool
	}{
		{"exact", 0.7, 0.7, 1000, true},
		{"inside three sigma", 0.72, 0.7, 1000, true},
		{"outside three sigma", 0.75, 0.7, 1000, false},
		{"degenerate match", 1, 1, 10, true},
		{"degenerate miss", 0.99, 1, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Within(tt.observed, tt.expected, tt.n, 3); got != tt.want {
				t.Errorf("Within(%v, %v, %d, 3) = %v, want %v", tt.observed, tt.expected, tt.n, got, tt.want)
			}
		})
	}
}
