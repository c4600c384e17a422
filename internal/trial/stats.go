package trial

import (
	"math"
	"time"
)

// StrategyResult is the aggregate outcome of one strategy over a run.
type StrategyResult struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Successes   int    `json:"successes"`
	Trials      int    `json:"trials"`
}

// Rate returns the fraction of trials in which the strategy chose the
// correct path.
func (r StrategyResult) Rate() float64 {
	if r.Trials == 0 {
		return 0
	}
	return float64(r.Successes) / float64(r.Trials)
}

// StdErr returns the standard error of Rate, sqrt(r(1-r)/n).
func (r StrategyResult) StdErr() float64 {
	if r.Trials == 0 {
		return 0
	}
	rate := r.Rate()
	return math.Sqrt(rate * (1 - rate) / float64(r.Trials))
}

// Statistics is the read-only result of one simulation run.
type Statistics struct {
	Config  Config        `json:"config"`
	Trials  int           `json:"trials"`
	Seed    uint64        `json:"seed"`
	Workers int           `json:"workers"`
	Elapsed time.Duration `json:"elapsed"`

	// Unanimous counts trials in which every dog chose the same path, and
	// UnanimousCorrect those in which that shared path was the correct one.
	Unanimous        int `json:"unanimous"`
	UnanimousCorrect int `json:"unanimous_correct"`

	Results []StrategyResult `json:"results"`
}

// Lookup returns the result for the named strategy.
func (s *Statistics) Lookup(name string) (StrategyResult, bool) {
	for _, r := range s.Results {
		if r.Name == name {
			return r, true
		}
	}
	return StrategyResult{}, false
}

// UnanimousRate returns the fraction of trials in which all dogs agreed.
func (s *Statistics) UnanimousRate() float64 {
	if s.Trials == 0 {
		return 0
	}
	return float64(s.Unanimous) / float64(s.Trials)
}

// UnanimousAccuracy returns how often the dogs were right when they all
// agreed. It is zero when they never agreed.
func (s *Statistics) UnanimousAccuracy() float64 {
	if s.Unanimous == 0 {
		return 0
	}
	return float64(s.UnanimousCorrect) / float64(s.Unanimous)
}
