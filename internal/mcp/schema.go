package mcp

import "github.com/nvandessel/hounds/internal/trial"

// HoundsSimulateInput defines the input schema for hounds_simulate.
type HoundsSimulateInput struct {
	Paths         int       `json:"paths,omitempty" jsonschema:"Number of paths at the fork (2 to 64; default from config)"`
	Probabilities []float64 `json:"probabilities" jsonschema:"Per-dog probability of picking the correct path, each in (0, 1]; at most 64 dogs"`
	Trials        int       `json:"trials,omitempty" jsonschema:"Number of trials (default from config; capped at 1000000)"`
	Seed          uint64    `json:"seed,omitempty" jsonschema:"Random seed; 0 seeds from the clock"`
	Workers       int       `json:"workers,omitempty" jsonschema:"Number of goroutines to split trials across (default from config)"`
	Strategies    []string  `json:"strategies,omitempty" jsonschema:"Strategy names to compare (default: consensus and single)"`
	Tolerance     float64   `json:"tolerance,omitempty" jsonschema:"Absolute accuracy difference treated as equal (default from config)"`
	Record        bool      `json:"record,omitempty" jsonschema:"Save the run to history"`
}

// StrategyRate is one strategy's observed or exact success rate.
type StrategyRate struct {
	Name      string  `json:"name" jsonschema:"Strategy name"`
	Title     string  `json:"title" jsonschema:"Human-readable strategy title"`
	Successes int     `json:"successes,omitempty" jsonschema:"Trials in which the strategy picked the correct path"`
	Trials    int     `json:"trials,omitempty" jsonschema:"Trials run"`
	Rate      float64 `json:"rate" jsonschema:"Observed success rate, or the exact probability for hounds_expected"`
	StdErr    float64 `json:"std_err,omitempty" jsonschema:"Standard error of the observed rate"`
	Expected  float64 `json:"expected,omitempty" jsonschema:"Exact success probability, when it could be computed"`
}

// HoundsSimulateOutput defines the output schema for hounds_simulate.
type HoundsSimulateOutput struct {
	RunID             string         `json:"run_id,omitempty" jsonschema:"History ID when the run was recorded"`
	Paths             int            `json:"paths" jsonschema:"Number of paths at the fork"`
	Probabilities     []float64      `json:"probabilities" jsonschema:"Per-dog probabilities used"`
	Trials            int            `json:"trials" jsonschema:"Trials run"`
	Seed              uint64         `json:"seed" jsonschema:"Seed used; pass it back to reproduce the run"`
	Workers           int            `json:"workers" jsonschema:"Goroutines used"`
	ElapsedMs         int64          `json:"elapsed_ms" jsonschema:"Wall time of the run in milliseconds"`
	Results           []StrategyRate `json:"results" jsonschema:"Per-strategy results in request order"`
	UnanimousAccuracy float64        `json:"unanimous_accuracy" jsonschema:"Observed accuracy on trials where every dog agreed"`
	UnanimousExpected float64        `json:"unanimous_expected,omitempty" jsonschema:"Exact accuracy on trials where every dog agrees"`
	Verdict           *trial.Verdict `json:"verdict,omitempty" jsonschema:"Comparison of the first two strategies"`
	Message           string         `json:"message" jsonschema:"Human-readable summary"`
}

// HoundsExpectedInput defines the input schema for hounds_expected.
type HoundsExpectedInput struct {
	Paths         int       `json:"paths,omitempty" jsonschema:"Number of paths at the fork (2 to 64; default from config)"`
	Probabilities []float64 `json:"probabilities" jsonschema:"Per-dog probability of picking the correct path, each in (0, 1]; at most 64 dogs"`
	Strategies    []string  `json:"strategies,omitempty" jsonschema:"Strategy names (default: consensus and single)"`
}

// HoundsExpectedOutput defines the output schema for hounds_expected.
type HoundsExpectedOutput struct {
	Paths             int            `json:"paths" jsonschema:"Number of paths at the fork"`
	Probabilities     []float64      `json:"probabilities" jsonschema:"Per-dog probabilities used"`
	Results           []StrategyRate `json:"results" jsonschema:"Exact success probability per strategy"`
	UnanimousAccuracy float64        `json:"unanimous_accuracy" jsonschema:"Exact accuracy on trials where every dog agrees"`
}

// HoundsHistoryInput defines the input schema for hounds_history.
type HoundsHistoryInput struct {
	ID    string `json:"id,omitempty" jsonschema:"Run ID or unique prefix; empty lists recent runs"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum runs to list (default 20)"`
}

// RunSummary describes one recorded run.
type RunSummary struct {
	ID            string         `json:"id" jsonschema:"Run ID"`
	CreatedAt     string         `json:"created_at" jsonschema:"When the run was recorded (RFC 3339)"`
	Paths         int            `json:"paths" jsonschema:"Number of paths at the fork"`
	Probabilities []float64      `json:"probabilities" jsonschema:"Per-dog probabilities"`
	Trials        int            `json:"trials" jsonschema:"Trials run"`
	Seed          uint64         `json:"seed" jsonschema:"Seed used"`
	Results       []StrategyRate `json:"results" jsonschema:"Per-strategy results"`
}

// HoundsHistoryOutput defines the output schema for hounds_history.
type HoundsHistoryOutput struct {
	Runs  []RunSummary `json:"runs" jsonschema:"Recorded runs, newest first"`
	Count int          `json:"count" jsonschema:"Number of runs returned"`
}

// HoundsStrategiesInput defines the input schema for hounds_strategies.
type HoundsStrategiesInput struct{}

// StrategyInfo describes a registered strategy.
type StrategyInfo struct {
	Name        string `json:"name" jsonschema:"Name accepted by the strategies arguments"`
	Title       string `json:"title" jsonschema:"Human-readable title"`
	Description string `json:"description" jsonschema:"How the strategy picks a path"`
	Default     bool   `json:"default" jsonschema:"Whether the strategy runs when none are named"`
}

// HoundsStrategiesOutput defines the output schema for hounds_strategies.
type HoundsStrategiesOutput struct {
	Strategies []StrategyInfo `json:"strategies" jsonschema:"Registered strategies"`
}
