package trial

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nvandessel/hounds/internal/constants"
	"github.com/nvandessel/hounds/internal/logging"
	"github.com/nvandessel/hounds/internal/strategy"
	"golang.org/x/sync/errgroup"
)

// ctxCheckInterval is how many trials run between context checks.
const ctxCheckInterval = 4096

// Engine runs trials for a fixed set of strategies. It owns its random
// source; runs on the same Engine continue the same random stream, so two
// runs agree statistically but not bit for bit.
//
// Engine is safe for concurrent use; concurrent runs are serialized.
type Engine struct {
	mu         sync.Mutex
	rng        *rand.Rand
	seed       uint64
	workers    int
	strategies []strategy.Strategy
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSeed seeds the engine's random source. A zero seed seeds from the
// clock; the seed actually used is reported in Statistics.Seed.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.seed = seed
	}
}

// WithRand injects a random source directly. It takes precedence over
// WithSeed and leaves Statistics.Seed at zero.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithWorkers splits trials across n goroutines. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithStrategies sets the strategies applied to every trial.
func WithStrategies(s ...strategy.Strategy) Option {
	return func(e *Engine) {
		e.strategies = append([]strategy.Strategy(nil), s...)
	}
}

// WithLogger sets the logger for run-level events.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates an engine. Without options it compares the default
// strategies on a single worker with a clock-seeded source.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		workers:    constants.DefaultWorkers,
		strategies: strategy.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		if e.seed == 0 {
			e.seed = uint64(time.Now().UnixNano())
		}
		e.rng = rand.New(rand.NewPCG(e.seed, e.seed^0x9e3779b97f4a7c15))
	} else {
		e.seed = 0
	}
	if e.workers < 1 {
		e.workers = 1
	}
	if e.workers > constants.MaxWorkers {
		e.workers = constants.MaxWorkers
	}
	if e.logger == nil {
		e.logger = logging.Discard()
	}
	return e
}

// Strategies returns the strategies the engine applies.
func (e *Engine) Strategies() []strategy.Strategy {
	return append([]strategy.Strategy(nil), e.strategies...)
}

// counts accumulates per-trial outcomes. Merging is a plain sum, so the
// order in which worker counts are added does not matter.
type counts struct {
	successes        []int
	unanimous        int
	unanimousCorrect int
}

func newCounts(n int) counts {
	return counts{successes: make([]int, n)}
}

func (c *counts) add(o counts) {
	for i, s := range o.successes {
		c.successes[i] += s
	}
	c.unanimous += o.unanimous
	c.unanimousCorrect += o.unanimousCorrect
}

// Run validates cfg and numTrials, then runs numTrials independent trials.
// Invalid input returns an error wrapping ErrInvalidConfiguration before any
// trial runs. A cancelled context stops the run and returns ctx.Err().
func (e *Engine) Run(ctx context.Context, cfg Config, numTrials int) (*Statistics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateTrials(numTrials); err != nil {
		return nil, err
	}
	if len(e.strategies) == 0 {
		return nil, invalid("strategies", "must name at least one strategy")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	workers := min(e.workers, numTrials)
	e.logger.Debug("simulation starting",
		"paths", cfg.NumPaths,
		"agents", cfg.NumAgents,
		"trials", numTrials,
		"workers", workers,
		"seed", e.seed)

	start := time.Now()
	var (
		total counts
		err   error
	)
	if workers == 1 {
		total, err = e.runTrials(ctx, e.rng, cfg, numTrials)
	} else {
		total, err = e.runParallel(ctx, cfg, numTrials, workers)
	}
	if err != nil {
		return nil, fmt.Errorf("simulation interrupted: %w", err)
	}
	elapsed := time.Since(start)

	stats := &Statistics{
		Config:           cfg,
		Trials:           numTrials,
		Seed:             e.seed,
		Workers:          workers,
		Elapsed:          elapsed,
		Unanimous:        total.unanimous,
		UnanimousCorrect: total.unanimousCorrect,
		Results:          make([]StrategyResult, len(e.strategies)),
	}
	for i, s := range e.strategies {
		stats.Results[i] = StrategyResult{
			Name:        s.Name(),
			Title:       s.Title(),
			Description: s.Description(),
			Successes:   total.successes[i],
			Trials:      numTrials,
		}
	}

	e.logger.Debug("simulation finished", "trials", numTrials, "elapsed", elapsed)
	return stats, nil
}

// runParallel splits the trials across workers. Each worker gets its own
// PCG stream seeded from the engine's source before any goroutine starts,
// so a seeded engine reproduces the same totals for the same worker count.
func (e *Engine) runParallel(ctx context.Context, cfg Config, numTrials, workers int) (counts, error) {
	shares := splitTrials(numTrials, workers)
	parts := make([]counts, workers)
	rngs := make([]*rand.Rand, workers)
	for w := range workers {
		rngs[w] = rand.New(rand.NewPCG(e.rng.Uint64(), e.rng.Uint64()))
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			start := time.Now()
			c, err := e.runTrials(gctx, rngs[w], cfg, shares[w])
			parts[w] = c
			e.logger.Log(gctx, logging.LevelTrace, "worker finished",
				"worker", w, "trials", shares[w], "elapsed", time.Since(start))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return counts{}, err
	}

	total := newCounts(len(e.strategies))
	for _, p := range parts {
		total.add(p)
	}
	return total, nil
}

// runTrials is the trial loop. The choice buffer is reused across trials.
func (e *Engine) runTrials(ctx context.Context, rng *rand.Rand, cfg Config, n int) (counts, error) {
	c := newCounts(len(e.strategies))
	choices := make([]int, cfg.NumAgents)
	ballot := strategy.Ballot{
		Choices:       choices,
		Probabilities: cfg.Probabilities,
		NumPaths:      cfg.NumPaths,
	}

	for i := 0; i < n; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return c, err
			}
		}

		for a, p := range cfg.Probabilities {
			choices[a] = drawChoice(rng, p, cfg.NumPaths)
		}
		if strategy.Unanimous(choices) {
			c.unanimous++
			if choices[0] == CorrectPath {
				c.unanimousCorrect++
			}
		}
		for s, strat := range e.strategies {
			if strat.Decide(rng, ballot) == CorrectPath {
				c.successes[s]++
			}
		}
	}
	return c, nil
}

// splitTrials divides n trials into parts shares that differ by at most one.
func splitTrials(n, parts int) []int {
	shares := make([]int, parts)
	for i := range shares {
		shares[i] = n / parts
		if i < n%parts {
			shares[i]++
		}
	}
	return shares
}
