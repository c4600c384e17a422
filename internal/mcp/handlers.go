package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/hounds/internal/analytic"
	"github.com/nvandessel/hounds/internal/constants"
	"github.com/nvandessel/hounds/internal/ratelimit"
	"github.com/nvandessel/hounds/internal/store"
	"github.com/nvandessel/hounds/internal/strategy"
	"github.com/nvandessel/hounds/internal/trial"
)

// StrategiesURI is the resource describing every registered strategy.
const StrategiesURI = "hounds://strategies"

// errNoHistory is returned by history operations when the server has no store.
var errNoHistory = errors.New("run history is not available (start the server with history enabled)")

// registerTools registers all hounds MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolSimulate,
		Description: "Run a Monte Carlo simulation of a hunting party at a fork and compare decision strategies",
	}, s.handleHoundsSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolExpected,
		Description: "Compute the exact success probability of each strategy for a hunting party without simulating",
	}, s.handleHoundsExpected)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolHistory,
		Description: "List recorded simulation runs, or show one run by ID",
	}, s.handleHoundsHistory)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolStrategies,
		Description: "List the decision strategies that can be compared",
	}, s.handleHoundsStrategies)

	return nil
}

// registerResources registers MCP resources.
func (s *Server) registerResources() error {
	s.server.AddResource(&sdk.Resource{
		URI:         StrategiesURI,
		Name:        "hounds-strategies",
		Description: "How each hunting party strategy picks a path.",
		MIMEType:    "text/markdown",
	}, s.handleStrategiesResource)
	return nil
}

func (s *Server) handleStrategiesResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	var sb strings.Builder
	sb.WriteString("# Hunting Party Strategies\n\n")
	for _, st := range strategy.All() {
		fmt.Fprintf(&sb, "## %s (`%s`)\n\n%s\n\n", st.Title(), st.Name(), st.Description())
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      StrategiesURI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

// partyConfig builds and validates the party described by a tool call.
// Party size and path count are capped so one call's work stays bounded.
func (s *Server) partyConfig(paths int, probs []float64) (trial.Config, error) {
	if paths == 0 {
		paths = s.defaults.Paths
	}
	if paths > constants.MaxMCPPaths {
		return trial.Config{}, fmt.Errorf("paths must be at most %d, got %d", constants.MaxMCPPaths, paths)
	}
	if len(probs) > constants.MaxMCPAgents {
		return trial.Config{}, fmt.Errorf("dogs must be at most %d, got %d", constants.MaxMCPAgents, len(probs))
	}
	cfg := trial.NewConfig(paths, probs...)
	if err := cfg.Validate(); err != nil {
		return trial.Config{}, err
	}
	return cfg, nil
}

func (s *Server) strategies(names []string) ([]strategy.Strategy, error) {
	if len(names) == 0 {
		names = s.defaults.Strategies
	}
	return strategy.ParseList(names)
}

func (s *Server) handleHoundsSimulate(ctx context.Context, req *sdk.CallToolRequest, args HoundsSimulateInput) (_ *sdk.CallToolResult, _ HoundsSimulateOutput, retErr error) {
	start := time.Now()
	var runID string
	defer func() {
		s.auditTool(ratelimit.ToolSimulate, start, retErr, auditParams(map[string]any{
			"paths": args.Paths, "dogs": len(args.Probabilities), "trials": args.Trials,
			"seed": args.Seed, "workers": args.Workers, "strategies": strings.Join(args.Strategies, ","),
			"record": args.Record,
		}), runID)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolSimulate); err != nil {
		return nil, HoundsSimulateOutput{}, err
	}

	cfg, err := s.partyConfig(args.Paths, args.Probabilities)
	if err != nil {
		return nil, HoundsSimulateOutput{}, err
	}
	strategies, err := s.strategies(args.Strategies)
	if err != nil {
		return nil, HoundsSimulateOutput{}, err
	}

	trials := args.Trials
	if trials == 0 {
		trials = s.defaults.Trials
	}
	if trials > constants.MaxMCPTrials {
		return nil, HoundsSimulateOutput{}, fmt.Errorf("trials must be at most %d, got %d", constants.MaxMCPTrials, trials)
	}
	workers := args.Workers
	if workers == 0 {
		workers = s.defaults.Workers
	}
	if workers < 1 || workers > constants.MaxWorkers {
		return nil, HoundsSimulateOutput{}, fmt.Errorf("workers must be between 1 and %d, got %d", constants.MaxWorkers, workers)
	}
	seed := args.Seed
	if seed == 0 {
		seed = s.defaults.Seed
	}
	tolerance := args.Tolerance
	if tolerance == 0 {
		tolerance = s.defaults.Tolerance
	}
	if tolerance < 0 {
		return nil, HoundsSimulateOutput{}, fmt.Errorf("tolerance must not be negative, got %v", tolerance)
	}
	if args.Record && s.store == nil {
		return nil, HoundsSimulateOutput{}, errNoHistory
	}

	engine := s.newEngine(
		trial.WithSeed(seed),
		trial.WithWorkers(workers),
		trial.WithStrategies(strategies...),
		trial.WithLogger(s.logger),
	)
	stats, err := engine.Run(ctx, cfg, trials)
	if err != nil {
		return nil, HoundsSimulateOutput{}, fmt.Errorf("simulation failed: %w", err)
	}

	expected, err := analytic.ExpectedAll(cfg, strategies)
	if err != nil && !errors.Is(err, analytic.ErrTooManyOutcomes) {
		return nil, HoundsSimulateOutput{}, err
	}
	unanimousExpected, err := analytic.UnanimousAccuracy(cfg)
	if err != nil {
		return nil, HoundsSimulateOutput{}, err
	}

	if args.Record {
		runID, err = s.store.SaveRun(ctx, store.RunFromStatistics(stats))
		if err != nil {
			return nil, HoundsSimulateOutput{}, fmt.Errorf("failed to record run: %w", err)
		}
	}

	out := HoundsSimulateOutput{
		RunID:             runID,
		Paths:             cfg.NumPaths,
		Probabilities:     cfg.Probabilities,
		Trials:            stats.Trials,
		Seed:              stats.Seed,
		Workers:           stats.Workers,
		ElapsedMs:         stats.Elapsed.Milliseconds(),
		Results:           make([]StrategyRate, len(stats.Results)),
		UnanimousAccuracy: stats.UnanimousAccuracy(),
		UnanimousExpected: unanimousExpected,
	}
	for i, r := range stats.Results {
		out.Results[i] = observedRate(r)
		if expected != nil {
			out.Results[i].Expected = expected[i]
		}
	}

	parts := make([]string, len(out.Results))
	for i, r := range out.Results {
		parts[i] = fmt.Sprintf("%s %.3f", r.Name, r.Rate)
	}
	out.Message = fmt.Sprintf("Ran %d trials (seed %d): %s", stats.Trials, stats.Seed, strings.Join(parts, ", "))

	if len(stats.Results) >= 2 {
		v := trial.Compare(stats.Results[0], stats.Results[1], tolerance)
		out.Verdict = &v
		if v.Equal {
			out.Message += fmt.Sprintf(". With a tolerance of %g, %s is equal to %s.", tolerance, v.A, v.B)
		} else {
			out.Message += fmt.Sprintf(". %s is more accurate.", v.Better)
		}
	}
	if runID != "" {
		out.Message += fmt.Sprintf(" Recorded as %s.", runID)
	}

	return nil, out, nil
}

func (s *Server) handleHoundsExpected(ctx context.Context, req *sdk.CallToolRequest, args HoundsExpectedInput) (_ *sdk.CallToolResult, _ HoundsExpectedOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolExpected, start, retErr, auditParams(map[string]any{
			"paths": args.Paths, "dogs": len(args.Probabilities), "strategies": strings.Join(args.Strategies, ","),
		}), "")
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolExpected); err != nil {
		return nil, HoundsExpectedOutput{}, err
	}

	cfg, err := s.partyConfig(args.Paths, args.Probabilities)
	if err != nil {
		return nil, HoundsExpectedOutput{}, err
	}
	strategies, err := s.strategies(args.Strategies)
	if err != nil {
		return nil, HoundsExpectedOutput{}, err
	}

	probs, err := analytic.ExpectedAll(cfg, strategies)
	if err != nil {
		return nil, HoundsExpectedOutput{}, err
	}
	unanimous, err := analytic.UnanimousAccuracy(cfg)
	if err != nil {
		return nil, HoundsExpectedOutput{}, err
	}

	out := HoundsExpectedOutput{
		Paths:             cfg.NumPaths,
		Probabilities:     cfg.Probabilities,
		Results:           make([]StrategyRate, len(strategies)),
		UnanimousAccuracy: unanimous,
	}
	for i, st := range strategies {
		out.Results[i] = StrategyRate{
			Name:     st.Name(),
			Title:    st.Title(),
			Rate:     probs[i],
			Expected: probs[i],
		}
	}
	return nil, out, nil
}

func (s *Server) handleHoundsHistory(ctx context.Context, req *sdk.CallToolRequest, args HoundsHistoryInput) (_ *sdk.CallToolResult, _ HoundsHistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolHistory, start, retErr, auditParams(map[string]any{
			"id": args.ID, "limit": args.Limit,
		}), "")
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolHistory); err != nil {
		return nil, HoundsHistoryOutput{}, err
	}
	if s.store == nil {
		return nil, HoundsHistoryOutput{}, errNoHistory
	}

	var runs []store.Run
	if args.ID != "" {
		run, err := s.store.GetRun(ctx, args.ID)
		if err != nil {
			return nil, HoundsHistoryOutput{}, err
		}
		runs = []store.Run{*run}
	} else {
		limit := args.Limit
		if limit <= 0 || limit > constants.MaxHistoryList {
			limit = constants.MaxHistoryList
		}
		var err error
		runs, err = s.store.ListRuns(ctx, limit)
		if err != nil {
			return nil, HoundsHistoryOutput{}, fmt.Errorf("failed to list runs: %w", err)
		}
	}

	out := HoundsHistoryOutput{Runs: make([]RunSummary, len(runs)), Count: len(runs)}
	for i, run := range runs {
		sum := RunSummary{
			ID:            run.ID,
			CreatedAt:     run.CreatedAt.UTC().Format(time.RFC3339),
			Paths:         run.Config.NumPaths,
			Probabilities: run.Config.Probabilities,
			Trials:        run.Trials,
			Seed:          run.Seed,
			Results:       make([]StrategyRate, len(run.Results)),
		}
		for j, r := range run.Results {
			sum.Results[j] = observedRate(r)
		}
		out.Runs[i] = sum
	}
	return nil, out, nil
}

func (s *Server) handleHoundsStrategies(ctx context.Context, req *sdk.CallToolRequest, args HoundsStrategiesInput) (_ *sdk.CallToolResult, _ HoundsStrategiesOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolStrategies, start, retErr, nil, "")
	}()

	defaults := make(map[string]bool)
	for _, st := range strategy.Default() {
		defaults[st.Name()] = true
	}

	all := strategy.All()
	out := HoundsStrategiesOutput{Strategies: make([]StrategyInfo, len(all))}
	for i, st := range all {
		out.Strategies[i] = StrategyInfo{
			Name:        st.Name(),
			Title:       st.Title(),
			Description: st.Description(),
			Default:     defaults[st.Name()],
		}
	}
	return nil, out, nil
}

func observedRate(r trial.StrategyResult) StrategyRate {
	return StrategyRate{
		Name:      r.Name,
		Title:     r.Title,
		Successes: r.Successes,
		Trials:    r.Trials,
		Rate:      r.Rate(),
		StdErr:    r.StdErr(),
	}
}
