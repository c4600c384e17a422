package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nvandessel/hounds/internal/analytic"
	"github.com/nvandessel/hounds/internal/config"
	"github.com/nvandessel/hounds/internal/prompt"
	"github.com/nvandessel/hounds/internal/report"
	"github.com/nvandessel/hounds/internal/store"
	"github.com/nvandessel/hounds/internal/strategy"
	"github.com/nvandessel/hounds/internal/trial"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a hunting party at a fork and compare strategies",
		Long: `Run many independent trials of a hunting party choosing a path at a fork.

Each dog picks the correct path with its own probability and otherwise picks
one of the wrong paths uniformly at random. Every selected strategy decides
from the same dog choices, so the comparison is paired.

Without --probs the party is described interactively.

Examples:
  hounds simulate --probs 0.7,0.7                   # Waldo's two dogs
  hounds simulate --paths 3 --probs 0.6,0.8,0.7     # three dogs, three paths
  hounds simulate --probs 0.7,0.7 --seed 42 --record
  hounds simulate -i                                # ask for the party`,
		RunE: runSimulate,
	}

	cmd.Flags().Int("paths", 0, "Number of paths at the fork (default from config)")
	cmd.Flags().String("probs", "", "Comma-separated probability per dog, each in (0, 1]")
	cmd.Flags().Int("trials", 0, "Number of trials (default from config)")
	cmd.Flags().Uint64("seed", 0, "Random seed; 0 seeds from the clock")
	cmd.Flags().Int("workers", 0, "Goroutines to split trials across (default from config)")
	cmd.Flags().String("strategies", "", "Comma-separated strategies to compare (see 'hounds strategies')")
	cmd.Flags().Float64("tolerance", 0, "Accuracy difference treated as equal (default from config)")
	cmd.Flags().BoolP("interactive", "i", false, "Ask for the party even when --probs is given")
	cmd.Flags().Bool("record", false, "Save the run to history")

	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	interactive, _ := cmd.Flags().GetBool("interactive")
	probsFlag, _ := cmd.Flags().GetString("probs")
	record, _ := cmd.Flags().GetBool("record")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applySimulationFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	sim := cfg.Simulation
	logger := newLogger(cmd, cfg)

	var party trial.Config
	if interactive || probsFlag == "" {
		party, err = promptParty(cmd, jsonOut)
		if err != nil {
			return err
		}
	} else {
		party, err = partyFromFlags(sim.Paths, probsFlag)
		if err != nil {
			return err
		}
	}

	strategies, err := strategy.ParseList(sim.Strategies)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	engine := trial.NewEngine(
		trial.WithSeed(sim.Seed),
		trial.WithWorkers(sim.Workers),
		trial.WithStrategies(strategies...),
		trial.WithLogger(logger),
	)
	stats, err := engine.Run(ctx, party, sim.Trials)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	rep := report.Report{Stats: stats, Tolerance: sim.Tolerance}
	if expected, err := expectedByName(party, strategies); err == nil {
		rep.Expected = expected
	} else {
		logger.Debug("skipping exact values", slog.String("reason", err.Error()))
	}
	if u, err := analytic.UnanimousAccuracy(party); err == nil {
		rep.UnanimousExpected = u
	}

	if record || cfg.History.Enabled {
		runID, err := recordRun(ctx, cmd, cfg.History.Scope, stats)
		if err != nil {
			return err
		}
		rep.RunID = runID
		logger.Debug("run recorded", slog.String("id", runID))
	}

	return report.New(cmd.OutOrStdout(), jsonOut).Results(rep)
}

// applySimulationFlags copies explicitly set flags over the loaded config.
func applySimulationFlags(cmd *cobra.Command, cfg *config.HoundsConfig) {
	f := cmd.Flags()
	if f.Changed("paths") {
		cfg.Simulation.Paths, _ = f.GetInt("paths")
	}
	if f.Changed("trials") {
		cfg.Simulation.Trials, _ = f.GetInt("trials")
	}
	if f.Changed("seed") {
		cfg.Simulation.Seed, _ = f.GetUint64("seed")
	}
	if f.Changed("workers") {
		cfg.Simulation.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("tolerance") {
		cfg.Simulation.Tolerance, _ = f.GetFloat64("tolerance")
	}
	if f.Changed("strategies") {
		s, _ := f.GetString("strategies")
		cfg.Simulation.Strategies = config.SplitList(s)
	}
}

// partyFromFlags parses --probs for a fork with the given number of paths.
func partyFromFlags(paths int, probs string) (trial.Config, error) {
	n := strings.Count(probs, ",") + 1
	values, err := prompt.ParseProbabilities(probs, n)
	if err != nil {
		return trial.Config{}, fmt.Errorf("invalid --probs: %w", err)
	}
	party := trial.NewConfig(paths, values...)
	if err := party.Validate(); err != nil {
		return trial.Config{}, err
	}
	return party, nil
}

// promptParty asks for the party. Questions go to stderr when stdout
// carries JSON.
func promptParty(cmd *cobra.Command, jsonOut bool) (trial.Config, error) {
	out := cmd.OutOrStdout()
	if jsonOut {
		out = cmd.ErrOrStderr()
	}
	fmt.Fprintln(out, prompt.Welcome)

	var p prompt.Prompter
	if f, ok := cmd.InOrStdin().(*os.File); ok {
		p = prompt.New(f, out)
	} else {
		p = prompt.NewLinePrompter(cmd.InOrStdin(), out)
	}

	party, err := prompt.Collect(p)
	if errors.Is(err, io.EOF) {
		return trial.Config{}, fmt.Errorf("input ended before the party was described")
	}
	return party, err
}

// expectedByName computes the exact success probability of each strategy.
func expectedByName(party trial.Config, strategies []strategy.Strategy) (map[string]float64, error) {
	probs, err := analytic.ExpectedAll(party, strategies)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(strategies))
	for i, s := range strategies {
		out[s.Name()] = probs[i]
	}
	return out, nil
}

// recordRun saves stats to the run history for scope.
func recordRun(ctx context.Context, cmd *cobra.Command, scope string, stats *trial.Statistics) (string, error) {
	runStore, err := openHistory(cmd, scope)
	if err != nil {
		return "", err
	}
	defer runStore.Close()

	id, err := runStore.SaveRun(ctx, store.RunFromStatistics(stats))
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}
