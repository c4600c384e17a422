package main

import (
	"fmt"

	"github.com/nvandessel/hounds/internal/analytic"
	"github.com/nvandessel/hounds/internal/report"
	"github.com/nvandessel/hounds/internal/strategy"
	"github.com/spf13/cobra"
)

func newExpectedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expected",
		Short: "Print exact success probabilities without simulating",
		Long: `Compute each strategy's exact chance of picking the correct path by
enumerating every combination of dog choices.

Examples:
  hounds expected --probs 0.7,0.7
  hounds expected --paths 3 --probs 0.6,0.8,0.7 --strategies consensus,best`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			probs, _ := cmd.Flags().GetString("probs")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applySimulationFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			party, err := partyFromFlags(cfg.Simulation.Paths, probs)
			if err != nil {
				return err
			}
			strategies, err := strategy.ParseList(cfg.Simulation.Strategies)
			if err != nil {
				return err
			}

			values, err := analytic.ExpectedAll(party, strategies)
			if err != nil {
				return fmt.Errorf("failed to compute exact values: %w", err)
			}
			unanimous, err := analytic.UnanimousAccuracy(party)
			if err != nil {
				return err
			}

			rep := report.ExpectedReport{Config: party, UnanimousAccuracy: unanimous}
			for i, s := range strategies {
				rep.Rows = append(rep.Rows, report.ExpectedRow{
					Name:        s.Name(),
					Title:       s.Title(),
					Probability: values[i],
				})
			}
			return report.New(cmd.OutOrStdout(), jsonOut).Expected(rep)
		},
	}

	cmd.Flags().Int("paths", 0, "Number of paths at the fork (default from config)")
	cmd.Flags().String("probs", "", "Comma-separated probability per dog, each in (0, 1]")
	cmd.Flags().String("strategies", "", "Comma-separated strategies (see 'hounds strategies')")
	cmd.MarkFlagRequired("probs")

	return cmd
}

