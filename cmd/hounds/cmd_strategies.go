package main

import (
	"github.com/nvandessel/hounds/internal/report"
	"github.com/nvandessel/hounds/internal/strategy"
	"github.com/spf13/cobra"
)

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the strategies a party can decide with",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			return report.New(cmd.OutOrStdout(), jsonOut).Strategies(strategy.All())
		},
	}
}
