package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/nvandessel/hounds/internal/config"
	"github.com/nvandessel/hounds/internal/constants"
	"github.com/nvandessel/hounds/internal/logging"
	"github.com/nvandessel/hounds/internal/store"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hounds",
		Short: "Hunting dog simulator - does a party of dogs pick the right path?",
		Long: `hounds runs Monte Carlo simulations of a hunting party at a fork in the road.

Each dog independently picks the correct path with its own probability.
The party then decides with a strategy: follow the consensus, trust one dog,
trust the best dog, and so on. hounds estimates how often each strategy is
right and compares it to the exact answer.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory (for local history)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: warn, info, debug, or trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newExpectedCmd(),
		newStrategiesCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

// loadConfig loads ~/.hounds/config.yaml and the environment and applies
// the --log-level flag. Callers validate after applying their own flags.
func loadConfig(cmd *cobra.Command) (*config.HoundsConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// newLogger returns the operational logger. It writes to stderr so stdout
// carries only reports.
func newLogger(cmd *cobra.Command, cfg *config.HoundsConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// historyDir resolves the .hounds directory holding run history for scope.
func historyDir(cmd *cobra.Command, scope string) (string, error) {
	root, _ := cmd.Flags().GetString("root")
	s := constants.Scope(scope)
	if !s.Valid() {
		return "", fmt.Errorf("invalid history scope: %s (valid: local, global)", scope)
	}
	return store.ScopeDir(s, root)
}

// openHistory opens the run store for scope.
func openHistory(cmd *cobra.Command, scope string) (*store.SQLiteRunStore, error) {
	dir, err := historyDir(cmd, scope)
	if err != nil {
		return nil, err
	}
	runStore, err := store.NewSQLiteRunStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return runStore, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
