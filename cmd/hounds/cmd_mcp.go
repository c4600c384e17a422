package main

import (
	"fmt"
	"log/slog"

	"github.com/nvandessel/hounds/internal/mcp"
	"github.com/nvandessel/hounds/internal/store"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve simulations to AI agents over MCP (stdio)",
		Long: `Run a Model Context Protocol server on stdin/stdout.

Tools: hounds_simulate, hounds_expected, hounds_history, hounds_strategies.
Logs go to stderr; stdout carries only protocol messages.

With --history (or history.enabled in the config) recorded runs are stored
in the configured history scope and hounds_history can read them. Every tool
call is appended to audit.jsonl in the same directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger := newLogger(cmd, cfg)

			if enable, _ := cmd.Flags().GetBool("history"); enable {
				cfg.History.Enabled = true
			}

			dir, err := historyDir(cmd, cfg.History.Scope)
			if err != nil {
				return err
			}

			var runStore store.RunStore
			if cfg.History.Enabled {
				s, err := store.NewSQLiteRunStore(dir)
				if err != nil {
					return fmt.Errorf("failed to open run history: %w", err)
				}
				runStore = s
				logger.Debug("run history enabled", slog.String("path", s.Path()))
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "hounds",
				Version:  version,
				Store:    runStore,
				Defaults: cfg,
				AuditDir: dir,
				Logger:   logger,
			})
			if err != nil {
				if runStore != nil {
					runStore.Close()
				}
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			logger.Info("mcp server starting", slog.String("version", version))
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().Bool("history", false, "Enable run recording and hounds_history")

	return cmd
}
