package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nvandessel/hounds/internal/analytic"
	"github.com/nvandessel/hounds/internal/backup"
	"github.com/nvandessel/hounds/internal/config"
	"github.com/nvandessel/hounds/internal/constants"
	"github.com/nvandessel/hounds/internal/pathutil"
	"github.com/nvandessel/hounds/internal/report"
	"github.com/nvandessel/hounds/internal/store"
	"github.com/nvandessel/hounds/internal/strategy"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded simulation runs",
		Long: `List, show, or clear runs recorded with 'hounds simulate --record'
(or with history.enabled set in the config).

History lives in ~/.hounds/hounds.db by default, or in <root>/.hounds with
--scope local.

Examples:
  hounds history                 # Recent runs
  hounds history show 3f2a       # One run by ID prefix
  hounds history clear --yes     # Delete every recorded run
  hounds history export          # Back up runs to <history dir>/backups
  hounds history import FILE     # Merge runs from a backup`,
		RunE: runHistoryList,
	}

	cmd.PersistentFlags().String("scope", "", "History scope: local or global (default from config)")
	cmd.Flags().Int("limit", constants.MaxHistoryList, "Maximum runs to list (0 for all)")

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryShowCmd(),
		newHistoryClearCmd(),
		newHistoryExportCmd(),
		newHistoryImportCmd(),
	)

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE:  runHistoryList,
	}
	cmd.Flags().Int("limit", constants.MaxHistoryList, "Maximum runs to list (0 for all)")
	return cmd
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", limit)
	}

	runStore, _, err := openScopedHistory(cmd)
	if err != nil {
		return err
	}
	defer runStore.Close()

	runs, err := runStore.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	return report.New(cmd.OutOrStdout(), jsonOut).Runs(runs)
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded run by ID or unique ID prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			runStore, cfg, err := openScopedHistory(cmd)
			if err != nil {
				return err
			}
			defer runStore.Close()

			run, err := runStore.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}

			rep := report.Report{
				Stats:     run.Statistics(),
				Tolerance: cfg.Simulation.Tolerance,
			}
			if strategies, err := strategiesOf(run); err == nil {
				if expected, err := expectedByName(run.Config, strategies); err == nil {
					rep.Expected = expected
				}
			}
			if u, err := analytic.UnanimousAccuracy(run.Config); err == nil {
				rep.UnanimousExpected = u
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s recorded %s\n\n", run.ID, run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			return report.New(cmd.OutOrStdout(), false).Results(rep)
		},
	}
}

func newHistoryClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded run in the scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return fmt.Errorf("refusing to clear history without --yes")
			}

			runStore, _, err := openScopedHistory(cmd)
			if err != nil {
				return err
			}
			defer runStore.Close()

			n, err := runStore.DeleteAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status":  "cleared",
					"deleted": n,
					"path":    runStore.Path(),
				})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s) from %s\n", n, runStore.Path())
			return err
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm deleting every recorded run")
	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Write every recorded run to a compressed backup file",
		Long: `Export the run history to a backup file.

Without a path the backup is written to a timestamped file in the backups
directory next to the history database, and only the newest --keep backups
there are retained. An explicit path must lie in ~/.hounds/backups or
<root>/.hounds/backups.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			keep, _ := cmd.Flags().GetInt("keep")

			runStore, _, err := openScopedHistory(cmd)
			if err != nil {
				return err
			}
			defer runStore.Close()

			backupDir := backup.DefaultBackupDir(filepath.Dir(runStore.Path()))
			path := backup.GenerateBackupPath(backupDir)
			if len(args) == 1 {
				path = args[0]
				if err := validateBackupPath(cmd, path); err != nil {
					return err
				}
			}

			b, err := backup.Export(cmd.Context(), runStore, path)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				if err := backup.RotateBackups(backupDir, keep); err != nil {
					return err
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "exported",
					"runs":   len(b.Runs),
					"path":   path,
				})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d run(s) to %s\n", len(b.Runs), path)
			return err
		},
	}
	cmd.Flags().Int("keep", 10, "Backups to retain in the default directory (0 keeps all)")
	return cmd
}

func newHistoryImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Load runs from a backup file",
		Long: `Import runs from a file written by 'hounds history export'.

Runs already present are skipped. With --replace the history is cleared
first. The file must lie in ~/.hounds/backups or <root>/.hounds/backups.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			replace, _ := cmd.Flags().GetBool("replace")

			mode := backup.ImportMerge
			if replace {
				mode = backup.ImportReplace
			}
			if err := validateBackupPath(cmd, args[0]); err != nil {
				return err
			}

			runStore, _, err := openScopedHistory(cmd)
			if err != nil {
				return err
			}
			defer runStore.Close()

			result, err := backup.Import(cmd.Context(), runStore, args[0], mode)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status":   "imported",
					"mode":     mode,
					"imported": result.Imported,
					"skipped":  result.Skipped,
					"removed":  result.Removed,
				})
			}
			out := cmd.OutOrStdout()
			if replace {
				fmt.Fprintf(out, "Removed %d existing run(s)\n", result.Removed)
			}
			_, err = fmt.Fprintf(out, "Imported %d run(s), skipped %d already present\n", result.Imported, result.Skipped)
			return err
		},
	}
	cmd.Flags().Bool("replace", false, "Clear the history before importing")
	return cmd
}

// validateBackupPath rejects backup paths outside the backup directories.
func validateBackupPath(cmd *cobra.Command, path string) error {
	root, _ := cmd.Flags().GetString("root")
	allowed, err := pathutil.DefaultAllowedBackupDirs(root)
	if err != nil {
		return err
	}
	return pathutil.ValidatePath(path, allowed)
}

// openScopedHistory opens the run store selected by --scope, falling back
// to history.scope from the config.
func openScopedHistory(cmd *cobra.Command) (*store.SQLiteRunStore, *config.HoundsConfig, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	scope := cfg.History.Scope
	if s, _ := cmd.Flags().GetString("scope"); s != "" {
		scope = s
	}
	runStore, err := openHistory(cmd, scope)
	if err != nil {
		return nil, nil, err
	}
	return runStore, cfg, nil
}

// strategiesOf resolves the strategies a stored run compared.
func strategiesOf(run *store.Run) ([]strategy.Strategy, error) {
	names := make([]string, len(run.Results))
	for i, r := range run.Results {
		names[i] = r.Name
	}
	return strategy.ParseList(names)
}
