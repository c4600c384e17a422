package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nvandessel/hounds/internal/config"
	"github.com/spf13/cobra"
)

// configKeys lists the settable keys in display order.
var configKeys = []string{
	"simulation.trials",
	"simulation.paths",
	"simulation.seed",
	"simulation.workers",
	"simulation.tolerance",
	"simulation.strategies",
	"logging.level",
	"history.enabled",
	"history.scope",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage hounds configuration",
		Long: `View and modify hounds configuration settings.

Configuration is stored in ~/.hounds/config.yaml. Environment variables
(HOUNDS_TRIALS, HOUNDS_SEED, ...) override the file; flags override both.

Examples:
  hounds config list                               # Show all settings
  hounds config get simulation.trials              # Get a specific setting
  hounds config set simulation.trials 1000000      # Set a setting
  hounds config set simulation.strategies consensus,single,best`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}

			fmt.Fprintln(out, "Configuration (~/.hounds/config.yaml):")
			section := ""
			for _, key := range configKeys {
				if s := key[:strings.Index(key, ".")]; s != section {
					section = s
					fmt.Fprintln(out)
				}
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(out, "  %-22s %v\n", key+":", value)
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s (valid: %s)", key, strings.Join(configKeys, ", "))
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return err
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, value := args[0], args[1]

			path, err := config.Path()
			if err != nil {
				return err
			}
			// Start from the file alone so environment overrides are not persisted.
			cfg := config.Default()
			if _, statErr := os.Stat(path); statErr == nil {
				cfg, err = config.LoadFromFile(path)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return err
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.HoundsConfig, key string) (interface{}, bool) {
	switch key {
	case "simulation.trials":
		return cfg.Simulation.Trials, true
	case "simulation.paths":
		return cfg.Simulation.Paths, true
	case "simulation.seed":
		return cfg.Simulation.Seed, true
	case "simulation.workers":
		return cfg.Simulation.Workers, true
	case "simulation.tolerance":
		return cfg.Simulation.Tolerance, true
	case "simulation.strategies":
		if len(cfg.Simulation.Strategies) == 0 {
			return "(default)", true
		}
		return strings.Join(cfg.Simulation.Strategies, ","), true
	case "logging.level":
		return cfg.Logging.Level, true
	case "history.enabled":
		return cfg.History.Enabled, true
	case "history.scope":
		return cfg.History.Scope, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key. Range
// checks are left to HoundsConfig.Validate.
func setConfigValue(cfg *config.HoundsConfig, key, value string) error {
	switch key {
	case "simulation.trials":
		return setInt(&cfg.Simulation.Trials, key, value)
	case "simulation.paths":
		return setInt(&cfg.Simulation.Paths, key, value)
	case "simulation.seed":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %s (must be a non-negative integer)", key, value)
		}
		cfg.Simulation.Seed = n
	case "simulation.workers":
		return setInt(&cfg.Simulation.Workers, key, value)
	case "simulation.tolerance":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %s (must be a number)", key, value)
		}
		cfg.Simulation.Tolerance = f
	case "simulation.strategies":
		cfg.Simulation.Strategies = config.SplitList(value)
	case "logging.level":
		cfg.Logging.Level = value
	case "history.enabled":
		cfg.History.Enabled = value == "true" || value == "1"
	case "history.scope":
		cfg.History.Scope = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %s (must be an integer)", key, value)
	}
	*dst = n
	return nil
}
