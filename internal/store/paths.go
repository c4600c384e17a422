package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/hounds/internal/constants"
)

// GlobalHoundsPath returns the path to the global .hounds directory.
// On Unix: ~/.hounds
// On Windows: %USERPROFILE%\.hounds
func GlobalHoundsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DirName), nil
}

// LocalHoundsPath returns the path to the local .hounds directory
// for the given project root.
func LocalHoundsPath(projectRoot string) string {
	return filepath.Join(projectRoot, constants.DirName)
}

// ScopeDir returns the .hounds directory for a scope. The local scope is
// resolved against projectRoot.
func ScopeDir(scope constants.Scope, projectRoot string) (string, error) {
	switch scope {
	case constants.ScopeLocal:
		return LocalHoundsPath(projectRoot), nil
	case constants.ScopeGlobal:
		return GlobalHoundsPath()
	default:
		return "", fmt.Errorf("invalid scope: %q (must be local or global)", scope)
	}
}

// EnsureGlobalHoundsDir creates the global .hounds directory if it doesn't exist.
func EnsureGlobalHoundsDir() error {
	globalPath, err := GlobalHoundsPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(globalPath, 0755); err != nil {
		return fmt.Errorf("failed to create global .hounds directory: %w", err)
	}

	return nil
}
