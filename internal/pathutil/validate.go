// Package pathutil confines user-supplied backup paths to the hounds
// backup directories.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/hounds/internal/constants"
)

// RedactPath shortens path to .../<parent>/<base> for error messages, so
// "/home/user/.hounds/hounds.db" reads ".../.hounds/hounds.db".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	base := filepath.Base(cleaned)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ValidatePath returns an error unless path, once made absolute and with
// symlinks in its existing ancestors resolved, lies inside one of
// allowedDirs. The file itself need not exist yet.
func ValidatePath(path string, allowedDirs []string) error {
	switch {
	case path == "":
		return fmt.Errorf("invalid backup path: path is empty")
	case len(allowedDirs) == 0:
		return fmt.Errorf("invalid backup path: no backup directories configured")
	case strings.ContainsRune(path, 0):
		return fmt.Errorf("invalid backup path: path contains null byte")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid backup path: %w", err)
	}
	dir, err := resolve(filepath.Dir(abs))
	if err != nil {
		return fmt.Errorf("invalid backup path: %w", err)
	}
	target := filepath.Join(dir, filepath.Base(abs))

	for _, allowed := range allowedDirs {
		allowedAbs, err := filepath.Abs(allowed)
		if err != nil {
			continue
		}
		root, err := resolve(allowedAbs)
		if err != nil {
			continue
		}
		if within(target, root) {
			return nil
		}
	}
	return fmt.Errorf("invalid backup path: %q is outside allowed directories", RedactPath(abs))
}

// resolve evaluates symlinks in the deepest existing ancestor of dir and
// re-appends the missing tail.
func resolve(dir string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved, nil
	}
	parent := filepath.Dir(dir)
	if parent == dir {
		return "", fmt.Errorf("cannot resolve %s", RedactPath(dir))
	}
	resolvedParent, err := resolve(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(dir)), nil
}

// within reports whether path is root or below it. "/tmp/b" is not
// within "/tmp/backups".
func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(os.PathSeparator))
}

// DefaultAllowedBackupDirs returns the directories where history backups
// may be written or read: ~/.hounds/backups and <projectRoot>/.hounds/backups.
func DefaultAllowedBackupDirs(projectRoot string) ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return []string{
		filepath.Join(homeDir, constants.DirName, "backups"),
		filepath.Join(projectRoot, constants.DirName, "backups"),
	}, nil
}
