// Package backup exports and imports recorded simulation runs.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nvandessel/hounds/internal/store"
)

// File is the payload of a backup: every run in a history store.
type File struct {
	CreatedAt time.Time   `json:"created_at"`
	Runs      []store.Run `json:"runs"`
}

// DefaultBackupDir returns the backup directory inside a history directory.
func DefaultBackupDir(historyDir string) string {
	return filepath.Join(historyDir, "backups")
}

// Export writes every run in runStore to outputPath.
func Export(ctx context.Context, runStore store.RunStore, outputPath string) (*File, error) {
	runs, err := runStore.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	b := &File{
		CreatedAt: time.Now().UTC(),
		Runs:      runs,
	}
	if b.Runs == nil {
		b.Runs = []store.Run{}
	}
	if err := write(outputPath, b); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	return b, nil
}

// ImportMode controls how an import treats runs already in the store.
type ImportMode string

const (
	// ImportMerge skips runs whose ID is already stored.
	ImportMerge ImportMode = "merge"
	// ImportReplace clears the store first.
	ImportReplace ImportMode = "replace"
)

// ImportResult counts what an import did.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Removed  int `json:"removed"`
}

// Import loads the runs in inputPath into runStore. The file is fully read
// and verified before the store is touched.
func Import(ctx context.Context, runStore store.RunStore, inputPath string, mode ImportMode) (*ImportResult, error) {
	if mode != ImportMerge && mode != ImportReplace {
		return nil, fmt.Errorf("unknown import mode: %q", mode)
	}

	b, err := read(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}

	result := &ImportResult{}
	if mode == ImportReplace {
		n, err := runStore.DeleteAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to clear history: %w", err)
		}
		result.Removed = n
	}

	// Oldest first so the store's own ordering matches the original.
	runs := b.Runs
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})

	for _, run := range runs {
		if run.ID == "" {
			return nil, fmt.Errorf("backup contains a run without an ID")
		}
		if mode == ImportMerge {
			existing, err := runStore.GetRun(ctx, run.ID)
			if err != nil && !errors.Is(err, store.ErrRunNotFound) {
				return nil, fmt.Errorf("failed to check run %s: %w", run.ID, err)
			}
			if existing != nil && existing.ID == run.ID {
				result.Skipped++
				continue
			}
		}
		if _, err := runStore.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to import run %s: %w", run.ID, err)
		}
		result.Imported++
	}
	return result, nil
}

// GenerateBackupPath creates a timestamped backup filename in the given directory.
func GenerateBackupPath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("hounds-backup-%s.json.gz", ts))
}

// RotateBackups keeps only the most recent keepN backups in dir.
func RotateBackups(dir string, keepN int) error {
	if keepN <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "hounds-backup-") && strings.HasSuffix(name, ".json.gz") {
			backups = append(backups, name)
		}
	}

	// Newest first; the timestamp in the name sorts lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))

	if len(backups) <= keepN {
		return nil
	}
	for _, name := range backups[keepN:] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", name, err)
		}
	}
	return nil
}
