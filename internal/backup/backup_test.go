package backup

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/hounds/internal/store"
	"github.com/nvandessel/hounds/internal/trial"
)

func createTestStore(t *testing.T) *store.SQLiteRunStore {
	t.Helper()
	s, err := store.NewSQLiteRunStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addTestRuns(t *testing.T, s store.RunStore, n int) []string {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id, err := s.SaveRun(ctx, store.Run{
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
			Config:           trial.NewConfig(2, 0.7, 0.7),
			Trials:           1000,
			Seed:             uint64(i + 1),
			Workers:          2,
			Unanimous:        580,
			UnanimousCorrect: 490,
			Results: []trial.StrategyResult{
				{Name: "consensus", Successes: 700 + i, Trials: 1000},
				{Name: "single", Successes: 690, Trials: 1000},
			},
		})
		if err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		ids[i] = id
	}
	return ids
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := createTestStore(t)
	ids := addTestRuns(t, src, 3)

	path := filepath.Join(t.TempDir(), "history.json.gz")
	b, err := Export(ctx, src, path)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(b.Runs) != 3 {
		t.Fatalf("Export() wrote %d runs, want 3", len(b.Runs))
	}

	dst := createTestStore(t)
	result, err := Import(ctx, dst, path, ImportMerge)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 3 || result.Skipped != 0 {
		t.Errorf("Import() = %+v, want 3 imported", result)
	}

	for _, id := range ids {
		run, err := dst.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("GetRun(%s) error = %v", id, err)
		}
		if run.Trials != 1000 || len(run.Results) != 2 {
			t.Errorf("run %s = %+v, want 1000 trials and 2 results", id, run)
		}
	}

	runs, err := dst.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if runs[0].ID != ids[2] {
		t.Errorf("newest run = %s, want %s", runs[0].ID, ids[2])
	}
}

func TestImport_MergeSkipsExisting(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	addTestRuns(t, s, 2)

	path := filepath.Join(t.TempDir(), "history.json.gz")
	if _, err := Export(ctx, s, path); err != nil {
		t.Fatal(err)
	}

	result, err := Import(ctx, s, path, ImportMerge)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 0 || result.Skipped != 2 {
		t.Errorf("Import() = %+v, want 2 skipped", result)
	}
}

func TestImport_Replace(t *testing.T) {
	ctx := context.Background()
	src := store.NewInMemoryRunStore()
	addTestRuns(t, src, 2)

	path := filepath.Join(t.TempDir(), "history.json.gz")
	if _, err := Export(ctx, src, path); err != nil {
		t.Fatal(err)
	}

	dst := store.NewInMemoryRunStore()
	addTestRuns(t, dst, 3)

	result, err := Import(ctx, dst, path, ImportReplace)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Removed != 3 || result.Imported != 2 {
		t.Errorf("Import() = %+v, want 3 removed and 2 imported", result)
	}
	runs, _ := dst.ListRuns(ctx, 0)
	if len(runs) != 2 {
		t.Errorf("store has %d runs, want 2", len(runs))
	}
}

func TestExport_Empty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "empty.json.gz")

	b, err := Export(ctx, store.NewInMemoryRunStore(), path)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(b.Runs) != 0 {
		t.Errorf("Export() wrote %d runs, want 0", len(b.Runs))
	}

	result, err := Import(ctx, store.NewInMemoryRunStore(), path, ImportMerge)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 0 {
		t.Errorf("Imported = %d, want 0", result.Imported)
	}
}

func TestImport_Errors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.json.gz")
	src := store.NewInMemoryRunStore()
	addTestRuns(t, src, 1)
	if _, err := Export(ctx, src, valid); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(valid)
	if err != nil {
		t.Fatal(err)
	}
	corrupt := filepath.Join(dir, "corrupt.json.gz")
	tampered := bytes.Clone(data)
	tampered[len(tampered)-1] ^= 0xff
	if err := os.WriteFile(corrupt, tampered, 0600); err != nil {
		t.Fatal(err)
	}

	wrongVersion := filepath.Join(dir, "v9.json.gz")
	if err := os.WriteFile(wrongVersion, []byte(`{"version":9}`+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	notBackup := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(notBackup, []byte("hello\n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		mode    ImportMode
		wantErr string
	}{
		{"missing file", filepath.Join(dir, "nope.json.gz"), ImportMerge, "opening file"},
		{"checksum mismatch", corrupt, ImportMerge, "checksum mismatch"},
		{"unsupported version", wrongVersion, ImportMerge, "unsupported backup version"},
		{"not a backup", notBackup, ImportMerge, "parsing header"},
		{"unknown mode", valid, ImportMode("append"), "unknown import mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := store.NewInMemoryRunStore()
			_, err := Import(ctx, dst, tt.path, tt.mode)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Import() error = %v, want containing %q", err, tt.wantErr)
			}
			runs, _ := dst.ListRuns(ctx, 0)
			if len(runs) != 0 {
				t.Errorf("failed import left %d runs in the store", len(runs))
			}
		})
	}
}

func TestGenerateBackupPath(t *testing.T) {
	path := GenerateBackupPath("/tmp/backups")
	if filepath.Dir(path) != "/tmp/backups" {
		t.Errorf("dir = %s, want /tmp/backups", filepath.Dir(path))
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "hounds-backup-") || !strings.HasSuffix(base, ".json.gz") {
		t.Errorf("unexpected backup name %s", base)
	}
}

func TestRotateBackups(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"hounds-backup-20260101-000000.json.gz",
		"hounds-backup-20260102-000000.json.gz",
		"hounds-backup-20260103-000000.json.gz",
		"hounds-backup-20260104-000000.json.gz",
		"notes.txt",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	if err := RotateBackups(dir, 2); err != nil {
		t.Fatalf("RotateBackups() error = %v", err)
	}

	want := map[string]bool{
		"hounds-backup-20260103-000000.json.gz": true,
		"hounds-backup-20260104-000000.json.gz": true,
		"notes.txt":                             true,
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != len(want) {
		t.Fatalf("got %d files, want %d", len(entries), len(want))
	}
	for _, e := range entries {
		if !want[e.Name()] {
			t.Errorf("unexpected file kept: %s", e.Name())
		}
	}

	if err := RotateBackups(filepath.Join(dir, "missing"), 2); err != nil {
		t.Errorf("RotateBackups(missing dir) error = %v", err)
	}
}
