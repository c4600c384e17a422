package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/hounds/internal/trial"

	_ "modernc.org/sqlite" // SQLite driver
)

// timeLayout is fixed width so that created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRunStore implements RunStore using SQLite for persistence.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore opens (creating if needed) the run database at
// dir/hounds.db, where dir is a .hounds directory.
func NewSQLiteRunStore(dir string) (*SQLiteRunStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "hounds.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string {
	return s.dbPath
}

// SaveRun stores a run and its per-strategy results in one transaction.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	probs, err := json.Marshal(run.Config.Probabilities)
	if err != nil {
		return "", fmt.Errorf("failed to marshal probabilities: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, num_paths, num_agents, probabilities,
			trials, seed, workers, elapsed_ns, unanimous, unanimous_correct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.UTC().Format(timeLayout),
		run.Config.NumPaths,
		run.Config.NumAgents,
		string(probs),
		run.Trials,
		strconv.FormatUint(run.Seed, 10),
		run.Workers,
		int64(run.Elapsed),
		run.Unanimous,
		run.UnanimousCorrect,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for i, r := range run.Results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_results (run_id, position, strategy, successes, trials)
			VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, r.Name, r.Successes, r.Trials)
		if err != nil {
			return "", fmt.Errorf("failed to insert result for %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

// GetRun returns a run by ID or unique ID prefix.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, num_paths, num_agents, probabilities, trials,
			seed, workers, elapsed_ns, unanimous, unanimous_correct
		FROM runs WHERE id = ?`, fullID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}

	if err := s.loadResults(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// resolveID expands a prefix to a full run ID.
func (s *SQLiteRunStore) resolveID(ctx context.Context, id string) (string, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(id)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\'
		ORDER BY id = ? DESC LIMIT 2`, id, escaped+"%", id)
	if err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return "", fmt.Errorf("failed to scan run ID: %w", err)
		}
		if m == id {
			return m, nil
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("run ID prefix %q is ambiguous", id)
	}
}

// ListRuns returns runs newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, created_at, num_paths, num_agents, probabilities, trials,
			seed, workers, elapsed_ns, unanimous, unanimous_correct
		FROM runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, *run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	// Results are loaded after the cursor is closed; the pool has one connection.
	for i := range runs {
		if err := s.loadResults(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// DeleteAll removes every run. Results cascade.
func (s *SQLiteRunStore) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted runs: %w", err)
	}
	return int(n), nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *SQLiteRunStore) loadResults(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy, successes, trials FROM run_results
		WHERE run_id = ? ORDER BY position`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load results for run %s: %w", run.ID, err)
	}
	defer rows.Close()

	run.Results = nil
	for rows.Next() {
		var r trial.StrategyResult
		if err := rows.Scan(&r.Name, &r.Successes, &r.Trials); err != nil {
			return fmt.Errorf("failed to scan result: %w", err)
		}
		run.Results = append(run.Results, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load results for run %s: %w", run.ID, err)
	}
	describe(run.Results)
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run       Run
		createdAt string
		probs     string
		seed      string
		elapsed   int64
	)
	err := row.Scan(
		&run.ID,
		&createdAt,
		&run.Config.NumPaths,
		&run.Config.NumAgents,
		&probs,
		&run.Trials,
		&seed,
		&run.Workers,
		&elapsed,
		&run.Unanimous,
		&run.UnanimousCorrect,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("run %s: bad created_at %q: %w", run.ID, createdAt, err)
	}
	if err := json.Unmarshal([]byte(probs), &run.Config.Probabilities); err != nil {
		return nil, fmt.Errorf("run %s: bad probabilities: %w", run.ID, err)
	}
	if run.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("run %s: bad seed %q: %w", run.ID, seed, err)
	}
	run.Elapsed = time.Duration(elapsed)
	return &run, nil
}
