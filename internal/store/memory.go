package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRunStore implements RunStore for testing and development.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs []Run
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{}
}

// SaveRun adds a run to the store.
func (s *InMemoryRunStore) SaveRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	for _, r := range s.runs {
		if r.ID == run.ID {
			return "", fmt.Errorf("run already exists: %s", run.ID)
		}
	}
	run.Results = slices.Clone(run.Results)
	describe(run.Results)
	s.runs = append(s.runs, run)
	return run.ID, nil
}

// GetRun retrieves a run by ID or unique ID prefix.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	var match *Run
	if i := slices.IndexFunc(s.runs, func(r Run) bool { return r.ID == id }); i >= 0 {
		match = &s.runs[i]
	} else {
		for i := range s.runs {
			if !strings.HasPrefix(s.runs[i].ID, id) {
				continue
			}
			if match != nil {
				return nil, fmt.Errorf("run ID prefix %q is ambiguous", id)
			}
			match = &s.runs[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	out := *match
	out.Results = slices.Clone(match.Results)
	return &out, nil
}

// ListRuns returns runs newest first.
func (s *InMemoryRunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.runs)
	slices.SortStableFunc(out, func(a, b Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteAll removes every run.
func (s *InMemoryRunStore) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.runs)
	s.runs = nil
	return n, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryRunStore) Close() error {
	return nil
}
