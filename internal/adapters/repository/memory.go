package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/pkg/metrics"
)

const backendMemory = "memory"

// MemoryStore keeps the history in process memory. Matches are held in their
// JSON form so no caller can alias stored state.
type MemoryStore struct {
	mu     sync.RWMutex
	ids    map[string]struct{}
	rows   [][]byte // oldest first
	closed bool
}

// NewMemoryStore creates an empty in-memory history.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

// Save appends m to the history.
func (s *MemoryStore) Save(ctx context.Context, m model.Match) error {
	const op = "repository.memory.save"
	start := time.Now()
	defer func() { metrics.RecordHistoryLatency(backendMemory, "save", time.Since(start)) }()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := checkSavable(m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	if _, dup := s.ids[m.ID]; dup {
		return fmt.Errorf("%s: %q: %w", op, m.ID, ErrAlreadyExists)
	}
	s.ids[m.ID] = struct{}{}
	s.rows = append(s.rows, raw)
	metrics.UpdateHistorySize(len(s.rows))
	return nil
}

// LoadAll returns every saved match, newest first.
func (s *MemoryStore) LoadAll(ctx context.Context) ([]model.Match, error) {
	const op = "repository.memory.load_all"
	start := time.Now()
	defer func() { metrics.RecordHistoryLatency(backendMemory, "load_all", time.Since(start)) }()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("%s: %w", op, ErrClosed)
	}

	out := make([]model.Match, 0, len(s.rows))
	for i := len(s.rows) - 1; i >= 0; i-- {
		var m model.Match
		if err := json.Unmarshal(s.rows[i], &m); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Count returns the number of saved matches.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Close marks the store closed. Later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
