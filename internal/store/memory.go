package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu    sync.RWMutex
	byID  map[string]SolveRecord
	order []string // newest first
}

func NewMemory() *Memory {
	return &Memory{byID: map[string]SolveRecord{}}
}

func (m *Memory) SaveSolve(_ context.Context, rec SolveRecord) (SolveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = uuid.New().String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.byID[rec.ID] = rec
	m.order = append([]string{rec.ID}, m.order...)
	return rec, nil
}

func (m *Memory) GetSolve(_ context.Context, id string) (SolveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return SolveRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListSolves(_ context.Context, limit int) ([]SolveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.order) {
		limit = len(m.order)
	}
	out := make([]SolveRecord, 0, limit)
	for _, id := range m.order[:limit] {
		out = append(out, m.byID[id])
	}
	return out, nil
}
