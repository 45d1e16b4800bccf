package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// SolveRecord is one persisted solve attempt: the request as received,
// the outcome, and the solution when one was found.
type SolveRecord struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"createdAt"`
	Status     string          `json:"status"`
	Request    json.RawMessage `json:"request,omitempty"`
	Solution   json.RawMessage `json:"solution,omitempty"`
	Cost       int             `json:"cost,omitempty"`
	DurationMS int             `json:"durationMs"`
}

// Store is the persistence interface used by the API server. Records are
// immutable once saved.
type Store interface {
	SaveSolve(ctx context.Context, rec SolveRecord) (SolveRecord, error)
	GetSolve(ctx context.Context, id string) (SolveRecord, error)
	ListSolves(ctx context.Context, limit int) ([]SolveRecord, error)
}

var ErrNotFound = errors.New("not found")
