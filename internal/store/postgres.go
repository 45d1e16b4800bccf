package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres persists solve records in a single JSONB-backed table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates the schema if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS solves (
			id          uuid PRIMARY KEY,
			created_at  timestamptz NOT NULL,
			status      text NOT NULL,
			request     jsonb,
			solution    jsonb,
			cost        bigint NOT NULL DEFAULT 0,
			duration_ms bigint NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS solves_created_at_idx ON solves (created_at DESC);
	`)
	return err
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) SaveSolve(ctx context.Context, rec SolveRecord) (SolveRecord, error) {
	rec.ID = uuid.New().String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO solves (id, created_at, status, request, solution, cost, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.CreatedAt, rec.Status, rec.Request, rec.Solution, rec.Cost, rec.DurationMS)
	if err != nil {
		return SolveRecord{}, err
	}
	return rec, nil
}

func (p *Postgres) GetSolve(ctx context.Context, id string) (SolveRecord, error) {
	var rec SolveRecord
	err := p.pool.QueryRow(ctx, `
		SELECT id, created_at, status, request, solution, cost, duration_ms
		FROM solves WHERE id = $1`, id).
		Scan(&rec.ID, &rec.CreatedAt, &rec.Status, &rec.Request, &rec.Solution, &rec.Cost, &rec.DurationMS)
	if errors.Is(err, pgx.ErrNoRows) {
		return SolveRecord{}, ErrNotFound
	}
	if err != nil {
		return SolveRecord{}, err
	}
	return rec, nil
}

func (p *Postgres) ListSolves(ctx context.Context, limit int) ([]SolveRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, created_at, status, request, solution, cost, duration_ms
		FROM solves ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SolveRecord
	for rows.Next() {
		var rec SolveRecord
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Status, &rec.Request, &rec.Solution, &rec.Cost, &rec.DurationMS); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
