package api

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/azulrosales/routing-solver/internal/config"
	"github.com/azulrosales/routing-solver/internal/matrix"
	"github.com/azulrosales/routing-solver/internal/store"
)

type Server struct {
	Store      store.Store
	Matrix     matrix.Provider
	TimeBudget time.Duration
}

// NewServer wires the server dependencies from the config file and the
// environment. If DATABASE_URL is unset, uses the in-memory store. If
// DISTANCE_MATRIX_API_KEY is unset, requests must carry an inline matrix.
func NewServer(cfg config.Server) (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := sp.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		s = sp
	}

	var provider matrix.Provider
	if key := os.Getenv("DISTANCE_MATRIX_API_KEY"); key != "" {
		var cache matrix.Cache
		if url := os.Getenv("REDIS_URL"); url != "" {
			rc, err := matrix.NewRedisCache(url, time.Duration(cfg.Matrix.CacheTTLMinutes)*time.Minute)
			if err != nil {
				log.Printf("redis cache disabled: %v", err)
			} else {
				cache = rc
			}
		}
		provider = matrix.NewClient(matrix.ClientConfig{
			APIKey:  key,
			BaseURL: cfg.Matrix.BaseURL,
			RPS:     cfg.Matrix.RPS,
			Burst:   cfg.Matrix.Burst,
			Cache:   cache,
		})
	}

	return &Server{
		Store:      s,
		Matrix:     provider,
		TimeBudget: time.Duration(cfg.TimeBudgetMS) * time.Millisecond,
	}, nil
}
