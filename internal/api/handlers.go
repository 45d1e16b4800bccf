package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/azulrosales/routing-solver/internal/buildinfo"
	"github.com/azulrosales/routing-solver/internal/matrix"
	"github.com/azulrosales/routing-solver/internal/metrics"
	"github.com/azulrosales/routing-solver/internal/model"
	"github.com/azulrosales/routing-solver/internal/solver"
	"github.com/azulrosales/routing-solver/internal/store"
)

// SolveHandler handles POST /v1/solve.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	resp, err := s.solve(r.Context(), &req, nil)
	if err != nil {
		s.writeSolveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SolvesHandler handles GET /v1/solves.
func (s *Server) SolvesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, err := s.Store.ListSolves(r.Context(), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List solves failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// SolveByIDHandler handles GET /v1/solves/{id}.
func (s *Server) SolveByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/solves/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	rec, err := s.Store.GetSolve(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "no such solve: "+id, r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Get solve failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Info()
	info["status"] = "ok"
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// solve runs one request end to end: matrix resolution, instance build,
// search, persistence. onImprovement is optional and forwarded to the
// search. Errors carry enough type information for writeSolveError to
// map them onto status codes.
func (s *Server) solve(ctx context.Context, req *model.SolveRequest, onImprovement func(iteration, cost int)) (*model.SolveResponse, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		metrics.SolvesTotal.WithLabelValues("invalid").Inc()
		return nil, &requestError{err}
	}

	m := req.Matrix
	if m == nil {
		if s.Matrix == nil {
			return nil, errNoProvider
		}
		var err error
		m, err = s.Matrix.Matrix(ctx, req.Locations, matrix.DimensionTime)
		if err != nil {
			metrics.SolvesTotal.WithLabelValues("upstream_error").Inc()
			return nil, err
		}
	}

	in, err := solver.NewInstance(m, req.Params())
	if err != nil {
		metrics.SolvesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	budget := s.TimeBudget
	if req.TimeBudgetMS > 0 {
		budget = time.Duration(req.TimeBudgetMS) * time.Millisecond
	}
	res := solver.Solve(ctx, in, solver.Options{
		TimeBudget:    budget,
		OnImprovement: onImprovement,
	})

	metrics.SolvesTotal.WithLabelValues(string(res.Status)).Inc()
	metrics.SolveDuration.Observe(time.Since(start).Seconds())
	metrics.SearchIterations.Observe(float64(res.Stats.Iterations))

	rec := store.SolveRecord{
		Status:     string(res.Status),
		Cost:       res.Stats.BestCost,
		DurationMS: int(time.Since(start).Milliseconds()),
	}
	rec.Request, _ = json.Marshal(req)
	if res.Solution != nil {
		rec.Solution, _ = json.Marshal(res.Solution)
	}
	rec, err = s.Store.SaveSolve(ctx, rec)
	if err != nil {
		return nil, err
	}

	return &model.SolveResponse{
		ID:       rec.ID,
		Status:   res.Status,
		Solution: res.Solution,
		Stats:    res.Stats,
	}, nil
}

// requestError wraps a request-shape failure so it maps to 400.
type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

var errNoProvider = errors.New("no distance-matrix provider configured; supply an inline matrix")

func (s *Server) writeSolveError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	var valErr *solver.ValidationError
	var upErr *matrix.UpstreamError
	switch {
	case errors.As(err, &reqErr):
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
	case errors.As(err, &valErr):
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid instance", err.Error(), r.URL.Path)
	case errors.As(err, &upErr):
		writeProblem(w, http.StatusBadGateway, "Distance matrix unavailable", err.Error(), r.URL.Path)
	case errors.Is(err, errNoProvider):
		writeProblem(w, http.StatusServiceUnavailable, "No matrix provider", err.Error(), r.URL.Path)
	default:
		writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), r.URL.Path)
	}
}
