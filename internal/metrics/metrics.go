package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// SolvesTotal counts solve attempts by outcome (solved, infeasible,
	// invalid, upstream_error).
	SolvesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solves_total", Help: "Solve attempts by outcome."},
		[]string{"status"},
	)
	// SolveDuration records end-to-end solve durations in seconds.
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "solve_duration_seconds", Help: "Solve duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10}},
	)
	// SearchIterations records improvement-phase iteration counts per solve.
	SearchIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "search_iterations", Help: "Improvement iterations per solve.", Buckets: []float64{10, 50, 100, 500, 1000, 5000, 20000}},
	)
	// MatrixRequests counts distance-matrix lookups by outcome
	// (ok, cache_hit, error).
	MatrixRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matrix_requests_total", Help: "Distance-matrix lookups by outcome."},
		[]string{"outcome"},
	)

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
)

// RegisterDefault registers all collectors on the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(SolvesTotal)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(SearchIterations)
		Registry.MustRegister(MatrixRequests)
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
