// Package matrix fetches travel-time matrices for a list of locations
// from the distancematrix.ai API.
//
// Pairs the upstream could not resolve are reported with in-band
// sentinels (-1 for "no route", -1000 for an element-level error), the
// convention the solver's instance validation rejects before any search
// runs.
package matrix

import (
	"context"
	"fmt"
)

// Dimension selects which matrix the provider generates.
type Dimension string

const (
	// DimensionTime produces travel times in minutes.
	DimensionTime Dimension = "time"
	// DimensionDistance produces distances in kilometers.
	DimensionDistance Dimension = "distance"
)

// Sentinel entry values, matching the upstream element statuses.
const (
	NoRoute       = -1    // ZERO_RESULTS: no route between the pair
	ElementFailed = -1000 // any other element-level error
)

// Provider returns an N×N matrix for N locations. Implementations must
// honor ctx cancellation.
type Provider interface {
	Matrix(ctx context.Context, locations []string, dim Dimension) ([][]int, error)
}

// UpstreamError reports a failure of the distance-matrix service itself:
// a network fault, a non-OK HTTP status, or a malformed response. It is
// distinct from instance validation errors and is potentially retryable
// by the caller.
type UpstreamError struct {
	StatusCode int // non-zero when an HTTP response was received
	Detail     string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("distance matrix upstream: %v", e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("distance matrix upstream: status %d: %s", e.StatusCode, e.Detail)
	default:
		return "distance matrix upstream: " + e.Detail
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Static is a Provider backed by a fixed matrix, for tests and for
// callers that already hold one.
type Static struct {
	Times [][]int
}

func (s *Static) Matrix(_ context.Context, locations []string, _ Dimension) ([][]int, error) {
	if len(locations) != len(s.Times) {
		return nil, &UpstreamError{Detail: fmt.Sprintf("static matrix has %d rows for %d locations", len(s.Times), len(locations))}
	}
	return s.Times, nil
}
