package model

import (
	"fmt"

	"github.com/azulrosales/routing-solver/internal/config"
	"github.com/azulrosales/routing-solver/internal/solver"
)

// SolveRequest is the API solve payload. Exactly one of Locations (the
// travel-time matrix is fetched) or Matrix (supplied inline) must be
// given. Optional knobs fall back to the config defaults.
type SolveRequest struct {
	NumVehicles    int      `json:"numVehicles"`
	Starts         []int    `json:"starts"`
	Ends           []int    `json:"ends"`
	Locations      []string `json:"locations,omitempty"`
	Matrix         [][]int  `json:"matrix,omitempty"`
	BreakTime      *int     `json:"breakTime,omitempty"`
	BreakStartTime *int     `json:"breakStartTime,omitempty"`
	ServiceTime    *int     `json:"serviceTime,omitempty"`
	MaxRouteTime   *int     `json:"maxRouteTime,omitempty"`
	SlackTime      *int     `json:"slackTime,omitempty"`
	TimeBudgetMS   int      `json:"timeBudgetMs,omitempty"`
}

// Validate checks the request shape; instance-level validation (matrix
// squareness, index ranges) is the solver's job.
func (r *SolveRequest) Validate() error {
	if r.NumVehicles <= 0 {
		return fmt.Errorf("numVehicles must be positive")
	}
	if len(r.Starts) == 0 {
		return fmt.Errorf("starts is required")
	}
	if len(r.Ends) == 0 {
		return fmt.Errorf("ends is required")
	}
	if len(r.Locations) == 0 && len(r.Matrix) == 0 {
		return fmt.Errorf("one of locations or matrix is required")
	}
	if len(r.Locations) > 0 && len(r.Matrix) > 0 {
		return fmt.Errorf("locations and matrix are mutually exclusive")
	}
	if (r.BreakTime == nil) != (r.BreakStartTime == nil) {
		return fmt.Errorf("breakTime and breakStartTime must be given together")
	}
	if r.TimeBudgetMS < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	return nil
}

// Params maps the request onto solver parameters, applying defaults.
func (r *SolveRequest) Params() solver.Params {
	p := solver.Params{
		NumVehicles:  r.NumVehicles,
		Starts:       r.Starts,
		Ends:         r.Ends,
		ServiceTime:  config.DefaultServiceTime,
		MaxRouteTime: config.DefaultMaxRouteTime,
		SlackTime:    config.DefaultSlackTime,
	}
	if r.ServiceTime != nil {
		p.ServiceTime = *r.ServiceTime
	}
	if r.MaxRouteTime != nil {
		p.MaxRouteTime = *r.MaxRouteTime
	}
	if r.SlackTime != nil {
		p.SlackTime = *r.SlackTime
	}
	if r.BreakTime != nil && r.BreakStartTime != nil {
		p.Break = &solver.BreakSpec{Duration: *r.BreakTime, EarliestStart: *r.BreakStartTime}
	}
	return p
}

// SolveResponse is the API solve result. Solution is omitted when the
// instance is infeasible.
type SolveResponse struct {
	ID       string           `json:"id,omitempty"`
	Status   solver.Status    `json:"status"`
	Solution *solver.Solution `json:"solution,omitempty"`
	Stats    solver.Stats     `json:"stats"`
}

// ProgressEvent is one websocket frame on the solve stream.
type ProgressEvent struct {
	Type      string         `json:"type"` // progress | result | error
	Iteration int            `json:"iteration,omitempty"`
	BestCost  int            `json:"bestCost,omitempty"`
	Result    *SolveResponse `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}
