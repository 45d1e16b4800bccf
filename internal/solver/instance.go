package solver

import "fmt"

// Sentinel values a distance-matrix fetch may leave behind. Neither is a
// real travel time and both must be rejected before solving.
const (
	SentinelNoRoute       = -1
	SentinelUpstreamError = -1000
)

// ValidationError reports a structurally invalid problem instance.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid instance: " + e.Reason }

func invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// BreakSpec is a mandatory rest interval for one vehicle. The break must
// start within [EarliestStart, EarliestStart+slack] and last exactly
// Duration minutes.
type BreakSpec struct {
	Duration      int
	EarliestStart int
}

// Params carries everything besides the travel-time matrix needed to
// build an Instance. Durations are in minutes.
type Params struct {
	NumVehicles  int
	Starts       []int
	Ends         []int
	ServiceTime  int // uniform per-node service time
	MaxRouteTime int // upper bound on every cumulative-time variable
	SlackTime    int // max waiting per arc; also widens the break window
	Break        *BreakSpec
}

// Instance is an immutable VRP instance: a complete directed graph of
// locations given by a travel-time matrix, per-vehicle start/end nodes,
// per-node service times, and the shared time-dimension parameters.
// Nothing mutates an Instance after construction; the search engine
// shares it freely.
type Instance struct {
	matrix  [][]int
	service []int
	starts  []int
	ends    []int
	breaks  []*BreakSpec // indexed by vehicle; nil entry = no break

	maxRouteTime int
	slack        int
}

// NewInstance validates the matrix and vehicle lists and builds the
// read-only problem instance.
func NewInstance(matrix [][]int, p Params) (*Instance, error) {
	n := len(matrix)
	if n == 0 {
		return nil, invalidf("empty travel-time matrix")
	}
	for i, row := range matrix {
		if len(row) != n {
			return nil, invalidf("matrix is not square: row %d has %d entries, want %d", i, len(row), n)
		}
		for j, v := range row {
			if v < 0 {
				return nil, invalidf("matrix[%d][%d] = %d: negative entries are not travel times", i, j, v)
			}
		}
	}
	if p.NumVehicles <= 0 {
		return nil, invalidf("num_vehicles must be positive, got %d", p.NumVehicles)
	}
	if len(p.Starts) != p.NumVehicles {
		return nil, invalidf("starts has %d entries, want %d", len(p.Starts), p.NumVehicles)
	}
	if len(p.Ends) != p.NumVehicles {
		return nil, invalidf("ends has %d entries, want %d", len(p.Ends), p.NumVehicles)
	}
	for v := 0; v < p.NumVehicles; v++ {
		if p.Starts[v] < 0 || p.Starts[v] >= n {
			return nil, invalidf("start of vehicle %d is %d, outside [0,%d)", v, p.Starts[v], n)
		}
		if p.Ends[v] < 0 || p.Ends[v] >= n {
			return nil, invalidf("end of vehicle %d is %d, outside [0,%d)", v, p.Ends[v], n)
		}
	}
	if p.ServiceTime < 0 {
		return nil, invalidf("service_time must be non-negative, got %d", p.ServiceTime)
	}
	if p.MaxRouteTime <= 0 {
		return nil, invalidf("max_route_time must be positive, got %d", p.MaxRouteTime)
	}
	if p.SlackTime < 0 {
		return nil, invalidf("slack_time must be non-negative, got %d", p.SlackTime)
	}
	if p.Break != nil {
		if p.Break.Duration <= 0 {
			return nil, invalidf("break duration must be positive, got %d", p.Break.Duration)
		}
		if p.Break.EarliestStart < 0 {
			return nil, invalidf("break start must be non-negative, got %d", p.Break.EarliestStart)
		}
	}

	m := make([][]int, n)
	for i := range matrix {
		m[i] = append([]int(nil), matrix[i]...)
	}
	service := make([]int, n)
	for i := range service {
		service[i] = p.ServiceTime
	}
	breaks := make([]*BreakSpec, p.NumVehicles)
	if p.Break != nil {
		for v := range breaks {
			b := *p.Break
			breaks[v] = &b
		}
	}
	return &Instance{
		matrix:       m,
		service:      service,
		starts:       append([]int(nil), p.Starts...),
		ends:         append([]int(nil), p.Ends...),
		breaks:       breaks,
		maxRouteTime: p.MaxRouteTime,
		slack:        p.SlackTime,
	}, nil
}

// Cost is the transit cost of the directed arc from→to: travel time plus
// the service time spent at the origin before departing. It is total over
// all ordered node pairs and has no side effects; the search engine calls
// it on every candidate move.
func (in *Instance) Cost(from, to int) int {
	return in.matrix[from][to] + in.service[from]
}

func (in *Instance) NumNodes() int    { return len(in.matrix) }
func (in *Instance) NumVehicles() int { return len(in.starts) }

func (in *Instance) Start(vehicle int) int       { return in.starts[vehicle] }
func (in *Instance) End(vehicle int) int         { return in.ends[vehicle] }
func (in *Instance) Service(node int) int        { return in.service[node] }
func (in *Instance) Break(vehicle int) *BreakSpec { return in.breaks[vehicle] }

func (in *Instance) MaxRouteTime() int { return in.maxRouteTime }
func (in *Instance) SlackTime() int    { return in.slack }

// Terminal reports whether node is some vehicle's start or end. Terminal
// nodes are visited only as route endpoints, never as customer stops.
func (in *Instance) Terminal(node int) bool {
	for v := range in.starts {
		if in.starts[v] == node || in.ends[v] == node {
			return true
		}
	}
	return false
}
