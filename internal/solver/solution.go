package solver

// Stop is one visited node together with the cumulative time at which the
// vehicle arrives there.
type Stop struct {
	Node int `json:"node"`
	Time int `json:"time"`
}

// Route is one vehicle's committed visiting sequence, from its start node
// to its end node, with the realized break if one was configured.
type Route struct {
	Vehicle  int             `json:"vehicle"`
	Stops    []Stop          `json:"stops"`
	Break    *BreakPlacement `json:"break,omitempty"`
	Duration int             `json:"duration"`
}

// Solution is a committed assignment: one route per vehicle covering
// every non-terminal node exactly once. TotalTime is the sum of the
// per-vehicle route durations; Cost is the search objective (total
// transit cost plus the weighted global span penalty).
type Solution struct {
	Routes    []Route `json:"routes"`
	TotalTime int     `json:"totalTime"`
	Cost      int     `json:"cost"`
}

// extract walks a feasible assignment into the reporting structure. The
// assignment holds customer nodes only; start and end nodes are added
// from the instance. extract does not mutate the assignment.
func extract(in *Instance, asg assignment, spanWeight int) *Solution {
	sol := &Solution{Routes: make([]Route, in.NumVehicles())}
	for v := range asg.routes {
		seq := asg.fullSeq(in, v)
		sched, ok := propagate(in, v, seq, true)
		if !ok {
			// Callers only extract committed feasible assignments.
			panic("solver: extracting infeasible assignment")
		}
		stops := make([]Stop, len(seq))
		for i, node := range seq {
			stops[i] = Stop{Node: node, Time: sched.times[i]}
		}
		sol.Routes[v] = Route{
			Vehicle:  v,
			Stops:    stops,
			Break:    sched.brk,
			Duration: sched.span(),
		}
		sol.TotalTime += sched.span()
	}
	sol.Cost = objective(in, asg, spanWeight)
	return sol
}
