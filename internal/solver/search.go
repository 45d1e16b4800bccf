package solver

import (
	"context"
	"time"
)

// Status classifies the outcome of a solve. Infeasibility is a normal
// result for over-constrained inputs, not an error.
type Status string

const (
	StatusSolved     Status = "solved"
	StatusInfeasible Status = "infeasible"
)

// Options tunes the search engine. Zero values select the defaults.
type Options struct {
	// TimeBudget bounds the improvement phase wall clock. Default 2s.
	TimeBudget time.Duration
	// MaxIterations caps improvement iterations; 0 means unlimited.
	// Useful for deterministic runs independent of wall-clock timing.
	MaxIterations int
	// MaxStagnation stops the search after this many penalization
	// rounds without a new best solution. Default 50.
	MaxStagnation int
	// SpanCostWeight is the linear coefficient of the global span
	// penalty. Default 10.
	SpanCostWeight int
	// PenaltyWeight is the guided-local-search lambda; 0 derives it
	// from the construction cost.
	PenaltyWeight int
	// OnImprovement, if set, is called whenever the search commits a
	// new best solution.
	OnImprovement func(iteration, cost int)
}

// Stats summarizes one search run.
type Stats struct {
	Iterations       int           `json:"iterations"`
	Improvements     int           `json:"improvements"`
	Penalized        int           `json:"penalized"`
	ConstructionCost int           `json:"constructionCost"`
	BestCost         int           `json:"bestCost"`
	Elapsed          time.Duration `json:"elapsed"`
}

// Result is the outcome of a solve: a solution when feasible, or the
// infeasible status when no assignment satisfies all constraints.
type Result struct {
	Status   Status    `json:"status"`
	Solution *Solution `json:"solution,omitempty"`
	Stats    Stats     `json:"stats"`
}

const (
	defaultTimeBudget     = 2 * time.Second
	defaultMaxStagnation  = 50
	defaultSpanCostWeight = 10
)

// assignment is the mutable in-progress solution: customer nodes per
// vehicle, start/end nodes implicit.
type assignment struct {
	routes [][]int
}

func (a assignment) clone() assignment {
	out := assignment{routes: make([][]int, len(a.routes))}
	for i := range a.routes {
		out.routes[i] = append([]int(nil), a.routes[i]...)
	}
	return out
}

// fullSeq is vehicle v's complete node sequence including its start and
// end nodes.
func (a assignment) fullSeq(in *Instance, v int) []int {
	seq := make([]int, 0, len(a.routes[v])+2)
	seq = append(seq, in.Start(v))
	seq = append(seq, a.routes[v]...)
	seq = append(seq, in.End(v))
	return seq
}

// objective is the search cost: total transit cost over all arcs plus
// the weighted global span (max end cumul minus min start cumul; starts
// are forced to zero). Only called on feasible assignments.
func objective(in *Instance, a assignment, spanWeight int) int {
	total := 0
	maxEnd := 0
	for v := range a.routes {
		seq := a.fullSeq(in, v)
		for i := 1; i < len(seq); i++ {
			total += in.Cost(seq[i-1], seq[i])
		}
		sched, ok := propagate(in, v, seq, true)
		if ok && sched.span() > maxEnd {
			maxEnd = sched.span()
		}
	}
	return total + spanWeight*maxEnd
}

// Solve builds an initial assignment by the cheapest-arc rule and then
// improves it under a wall-clock budget with a guided local search. The
// context deadline is honored between iterations; an in-progress
// neighborhood scan is allowed to finish first.
func Solve(ctx context.Context, in *Instance, opts Options) Result {
	if opts.TimeBudget <= 0 {
		opts.TimeBudget = defaultTimeBudget
	}
	if opts.MaxStagnation <= 0 {
		opts.MaxStagnation = defaultMaxStagnation
	}
	if opts.SpanCostWeight <= 0 {
		opts.SpanCostWeight = defaultSpanCostWeight
	}
	start := time.Now()
	stats := Stats{}

	cur, ok := construct(in)
	if !ok {
		stats.Elapsed = time.Since(start)
		return Result{Status: StatusInfeasible, Stats: stats}
	}
	stats.ConstructionCost = objective(in, cur, opts.SpanCostWeight)

	best := cur.clone()
	bestCost := stats.ConstructionCost

	lambda := opts.PenaltyWeight
	if lambda <= 0 {
		arcs := in.NumVehicles()
		for v := range cur.routes {
			arcs += len(cur.routes[v])
		}
		lambda = bestCost / (10 * arcs)
		if lambda < 1 {
			lambda = 1
		}
	}

	deadline := start.Add(opts.TimeBudget)
	if d, hasDeadline := ctx.Deadline(); hasDeadline && d.Before(deadline) {
		deadline = d
	}

	pen := make(map[int]int)
	evals := make([]routeEval, in.NumVehicles())
	for v := range evals {
		evals[v] = evalRoute(in, v, cur.routes[v], pen, lambda)
	}

	stagnant := 0
	for {
		if opts.MaxIterations > 0 && stats.Iterations >= opts.MaxIterations {
			break
		}
		if stagnant >= opts.MaxStagnation {
			break
		}
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			break
		}
		stats.Iterations++
		if localSearchStep(in, &cur, evals, pen, lambda, opts.SpanCostWeight) {
			c := objective(in, cur, opts.SpanCostWeight)
			if c < bestCost {
				best = cur.clone()
				bestCost = c
				stats.Improvements++
				stagnant = 0
				if opts.OnImprovement != nil {
					opts.OnImprovement(stats.Iterations, bestCost)
				}
			}
			continue
		}
		// Local optimum on the augmented objective: penalize the
		// highest-utility arcs of the current assignment to push the
		// search elsewhere.
		penalizeArcs(in, cur, pen)
		stats.Penalized++
		stagnant++
		for v := range evals {
			evals[v] = evalRoute(in, v, cur.routes[v], pen, lambda)
		}
	}

	stats.BestCost = bestCost
	stats.Elapsed = time.Since(start)
	return Result{
		Status:   StatusSolved,
		Solution: extract(in, best, opts.SpanCostWeight),
		Stats:    stats,
	}
}

// construct runs the cheapest-arc greedy rule: repeatedly extend the
// route whose next arc has the lowest transit cost among all feasible
// extensions, until every non-terminal node is assigned. Ties break by
// cost, then vehicle index, then node id, so construction is
// deterministic. A balancing repair pass then fixes routes whose break
// window turned out unreachable.
func construct(in *Instance) (assignment, bool) {
	asg := assignment{routes: make([][]int, in.NumVehicles())}
	var unassigned []int
	for node := 0; node < in.NumNodes(); node++ {
		if !in.Terminal(node) {
			unassigned = append(unassigned, node)
		}
	}

	for len(unassigned) > 0 {
		bestV, bestK := -1, -1
		bestCost := int(^uint(0) >> 1)
		for v := 0; v < in.NumVehicles(); v++ {
			tail := in.Start(v)
			if n := len(asg.routes[v]); n > 0 {
				tail = asg.routes[v][n-1]
			}
			for k, node := range unassigned {
				c := in.Cost(tail, node)
				if c >= bestCost {
					continue
				}
				if !canExtend(in, asg, v, node) {
					continue
				}
				bestV, bestK, bestCost = v, k, c
			}
		}
		if bestV < 0 {
			return asg, false
		}
		asg.routes[bestV] = append(asg.routes[bestV], unassigned[bestK])
		unassigned = append(unassigned[:bestK], unassigned[bestK+1:]...)
	}
	return repair(in, asg)
}

// canExtend reports whether appending node to vehicle v's partial route
// keeps the schedule feasible, including a conservative bound on closing
// the route at its end node (with the break still to be placed, if any).
func canExtend(in *Instance, asg assignment, v, node int) bool {
	seq := make([]int, 0, len(asg.routes[v])+2)
	seq = append(seq, in.Start(v))
	seq = append(seq, asg.routes[v]...)
	seq = append(seq, node)
	sched, ok := propagate(in, v, seq, false)
	if !ok {
		return false
	}
	closing := sched.times[len(sched.times)-1] + in.Cost(node, in.End(v))
	if sched.brk == nil && in.Break(v) != nil {
		closing += in.Break(v).Duration
	}
	return closing <= in.MaxRouteTime()
}

// routeFeasible checks a closed route, break placement included.
func routeFeasible(in *Instance, asg assignment, v int) bool {
	_, ok := propagate(in, v, asg.fullSeq(in, v), true)
	return ok
}

// repair resolves closure infeasibilities left by the greedy phase —
// typically a route too short to reach its break window — by moving
// customers from the busiest routes into the deficient one.
func repair(in *Instance, asg assignment) (assignment, bool) {
	limit := in.NumNodes() * in.NumVehicles()
	if limit == 0 {
		limit = 1
	}
	for attempt := 0; attempt < limit; attempt++ {
		bad := -1
		for v := range asg.routes {
			if !routeFeasible(in, asg, v) {
				bad = v
				break
			}
		}
		if bad < 0 {
			return asg, true
		}
		if !stealInto(in, &asg, bad) {
			return asg, false
		}
	}
	return asg, false
}

// stealInto moves one customer from some donor route into route bad at
// the cheapest position such that the donor stays feasible and bad does
// not blow its route-time budget. Returns false when no such move exists.
func stealInto(in *Instance, asg *assignment, bad int) bool {
	bestDonor, bestIdx, bestPos := -1, -1, -1
	bestDelta := int(^uint(0) >> 1)
	for donor := range asg.routes {
		if donor == bad || len(asg.routes[donor]) == 0 {
			continue
		}
		for i, node := range asg.routes[donor] {
			rest := without(asg.routes[donor], i)
			if !routeFeasible(in, assignment{routes: replaceRoute(asg.routes, donor, rest)}, donor) {
				continue
			}
			for pos := 0; pos <= len(asg.routes[bad]); pos++ {
				grown := insertAt(asg.routes[bad], pos, node)
				if plainLength(in, *asg, bad, grown) > in.MaxRouteTime() {
					continue
				}
				delta := insertionDelta(in, *asg, bad, pos, node) + removalDelta(in, *asg, donor, i)
				if delta < bestDelta {
					bestDonor, bestIdx, bestPos, bestDelta = donor, i, pos, delta
				}
			}
		}
	}
	if bestDonor < 0 {
		return false
	}
	node := asg.routes[bestDonor][bestIdx]
	asg.routes[bestDonor] = without(asg.routes[bestDonor], bestIdx)
	asg.routes[bad] = insertAt(asg.routes[bad], bestPos, node)
	return true
}

// plainLength is the break-free transit length of route v with the given
// customer list, used as a budget bound during repair.
func plainLength(in *Instance, asg assignment, v int, customers []int) int {
	prev := in.Start(v)
	total := 0
	for _, node := range customers {
		total += in.Cost(prev, node)
		prev = node
	}
	total += in.Cost(prev, in.End(v))
	if in.Break(v) != nil {
		total += in.Break(v).Duration
	}
	return total
}

func insertionDelta(in *Instance, asg assignment, v, pos, node int) int {
	prev := in.Start(v)
	if pos > 0 {
		prev = asg.routes[v][pos-1]
	}
	next := in.End(v)
	if pos < len(asg.routes[v]) {
		next = asg.routes[v][pos]
	}
	return in.Cost(prev, node) + in.Cost(node, next) - in.Cost(prev, next)
}

func removalDelta(in *Instance, asg assignment, v, i int) int {
	prev := in.Start(v)
	if i > 0 {
		prev = asg.routes[v][i-1]
	}
	next := in.End(v)
	if i < len(asg.routes[v])-1 {
		next = asg.routes[v][i+1]
	}
	node := asg.routes[v][i]
	return in.Cost(prev, next) - in.Cost(prev, node) - in.Cost(node, next)
}

func without(route []int, i int) []int {
	out := make([]int, 0, len(route)-1)
	out = append(out, route[:i]...)
	return append(out, route[i+1:]...)
}

func insertAt(route []int, pos, node int) []int {
	out := make([]int, 0, len(route)+1)
	out = append(out, route[:pos]...)
	out = append(out, node)
	return append(out, route[pos:]...)
}

func replaceRoute(routes [][]int, v int, r []int) [][]int {
	out := make([][]int, len(routes))
	copy(out, routes)
	out[v] = r
	return out
}

// routeEval caches the augmented cost and end time of one route so a
// candidate move only re-evaluates the routes it touches.
type routeEval struct {
	aug      int
	end      int
	feasible bool
}

func evalRoute(in *Instance, v int, customers []int, pen map[int]int, lambda int) routeEval {
	seq := make([]int, 0, len(customers)+2)
	seq = append(seq, in.Start(v))
	seq = append(seq, customers...)
	seq = append(seq, in.End(v))
	sched, ok := propagate(in, v, seq, true)
	if !ok {
		return routeEval{feasible: false}
	}
	aug := 0
	n := in.NumNodes()
	for i := 1; i < len(seq); i++ {
		aug += in.Cost(seq[i-1], seq[i]) + lambda*pen[seq[i-1]*n+seq[i]]
	}
	return routeEval{aug: aug, end: sched.span(), feasible: true}
}

func totalAugmented(evals []routeEval, spanWeight int) int {
	total, maxEnd := 0, 0
	for _, e := range evals {
		total += e.aug
		if e.end > maxEnd {
			maxEnd = e.end
		}
	}
	return total + spanWeight*maxEnd
}

// localSearchStep scans the relocate, intra-route 2-opt and inter-route
// swap neighborhoods against the current assignment, evaluating every
// candidate on the penalty-augmented objective, and commits the single
// best improving move. Returns false at a local optimum. The scan order
// is fixed, so the step is deterministic.
func localSearchStep(in *Instance, cur *assignment, evals []routeEval, pen map[int]int, lambda, spanWeight int) bool {
	base := totalAugmented(evals, spanWeight)
	bestDelta := 0
	var apply func()

	try := func(v1 int, r1 []int, v2 int, r2 []int, commit func()) {
		e1 := evalRoute(in, v1, r1, pen, lambda)
		if !e1.feasible {
			return
		}
		next := make([]routeEval, len(evals))
		copy(next, evals)
		next[v1] = e1
		if v2 >= 0 && v2 != v1 {
			e2 := evalRoute(in, v2, r2, pen, lambda)
			if !e2.feasible {
				return
			}
			next[v2] = e2
		}
		delta := totalAugmented(next, spanWeight) - base
		if delta < bestDelta {
			bestDelta = delta
			apply = func() {
				commit()
				copy(evals, next)
			}
		}
	}

	// Relocate: move one customer to any position of any route.
	for v1 := range cur.routes {
		for i := range cur.routes[v1] {
			node := cur.routes[v1][i]
			removed := without(cur.routes[v1], i)
			for v2 := range cur.routes {
				target := cur.routes[v2]
				if v2 == v1 {
					target = removed
				}
				for pos := 0; pos <= len(target); pos++ {
					if v2 == v1 && pos == i {
						continue
					}
					grown := insertAt(target, pos, node)
					v1, v2, i := v1, v2, i
					if v2 == v1 {
						try(v1, grown, -1, nil, func() {
							cur.routes[v1] = grown
						})
					} else {
						try(v1, removed, v2, grown, func() {
							cur.routes[v1] = without(cur.routes[v1], i)
							cur.routes[v2] = grown
						})
					}
				}
			}
		}
	}

	// 2-opt: reverse a segment within one route.
	for v := range cur.routes {
		route := cur.routes[v]
		for i := 0; i < len(route)-1; i++ {
			for j := i + 1; j < len(route); j++ {
				cand := append([]int(nil), route...)
				for a, b := i, j; a < b; a, b = a+1, b-1 {
					cand[a], cand[b] = cand[b], cand[a]
				}
				v := v
				try(v, cand, -1, nil, func() {
					cur.routes[v] = cand
				})
			}
		}
	}

	// Swap: exchange one customer between two routes.
	for v1 := 0; v1 < len(cur.routes); v1++ {
		for v2 := v1 + 1; v2 < len(cur.routes); v2++ {
			for i := range cur.routes[v1] {
				for j := range cur.routes[v2] {
					r1 := append([]int(nil), cur.routes[v1]...)
					r2 := append([]int(nil), cur.routes[v2]...)
					r1[i], r2[j] = r2[j], r1[i]
					v1, v2 := v1, v2
					try(v1, r1, v2, r2, func() {
						cur.routes[v1] = r1
						cur.routes[v2] = r2
					})
				}
			}
		}
	}

	if apply == nil {
		return false
	}
	apply()
	return true
}

// penalizeArcs bumps the penalty of the arcs of the current assignment
// with maximal utility cost/(1+penalty), the guided-local-search escape
// from a local optimum.
func penalizeArcs(in *Instance, cur assignment, pen map[int]int) {
	n := in.NumNodes()
	maxUtil := -1
	var worst []int
	for v := range cur.routes {
		seq := cur.fullSeq(in, v)
		for i := 1; i < len(seq); i++ {
			key := seq[i-1]*n + seq[i]
			util := in.Cost(seq[i-1], seq[i]) * 1000 / (1 + pen[key])
			if util > maxUtil {
				maxUtil = util
				worst = worst[:0]
			}
			if util == maxUtil {
				worst = append(worst, key)
			}
		}
	}
	for _, key := range worst {
		pen[key]++
	}
}
