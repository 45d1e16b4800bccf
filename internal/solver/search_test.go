package solver

import (
	"context"
	"reflect"
	"testing"
	"time"
)

// 17-location travel-time matrix used by the reference scenario.
var cityMatrix = [][]int{
	{0, 6, 9, 8, 7, 3, 6, 2, 3, 2, 6, 6, 4, 4, 5, 9, 7},
	{6, 0, 8, 3, 2, 6, 8, 4, 8, 8, 13, 7, 5, 8, 12, 10, 14},
	{9, 8, 0, 11, 10, 6, 3, 9, 5, 8, 4, 15, 14, 13, 9, 18, 9},
	{8, 3, 11, 0, 1, 7, 10, 6, 10, 10, 14, 6, 7, 9, 14, 6, 16},
	{7, 2, 10, 1, 0, 6, 9, 4, 8, 9, 13, 4, 6, 8, 12, 8, 14},
	{3, 6, 6, 7, 6, 0, 2, 3, 2, 2, 7, 9, 7, 7, 6, 12, 8},
	{6, 8, 3, 10, 9, 2, 0, 6, 2, 5, 4, 12, 10, 10, 6, 15, 5},
	{2, 4, 9, 6, 4, 3, 6, 0, 4, 4, 8, 5, 4, 3, 7, 8, 10},
	{3, 8, 5, 10, 8, 2, 2, 4, 0, 3, 4, 9, 8, 7, 3, 13, 6},
	{2, 8, 8, 10, 9, 2, 5, 4, 3, 0, 4, 6, 5, 4, 3, 9, 5},
	{6, 13, 4, 14, 13, 7, 4, 8, 4, 4, 0, 10, 9, 8, 4, 13, 4},
	{6, 7, 15, 6, 4, 9, 12, 5, 9, 6, 10, 0, 1, 3, 7, 3, 10},
	{4, 5, 14, 7, 6, 7, 10, 4, 8, 5, 9, 1, 0, 2, 6, 4, 8},
	{4, 8, 13, 9, 8, 7, 10, 3, 7, 4, 8, 3, 2, 0, 4, 5, 6},
	{5, 12, 9, 14, 12, 6, 6, 7, 3, 3, 4, 7, 6, 4, 0, 9, 2},
	{9, 10, 18, 6, 8, 12, 15, 8, 13, 9, 13, 3, 4, 5, 9, 0, 9},
	{7, 14, 9, 16, 14, 8, 5, 10, 6, 5, 4, 10, 8, 6, 2, 9, 0},
}

func cityInstance(t *testing.T, p Params) *Instance {
	t.Helper()
	in, err := NewInstance(cityMatrix, p)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	return in
}

// checkCoverage asserts that every non-terminal node appears in exactly
// one route exactly once, and that cumulative times are monotone and
// within the route-time budget.
func checkCoverage(t *testing.T, in *Instance, sol *Solution) {
	t.Helper()
	seen := map[int]int{}
	for _, r := range sol.Routes {
		if r.Stops[0].Node != in.Start(r.Vehicle) {
			t.Fatalf("vehicle %d starts at %d, want %d", r.Vehicle, r.Stops[0].Node, in.Start(r.Vehicle))
		}
		if last := r.Stops[len(r.Stops)-1]; last.Node != in.End(r.Vehicle) {
			t.Fatalf("vehicle %d ends at %d, want %d", r.Vehicle, last.Node, in.End(r.Vehicle))
		}
		for i, s := range r.Stops {
			if i > 0 && s.Time < r.Stops[i-1].Time {
				t.Fatalf("vehicle %d: cumulative time decreases at stop %d", r.Vehicle, i)
			}
			if s.Time > in.MaxRouteTime() {
				t.Fatalf("vehicle %d: time %d exceeds max route time", r.Vehicle, s.Time)
			}
			if i > 0 && i < len(r.Stops)-1 {
				seen[s.Node]++
			}
		}
	}
	for node := 0; node < in.NumNodes(); node++ {
		if in.Terminal(node) {
			continue
		}
		if seen[node] != 1 {
			t.Fatalf("node %d visited %d times, want exactly once", node, seen[node])
		}
	}
}

func TestTrivialRoundTrip(t *testing.T) {
	p := params(1, []int{0}, []int{0})
	p.ServiceTime = 0
	in, err := NewInstance([][]int{{0, 1}, {1, 0}}, p)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	res := Solve(context.Background(), in, Options{TimeBudget: 100 * time.Millisecond})
	if res.Status != StatusSolved {
		t.Fatalf("status = %s, want solved", res.Status)
	}
	if res.Solution.TotalTime != 2 {
		t.Fatalf("total time = %d, want 2", res.Solution.TotalTime)
	}
	wantStops := []Stop{{Node: 0, Time: 0}, {Node: 1, Time: 1}, {Node: 0, Time: 2}}
	if !reflect.DeepEqual(res.Solution.Routes[0].Stops, wantStops) {
		t.Fatalf("stops = %+v, want %+v", res.Solution.Routes[0].Stops, wantStops)
	}
}

func TestInfeasibleRouteTimeBudget(t *testing.T) {
	p := params(1, []int{0}, []int{0})
	p.ServiceTime = 0
	p.MaxRouteTime = 1 // round trip needs 2
	in, err := NewInstance([][]int{{0, 1}, {1, 0}}, p)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	res := Solve(context.Background(), in, Options{TimeBudget: 100 * time.Millisecond})
	if res.Status != StatusInfeasible {
		t.Fatalf("status = %s, want infeasible", res.Status)
	}
	if res.Solution != nil {
		t.Fatal("infeasible result must not carry a partial solution")
	}
}

func TestSolveCityWithoutBreaks(t *testing.T) {
	in := cityInstance(t, params(4, []int{2, 6, 8, 5}, []int{0, 0, 0, 0}))
	res := Solve(context.Background(), in, Options{TimeBudget: 500 * time.Millisecond})
	if res.Status != StatusSolved {
		t.Fatalf("status = %s, want solved", res.Status)
	}
	checkCoverage(t, in, res.Solution)
	sum := 0
	for _, r := range res.Solution.Routes {
		if r.Duration != r.Stops[len(r.Stops)-1].Time {
			t.Fatalf("vehicle %d: duration %d != final cumul %d", r.Vehicle, r.Duration, r.Stops[len(r.Stops)-1].Time)
		}
		sum += r.Duration
	}
	if sum != res.Solution.TotalTime {
		t.Fatalf("grand total %d != sum of route durations %d", res.Solution.TotalTime, sum)
	}
}

func TestSolveCityWithBreaks(t *testing.T) {
	p := params(4, []int{2, 6, 8, 5}, []int{0, 0, 0, 0})
	p.Break = &BreakSpec{Duration: 5, EarliestStart: 50}
	in := cityInstance(t, p)
	res := Solve(context.Background(), in, Options{TimeBudget: 500 * time.Millisecond})
	if res.Status != StatusSolved {
		t.Fatalf("status = %s, want solved", res.Status)
	}
	checkCoverage(t, in, res.Solution)
	sum := 0
	for _, r := range res.Solution.Routes {
		if r.Break == nil || !r.Break.Performed {
			t.Fatalf("vehicle %d: break not performed", r.Vehicle)
		}
		if r.Break.Start < 50 || r.Break.Start > 60 {
			t.Fatalf("vehicle %d: break start %d outside [50,60]", r.Vehicle, r.Break.Start)
		}
		if r.Break.Duration != 5 {
			t.Fatalf("vehicle %d: break duration %d, want exactly 5", r.Vehicle, r.Break.Duration)
		}
		sum += r.Duration
	}
	if sum != res.Solution.TotalTime {
		t.Fatalf("grand total %d != sum of route durations %d", res.Solution.TotalTime, sum)
	}
}

func TestConstructionIsDeterministic(t *testing.T) {
	in := cityInstance(t, params(4, []int{2, 6, 8, 5}, []int{0, 0, 0, 0}))
	a, ok := construct(in)
	if !ok {
		t.Fatal("construction failed")
	}
	b, ok := construct(in)
	if !ok {
		t.Fatal("construction failed")
	}
	if !reflect.DeepEqual(a.routes, b.routes) {
		t.Fatalf("construction differs across runs:\n%v\n%v", a.routes, b.routes)
	}
}

func TestSolveIsDeterministicUnderIterationCap(t *testing.T) {
	p := params(4, []int{2, 6, 8, 5}, []int{0, 0, 0, 0})
	opts := Options{TimeBudget: time.Minute, MaxIterations: 40}
	in := cityInstance(t, p)
	r1 := Solve(context.Background(), in, opts)
	r2 := Solve(context.Background(), in, opts)
	if r1.Status != StatusSolved || r2.Status != StatusSolved {
		t.Fatalf("statuses: %s, %s", r1.Status, r2.Status)
	}
	if !reflect.DeepEqual(r1.Solution, r2.Solution) {
		t.Fatal("iteration-capped solve is not deterministic")
	}
}

func TestImprovementNotWorseThanConstruction(t *testing.T) {
	in := cityInstance(t, params(4, []int{2, 6, 8, 5}, []int{0, 0, 0, 0}))
	res := Solve(context.Background(), in, Options{TimeBudget: 500 * time.Millisecond})
	if res.Status != StatusSolved {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Stats.BestCost > res.Stats.ConstructionCost {
		t.Fatalf("best cost %d worse than construction cost %d", res.Stats.BestCost, res.Stats.ConstructionCost)
	}
	if res.Solution.Cost != res.Stats.BestCost {
		t.Fatalf("solution cost %d != best cost %d", res.Solution.Cost, res.Stats.BestCost)
	}
}

func TestSolveHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := cityInstance(t, params(4, []int{2, 6, 8, 5}, []int{0, 0, 0, 0}))
	res := Solve(ctx, in, Options{TimeBudget: time.Minute})
	// Construction still runs; cancellation only stops improvement.
	if res.Status != StatusSolved {
		t.Fatalf("status = %s, want solved", res.Status)
	}
	if res.Stats.Iterations != 0 {
		t.Fatalf("iterations = %d, want 0 under a canceled context", res.Stats.Iterations)
	}
	checkCoverage(t, in, res.Solution)
}
