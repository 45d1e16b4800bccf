package solver

// BreakPlacement is a realized break on a vehicle's timeline.
type BreakPlacement struct {
	Start     int  `json:"start"`
	Duration  int  `json:"duration"`
	Performed bool `json:"performed"`
}

// schedule is the result of propagating cumulative times along one
// vehicle's node sequence.
type schedule struct {
	times []int // cumulative time at each position of the sequence
	brk   *BreakPlacement
}

// span is the difference between the vehicle's end and start cumulative
// time. Start cumuls are forced to zero, so this is simply the end time.
func (s schedule) span() int {
	if len(s.times) == 0 {
		return 0
	}
	return s.times[len(s.times)-1]
}

// propagate walks seq (a full or partial node sequence starting at the
// vehicle's start node) and computes the minimal cumulative time at every
// position, subject to:
//
//	cumul(next) >= cumul(prev) + Cost(prev, next)
//	cumul(next) <= cumul(prev) + Cost(prev, next) + slack
//	cumul(pos)  <= maxRouteTime
//
// If the vehicle has a configured break, exactly one interval of the
// break's duration is reserved on the first arc that can host it. The
// break must start within [earliest, earliest+slack] and may not overlap
// any node's service window [cumul(node), cumul(node)+service(node)]; it
// displaces travel (or idle time, which together with the break counts
// against the arc's slack budget).
//
// With final=false the sequence is a prefix of a route still under
// construction: an unplaced break only fails the schedule once its
// window can no longer be reached by any future arc. With final=true an
// unplaced break makes the schedule infeasible.
func propagate(in *Instance, vehicle int, seq []int, final bool) (schedule, bool) {
	s := schedule{times: make([]int, len(seq))}
	if len(seq) == 0 {
		return s, true
	}
	bs := in.Break(vehicle)
	placed := bs == nil
	var winLo, winHi int
	if bs != nil {
		winLo = bs.EarliestStart
		winHi = bs.EarliestStart + in.SlackTime()
	}

	t := 0
	s.times[0] = 0
	for i := 1; i < len(seq); i++ {
		prev, next := seq[i-1], seq[i]
		dep := t + in.Service(prev)
		travel := in.matrix[prev][next]
		if !placed {
			if dep > winHi {
				// The window closed while still in service; no arc can
				// host the break anymore.
				return s, false
			}
			start := winLo
			if dep > start {
				start = dep
			}
			idle := start - (dep + travel)
			if idle < 0 {
				idle = 0
			}
			if idle+bs.Duration <= in.SlackTime() {
				arrive := dep + travel
				if start > arrive {
					arrive = start
				}
				t = arrive + bs.Duration
				s.brk = &BreakPlacement{Start: start, Duration: bs.Duration, Performed: true}
				placed = true
			} else {
				// Break would start too long after arrival; defer to a
				// later arc.
				t = dep + travel
			}
		} else {
			t = dep + travel
		}
		if t > in.MaxRouteTime() {
			return s, false
		}
		s.times[i] = t
	}
	if !placed {
		if final {
			return s, false
		}
		// Still extendable: the next arc departs at t + service(tail).
		if t+in.Service(seq[len(seq)-1]) > winHi {
			return s, false
		}
	}
	return s, true
}
