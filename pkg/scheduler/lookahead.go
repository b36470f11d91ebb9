package scheduler

import "github.com/dslab-go/simkit/pkg/dag"

// Lookahead extends HEFT by not stopping at a task's own earliest finish
// time: for each candidate resource it also tentatively places the task's
// immediate successors (on whichever resource would then be best for them)
// and scores the candidate by the worst resulting successor finish time,
// grounded on dslab-dag/src/schedulers/lookahead.rs. This catches placements
// that look optimal locally but strand a successor behind a slow link or a
// busy resource.
type Lookahead struct{}

var _ Static = Lookahead{}

func (Lookahead) Start(d *dag.DAG, sys System, cfg Config) ([]Action, error) {
	rank := computeRanks(d, sys)
	order := sortByRankDesc(d.TaskCount(), rank)

	states := newSchedulerState(sys)
	finish := make([]float64, d.TaskCount())
	taskResource := make([]int, d.TaskCount())

	actions := make([]Action, 0, len(order))
	for _, t := range order {
		bestRes := -1
		var bestCand candidate
		bestScore := negInf

		for ri := range sys.Resources {
			c, ok := evaluate(d, sys, states, taskResource, finish, cfg, t, ri)
			if !ok {
				continue
			}
			score := c.end
			if s := lookaheadSuccessorScore(d, sys, states, taskResource, finish, cfg, t, c); s > score {
				score = s
			}
			if bestRes == -1 || score < bestScore {
				bestRes, bestCand, bestScore = ri, c, score
			}
		}
		if bestRes == -1 {
			return nil, ErrNoFeasibleAssignment
		}
		commit(d, states, taskResource, finish, t, bestCand)
		actions = append(actions, toAction(t, bestCand))
	}
	return actions, nil
}

// lookaheadSuccessorScore tentatively places each immediate successor of t
// whose other predecessors already count as placed (see
// predecessorsFinished), on a cloned, throwaway copy of the scheduling state
// in which t's candidate cores (not its memory) are committed, and returns
// the worst resulting finish time. Each successor is evaluated on its own;
// successors do not see one another's tentative placements.
func lookaheadSuccessorScore(d *dag.DAG, sys System, states []*resourceState, taskResource []int, finish []float64, cfg Config, t int, c candidate) float64 {
	succs := successors(d, t)
	if len(succs) == 0 {
		return negInf
	}

	tentativeStates := cloneStates(states)
	tentativeStates[c.resource].cores.commit(c.cores, c.end)
	tentativeFinish := append([]float64(nil), finish...)
	tentativeFinish[t] = c.end
	tentativeResource := append([]int(nil), taskResource...)
	tentativeResource[t] = c.resource

	var worst float64
	for _, s := range succs {
		if !predecessorsFinished(d, tentativeFinish, s, t) {
			continue
		}
		best, ok := bestCandidate(d, sys, tentativeStates, tentativeResource, tentativeFinish, cfg, s)
		if !ok {
			continue
		}
		if best.end > worst {
			worst = best.end
		}
	}
	return worst
}

// predecessorsFinished reports whether every predecessor of task other than
// justScheduled already has a recorded finish time, i.e. whether a tentative
// placement of task is meaningful yet.
func predecessorsFinished(d *dag.DAG, finish []float64, task, justScheduled int) bool {
	for _, p := range predecessors(d, task) {
		if p == justScheduled {
			continue
		}
		if finish[p] == 0 && !isRootTask(d, p) {
			return false
		}
	}
	return true
}

func isRootTask(d *dag.DAG, t int) bool {
	return len(predecessors(d, t)) == 0
}

func cloneStates(states []*resourceState) []*resourceState {
	out := make([]*resourceState, len(states))
	for i, s := range states {
		nf := append([]float64(nil), s.cores.nextFree...)
		res := append([]memoryReservation(nil), s.mem.reservations...)
		out[i] = &resourceState{
			cores: &coreTimeline{nextFree: nf},
			mem:   &memoryTimeline{total: s.mem.total, reservations: res},
		}
	}
	return out
}
