package scheduler

import "github.com/dslab-go/simkit/pkg/dag"

// Simple is a trivial FCFS baseline: tasks are scheduled in topological
// order, each onto whichever allowed resource currently gives it the
// earliest finish time with no rank-based lookahead at all. It exists to
// give callers (and spec §8 scenario 4's makespan comparison table) a worst
// case to compare the rank-aware heuristics against.
type Simple struct{}

var _ Static = Simple{}

func (Simple) Start(d *dag.DAG, sys System, cfg Config) ([]Action, error) {
	order := topoOrder(d)
	states := newSchedulerState(sys)
	finish := make([]float64, d.TaskCount())
	taskResource := make([]int, d.TaskCount())

	actions := make([]Action, 0, len(order))
	for _, t := range order {
		best, ok := bestCandidate(d, sys, states, taskResource, finish, cfg, t)
		if !ok {
			return nil, ErrNoFeasibleAssignment
		}
		commit(d, states, taskResource, finish, t, best)
		actions = append(actions, toAction(t, best))
	}
	return actions, nil
}

// bestCandidate scans every resource and returns the one minimizing finish
// time, the shared selection rule behind Simple and HEFT.
func bestCandidate(d *dag.DAG, sys System, states []*resourceState, taskResource []int, finish []float64, cfg Config, t int) (candidate, bool) {
	var best candidate
	found := false
	for ri := range sys.Resources {
		c, ok := evaluate(d, sys, states, taskResource, finish, cfg, t, ri)
		if !ok {
			continue
		}
		if !found || c.end < best.end {
			best = c
			found = true
		}
	}
	return best, found
}
