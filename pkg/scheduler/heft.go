package scheduler

import "github.com/dslab-go/simkit/pkg/dag"

// Heft is the Heterogeneous Earliest Finish Time heuristic (spec §4.10),
// grounded on dslab-dag/src/schedulers/heft.rs: tasks are visited in
// decreasing upward-rank order and each is greedily placed on whichever
// allowed resource gives it the earliest finish time.
type Heft struct{}

var _ Static = Heft{}

func (Heft) Start(d *dag.DAG, sys System, cfg Config) ([]Action, error) {
	rank := computeRanks(d, sys)
	order := sortByRankDesc(d.TaskCount(), rank)

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
