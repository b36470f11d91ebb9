package scheduler

import "github.com/dslab-go/simkit/pkg/dag"

// DLS is the Dynamic Level Scheduling heuristic (spec §4.10), grounded on
// dslab-dag/src/schedulers/dls.rs: at every step it considers every task
// whose predecessors have already been scheduled and every resource that
// could host it, and commits whichever (task, resource) pair maximizes the
// "dynamic level" rank(task) - EST(task, resource) — preferring tasks whose
// remaining critical path is long and resources that can start them soonest.
type DLS struct{}

var _ Static = DLS{}

func (DLS) Start(d *dag.DAG, sys System, cfg Config) ([]Action, error) {
	rank := computeRanks(d, sys)
	n := d.TaskCount()
	states := newSchedulerState(sys)
	finish := make([]float64, n)
	taskResource := make([]int, n)
	scheduled := make([]bool, n)

	actions := make([]Action, 0, n)
	for remaining := n; remaining > 0; remaining-- {
		bestTask := -1
		var bestCand candidate
		bestDL := negInf

		for t := 0; t < n; t++ {
			if scheduled[t] || !predecessorsScheduled(d, scheduled, t) {
				continue
			}
			for ri := range sys.Resources {
				c, ok := evaluate(d, sys, states, taskResource, finish, cfg, t, ri)
				if !ok {
					continue
				}
				dl := rank[t] - c.start
				if bestTask == -1 || dl > bestDL {
					bestTask, bestCand, bestDL = t, c, dl
				}
			}
		}
		if bestTask == -1 {
			return nil, ErrNoFeasibleAssignment
		}
		commit(d, states, taskResource, finish, bestTask, bestCand)
		scheduled[bestTask] = true
		actions = append(actions, toAction(bestTask, bestCand))
	}
	return actions, nil
}

const negInf = -1e18

func predecessorsScheduled(d *dag.DAG, scheduled []bool, t int) bool {
	for _, p := range predecessors(d, t) {
		if !scheduled[p] {
			return false
		}
	}
	return true
}
