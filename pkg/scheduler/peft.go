package scheduler

import "github.com/dslab-go/simkit/pkg/dag"

// Peft is the Predict Earliest Finish Time heuristic (spec §4.10), grounded
// on dslab-dag/src/schedulers/peft.rs: tasks are prioritized by the mean of
// an Optimistic Cost Table (the best possible completion of everything
// downstream of a task, assuming every future placement is chosen
// optimally), and each is placed on the resource minimizing
// EFT(task, resource) + OCT(task, resource) rather than EFT alone — this
// lets PEFT see past a resource that is locally fast but strands a costly
// successor on a slow link.
type Peft struct{}

var _ Static = Peft{}

func (Peft) Start(d *dag.DAG, sys System, cfg Config) ([]Action, error) {
	oct := computeOCT(d, sys)
	n := d.TaskCount()
	meanOCT := make([]float64, n)
	for t := 0; t < n; t++ {
		var sum float64
		for _, v := range oct[t] {
			sum += v
		}
		if len(sys.Resources) > 0 {
			meanOCT[t] = sum / float64(len(sys.Resources))
		}
	}
	order := sortByRankDesc(n, meanOCT)

	states := newSchedulerState(sys)
	finish := make([]float64, n)
	taskResource := make([]int, n)

	actions := make([]Action, 0, n)
	for _, t := range order {
		bestRes := -1
		var bestCand candidate
		bestScore := negInf
		for ri := range sys.Resources {
			c, ok := evaluate(d, sys, states, taskResource, finish, cfg, t, ri)
			if !ok {
				continue
			}
			score := c.end + oct[t][ri]
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

// computeOCT fills the Optimistic Cost Table: oct[t][r] is the best-case
// time to finish everything downstream of t, if t were hypothetically
// placed on resource r, assuming every successor then gets its own
// optimal placement. Computed bottom-up over a topological order, per
// dslab-dag/src/schedulers/peft.rs's OCT recurrence.
func computeOCT(d *dag.DAG, sys System) [][]float64 {
	n := d.TaskCount()
	nr := len(sys.Resources)
	oct := make([][]float64, n)
	for i := range oct {
		oct[i] = make([]float64, nr)
	}
	order := topoOrder(d)
	for i := len(order) - 1; i >= 0; i-- {
		t := order[i]
		succs := successors(d, t)
		if len(succs) == 0 {
			continue // oct already zero-valued
		}
		for r := 0; r < nr; r++ {
			var worst float64
			for _, s := range succs {
				best := negInf
				for rp := 0; rp < nr; rp++ {
					exec := execTime(d, sys, s, rp)
					comm := commCost(d, sys, t, s, r, rp)
					v := oct[s][rp] + exec + comm
					if best == negInf || v < best {
						best = v
					}
				}
				if best > worst {
					worst = best
				}
			}
			oct[t][r] = worst
		}
	}
	return oct
}

func execTime(d *dag.DAG, sys System, t, ri int) float64 {
	task := d.Task(t)
	res := sys.Resources[ri]
	cores := task.MaxCores
	if cores > res.CoresTotal {
		cores = res.CoresTotal
	}
	if cores < 1 {
		cores = 1
	}
	sp := speedup(task, cores)
	if sp <= 0 {
		sp = 1
	}
	return task.Flops / (res.Speed * sp)
}

func commCost(d *dag.DAG, sys System, t, s, r, rp int) float64 {
	if r == rp {
		return 0
	}
	var size float64
	for _, item := range d.Task(t).Outputs {
		di := d.DataItem(item)
		for _, c := range di.Consumers {
			if c == s {
				size += di.Size
			}
		}
	}
	srcID, dstID := sys.Resources[r].ID, sys.Resources[rp].ID
	return sys.Topology.Latency(srcID, dstID) + size/sys.Topology.Bandwidth(srcID, dstID)
}
