package scheduler

import (
	"sort"

	"github.com/dslab-go/simkit/pkg/dag"
	"github.com/dslab-go/simkit/pkg/kernel"
)

// speedup returns the execution speedup a task gets from running on
// coreCount cores, defaulting to linear speedup if the task did not specify
// a CoresDependency.
func speedup(t dag.Task, coreCount int) float64 {
	if t.CoresDependency == nil {
		return float64(coreCount)
	}
	return t.CoresDependency(coreCount)
}

// resourceAllowed reports whether a task may run on resource id, honoring
// an empty AllowedResources as "any resource".
func resourceAllowed(t dag.Task, id kernel.Id) bool {
	if len(t.AllowedResources) == 0 {
		return true
	}
	for _, a := range t.AllowedResources {
		if a == id {
			return true
		}
	}
	return false
}

// successors lists the distinct tasks that consume any of t's outputs.
func successors(d *dag.DAG, t int) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, item := range d.Task(t).Outputs {
		for _, c := range d.DataItem(item).Consumers {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	return out
}

// predecessors lists the distinct tasks that produce any of t's inputs.
func predecessors(d *dag.DAG, t int) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, item := range d.Task(t).Inputs {
		p := d.DataItem(item).Producer
		if p < 0 {
			continue
		}
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// topoOrder returns task indices in a valid topological order (Kahn's
// algorithm), ties broken by task index for determinism.
func topoOrder(d *dag.DAG) []int {
	n := d.TaskCount()
	indegree := make([]int, n)
	for t := 0; t < n; t++ {
		indegree[t] = len(predecessors(d, t))
	}
	var ready []int
	for t := 0; t < n; t++ {
		if indegree[t] == 0 {
			ready = append(ready, t)
		}
	}
	sort.Ints(ready)

	order := make([]int, 0, n)
	for len(ready) > 0 {
		t := ready[0]
		ready = ready[1:]
		order = append(order, t)
		var newlyReady []int
		for _, s := range successors(d, t) {
			indegree[s]--
			if indegree[s] == 0 {
				newlyReady = append(newlyReady, s)
			}
		}
		sort.Ints(newlyReady)
		ready = append(ready, newlyReady...)
		sort.Ints(ready)
	}
	return order
}

// avgFlopTime estimates each task's execution time averaged over every
// resource it is allowed to run on at MinCores, the baseline rank.rs uses
// before any resource has actually been chosen.
func avgFlopTime(d *dag.DAG, sys System) []float64 {
	n := d.TaskCount()
	out := make([]float64, n)
	for t := 0; t < n; t++ {
		task := d.Task(t)
		var sum float64
		var count int
		for _, r := range sys.Resources {
			if !resourceAllowed(task, r.ID) {
				continue
			}
			sp := speedup(task, task.MinCores)
			if sp <= 0 {
				sp = 1
			}
			sum += task.Flops / (r.Speed * sp)
			count++
		}
		if count == 0 {
			out[t] = task.Flops
			continue
		}
		out[t] = sum / float64(count)
	}
	return out
}

// avgLinkTime estimates the average per-unit-size transfer time and average
// latency across every ordered pair of distinct resources, used as a
// topology-agnostic stand-in for rank computation (spec §4.10: rank is
// computed before any resource assignment exists).
func avgLinkTime(sys System) (perByte, latency float64) {
	var sumPerByte, sumLatency float64
	var count int
	for _, a := range sys.Resources {
		for _, b := range sys.Resources {
			if a.ID == b.ID {
				continue
			}
			bw := sys.Topology.Bandwidth(a.ID, b.ID)
			if bw <= 0 {
				continue
			}
			sumPerByte += 1 / bw
			sumLatency += sys.Topology.Latency(a.ID, b.ID)
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return sumPerByte / float64(count), sumLatency / float64(count)
}

// avgCommTime estimates the communication time between task t and a
// successor s, using the total size of the data items t produces that s
// consumes and the topology-wide average link characteristics.
func avgCommTime(d *dag.DAG, t, s int, perByte, latency float64) float64 {
	var size float64
	hasEdge := false
	for _, item := range d.Task(t).Outputs {
		di := d.DataItem(item)
		for _, c := range di.Consumers {
			if c == s {
				size += di.Size
				hasEdge = true
			}
		}
	}
	if !hasEdge {
		return 0
	}
	return latency + size*perByte
}

// computeRanks computes the classic HEFT upward rank for every task:
//
//	rank(t) = flopTime(t) + max_{s in succ(t)} (commTime(t,s) + rank(s))
//
// grounded on dslab-dag/src/schedulers/heft.rs's rank computation, processed
// bottom-up (sinks first) by walking a topological order in reverse.
func computeRanks(d *dag.DAG, sys System) []float64 {
	flop := avgFlopTime(d, sys)
	perByte, latency := avgLinkTime(sys)

	order := topoOrder(d)
	rank := make([]float64, d.TaskCount())
	for i := len(order) - 1; i >= 0; i-- {
		t := order[i]
		var best float64
		for _, s := range successors(d, t) {
			v := avgCommTime(d, t, s, perByte, latency) + rank[s]
			if v > best {
				best = v
			}
		}
		rank[t] = flop[t] + best
	}
	return rank
}

// sortByRankDesc returns every task index ordered by decreasing rank, tied
// tasks broken by ascending index for determinism.
func sortByRankDesc(n int, rank []float64) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		if rank[order[i]] != rank[order[j]] {
			return rank[order[i]] > rank[order[j]]
		}
		return order[i] < order[j]
	})
	return order
}

// memoryReservation is one [start, end) interval of memory held by a task.
type memoryReservation struct {
	start, end, amount float64
}

// memoryTimeline answers "is amount free throughout [start, end)" against a
// resource's memory budget with a linear scan over existing reservations
// instead of an interval tree. fits adds up every reservation that overlaps
// [start, end), not the peak usage at any single instant in that window, so
// it never admits a placement that would exceed the budget but may reject
// one whose overlapping reservations never coexist.
type memoryTimeline struct {
	total         float64
	reservations  []memoryReservation
}

func newMemoryTimeline(total float64) *memoryTimeline {
	return &memoryTimeline{total: total}
}

func (m *memoryTimeline) fits(start, end, amount float64) bool {
	used := 0.0
	for _, r := range m.reservations {
		if r.start < end && start < r.end {
			used += r.amount
		}
	}
	return used+amount <= m.total+1e-9
}

func (m *memoryTimeline) reserve(start, end, amount float64) {
	m.reservations = append(m.reservations, memoryReservation{start: start, end: end, amount: amount})
}

// coreTimeline tracks, per core of one resource, the time at which it next
// becomes free. Because list schedulers only ever append a new interval at
// or after a core's current end (never back-fill an earlier gap), a single
// "next free" float per core is sufficient bookkeeping; this is a
// deliberate simplification of dslab-dag's gap-searching core scheduler,
// which only matters for squeezing short tasks into idle gaps, an
// optimization and not a correctness requirement of spec §4.10.
type coreTimeline struct {
	nextFree []float64
}

func newCoreTimeline(cores int) *coreTimeline {
	return &coreTimeline{nextFree: make([]float64, cores)}
}

// peek returns the earliest time at which coreCount cores are all
// simultaneously free, plus which core indices those are.
func (c *coreTimeline) peek(coreCount int) (float64, []int) {
	idx := make([]int, len(c.nextFree))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return c.nextFree[idx[i]] < c.nextFree[idx[j]] })
	chosen := append([]int(nil), idx[:coreCount]...)
	var start float64
	for _, ci := range chosen {
		if v := c.nextFree[ci]; v > start {
			start = v
		}
	}
	sort.Ints(chosen)
	return start, chosen
}

func (c *coreTimeline) commit(cores []int, end float64) {
	for _, ci := range cores {
		c.nextFree[ci] = end
	}
}

// resourceState is one resource's scheduling state as built up by a
// Static.Start pass: per-core availability plus the memory timeline.
type resourceState struct {
	cores *coreTimeline
	mem   *memoryTimeline
}

func newSchedulerState(sys System) []*resourceState {
	states := make([]*resourceState, len(sys.Resources))
	for i, r := range sys.Resources {
		states[i] = &resourceState{
			cores: newCoreTimeline(r.CoresTotal),
			mem:   newMemoryTimeline(r.MemoryTotal),
		}
	}
	return states
}

// candidate is a feasible (task, resource) assignment evaluated by a
// scheduler before committing to it.
type candidate struct {
	resource       int
	cores          []int
	start, end     float64
}

// evaluate computes the feasible assignment of task t on resource ri, or
// ok=false if the resource cannot host it (wrong AllowedResources, not
// enough cores, or no memory window available).
func evaluate(d *dag.DAG, sys System, states []*resourceState, taskResource []int, finish []float64, cfg Config, t, ri int) (candidate, bool) {
	task := d.Task(t)
	res := sys.Resources[ri]
	if !resourceAllowed(task, res.ID) {
		return candidate{}, false
	}
	cores := task.MaxCores
	if cores > res.CoresTotal {
		cores = res.CoresTotal
	}
	if cores < task.MinCores {
		return candidate{}, false
	}
	if cores < 1 {
		cores = 1
	}

	est := estimateEST(d, sys, taskResource, finish, cfg, t, ri)
	avail, coreSet := states[ri].cores.peek(cores)
	start := est
	if avail > start {
		start = avail
	}
	sp := speedup(task, cores)
	if sp <= 0 {
		sp = 1
	}
	dur := task.Flops / (res.Speed * sp)
	end := start + dur
	if !states[ri].mem.fits(start, end, task.Memory) {
		return candidate{}, false
	}
	return candidate{resource: ri, cores: coreSet, start: start, end: end}, true
}

// estimateEST computes the earliest time task t's inputs are all available
// on resource ri, given every predecessor's already-decided resource and
// finish time. Under Direct transfer mode a cross-resource edge costs the
// actual link's latency+size/bandwidth; same-resource data is free. Under
// ViaMasterNode every cross-resource edge is costed via the master
// resource's link instead. Manual mode assumes the caller primes data out
// of band, so only predecessor finish times gate EST.
func estimateEST(d *dag.DAG, sys System, taskResource []int, finish []float64, cfg Config, t, ri int) float64 {
	var est float64
	task := d.Task(t)
	for _, item := range task.Inputs {
		di := d.DataItem(item)
		if di.Producer < 0 {
			continue // external input, assumed ready at time 0
		}
		p := di.Producer
		ready := finish[p]
		if cfg.DataTransferMode != Manual && taskResource[p] != ri {
			ready += transferTime(sys, taskResource[p], ri, di.Size, cfg)
		}
		if ready > est {
			est = ready
		}
	}
	return est
}

func transferTime(sys System, srcRes, dstRes int, size float64, cfg Config) float64 {
	if cfg.DataTransferMode == ViaMasterNode {
		master := sys.Resources[cfg.MasterResource].ID
		src := sys.Resources[srcRes].ID
		dst := sys.Resources[dstRes].ID
		if src == master || dst == master {
			a, b := src, dst
			return sys.Topology.Latency(a, b) + size/sys.Topology.Bandwidth(a, b)
		}
		up := sys.Topology.Latency(src, master) + size/sys.Topology.Bandwidth(src, master)
		down := sys.Topology.Latency(master, dst) + size/sys.Topology.Bandwidth(master, dst)
		return up + down
	}
	src, dst := sys.Resources[srcRes].ID, sys.Resources[dstRes].ID
	return sys.Topology.Latency(src, dst) + size/sys.Topology.Bandwidth(src, dst)
}

// commit finalizes a chosen candidate: reserves cores and memory, and
// records the task's finish time/resource for later EST estimates.
func commit(d *dag.DAG, states []*resourceState, taskResource []int, finish []float64, t int, c candidate) {
	states[c.resource].cores.commit(c.cores, c.end)
	states[c.resource].mem.reserve(c.start, c.end, d.Task(t).Memory)
	taskResource[t] = c.resource
	finish[t] = c.end
}

// toAction renders a committed candidate as the Action a scheduler returns.
func toAction(t int, c candidate) Action {
	return Action{
		Kind:         ActionScheduleOnCores,
		Task:         t,
		Resource:     c.resource,
		Cores:        len(c.cores),
		CoreSet:      c.cores,
		ExpectedSpan: c.end - c.start,
	}
}
