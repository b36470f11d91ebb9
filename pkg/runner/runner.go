package runner

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dslab-go/simkit/pkg/compute"
	"github.com/dslab-go/simkit/pkg/dag"
	"github.com/dslab-go/simkit/pkg/kernel"
	"github.com/dslab-go/simkit/pkg/log"
	"github.com/dslab-go/simkit/pkg/metrics"
	"github.com/dslab-go/simkit/pkg/network"
	"github.com/dslab-go/simkit/pkg/scheduler"
	"github.com/dslab-go/simkit/pkg/trace"
)

// Runner is the DAG Runner (spec §4.11): the only component allowed to
// mutate *dag.DAG state once a run has started.
type Runner struct {
	ctx *kernel.Context
	d   *dag.DAG
	sys scheduler.System
	cfg scheduler.Config

	comp []*compute.Compute // indexed like sys.Resources
	net  *network.Network

	sched    scheduler.Static
	dynSched scheduler.Dynamic // nil unless sched also implements Dynamic

	queues    [][]int
	assigned  []bool
	taskRes   []int
	taskCores []int

	totalTasks int
	finished   int
	notify     kernel.Id
	runID      string

	tlog    *trace.Log
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithMetrics attaches a metrics collector; a Runner built without this
// option records nothing (metrics.NewCollector(false) semantics).
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Runner) { r.metrics = m }
}

// New constructs a Runner bound to ctx (reserved via Simulation.CreateContext
// before the handler is attached). comp must have one entry per
// sys.Resources, in the same order. New registers every key-getter the
// runner's own awaits need (spec §6: "register before events of that type
// are emitted"), so callers must not have registered conflicting getters
// for these payload types already.
func New(sim *kernel.Simulation, ctx *kernel.Context, d *dag.DAG, sys scheduler.System, cfg scheduler.Config, comp []*compute.Compute, net *network.Network, sched scheduler.Static, tlog *trace.Log, opts ...Option) *Runner {
	kernel.RegisterKeyGetter(sim, func(e compute.AllocationSuccess) uint64 { return e.ID })
	kernel.RegisterKeyGetter(sim, func(e compute.DeallocationSuccess) uint64 { return e.ID })
	kernel.RegisterKeyGetter(sim, func(e compute.CompStarted) uint64 { return e.ID })
	kernel.RegisterKeyGetter(sim, func(e compute.CompFinished) uint64 { return e.ID })
	kernel.RegisterKeyGetter(sim, func(e network.DataTransferCompleted) uint64 { return e.Data })

	n := d.TaskCount()
	r := &Runner{
		ctx:        ctx,
		d:          d,
		sys:        sys,
		cfg:        cfg,
		comp:       comp,
		net:        net,
		sched:      sched,
		queues:     make([][]int, len(sys.Resources)),
		assigned:   make([]bool, n),
		taskRes:    make([]int, n),
		taskCores:  make([]int, n),
		totalTasks: n,
		runID:      uuid.NewString(),
		tlog:       tlog,
		metrics:    metrics.NewCollector(false),
		logger:     log.WithComponent("runner"),
	}
	if dyn, ok := sched.(scheduler.Dynamic); ok {
		r.dynSched = dyn
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnEvent implements kernel.Handler. Every response the runner cares about
// is consumed by an awaiting task coroutine before dispatch ever reaches
// here (spec §9: kernel tries the async runtime before ordinary handler
// dispatch); a live OnEvent call means an event arrived with nothing
// awaiting it, which we simply ignore.
func (r *Runner) OnEvent(e kernel.Event) {}

// Start invokes the scheduler, applies every Action it returns, and
// attempts an initial dispatch on each resource queue. Completion (or
// failure) is reported asynchronously as RunCompleted/RunFailed to notify.
func (r *Runner) Start(notify kernel.Id) error {
	r.notify = notify
	if r.totalTasks == 0 {
		_, _ = r.ctx.EmitNow(RunCompleted{RunID: r.runID, Makespan: r.ctx.Time()}, notify)
		return nil
	}

	schedName := fmt.Sprintf("%T", r.sched)
	timer := metrics.NewTimer()
	actions, err := r.sched.Start(r.d, r.sys, r.cfg)
	r.metrics.RecordSchedulingLatency(timer)
	if err != nil {
		r.metrics.RecordSchedulingFailure(schedName)
		_, _ = r.ctx.EmitNow(RunFailed{RunID: r.runID, Reason: err.Error()}, notify)
		return err
	}
	r.metrics.RecordScheduling(schedName, len(actions))
	for _, a := range actions {
		if err := r.applyAction(a); err != nil {
			r.metrics.RecordSchedulingFailure(schedName)
			_, _ = r.ctx.EmitNow(RunFailed{RunID: r.runID, Reason: err.Error()}, notify)
			return err
		}
	}
	for ri := range r.sys.Resources {
		r.dispatch(ri)
	}
	return nil
}

// applyAction validates one scheduler Action against resource/task
// constraints (spec §4.10), marks the task's dag state, and pushes it onto
// its resource's FIFO queue.
func (r *Runner) applyAction(a scheduler.Action) error {
	t := a.Task
	task := r.d.Task(t)
	if a.Resource < 0 || a.Resource >= len(r.sys.Resources) {
		return fmt.Errorf("runner: task %d scheduled on unknown resource %d", t, a.Resource)
	}
	res := r.sys.Resources[a.Resource]
	cores := a.Cores
	if cores < task.MinCores || cores > task.MaxCores || cores > res.CoresTotal {
		return fmt.Errorf("runner: task %d assigned %d cores outside [%d,%d] on a %d-core resource", t, cores, task.MinCores, task.MaxCores, res.CoresTotal)
	}
	if task.Memory > res.MemoryTotal {
		return fmt.Errorf("runner: task %d needs %.2f memory, resource %d only has %.2f", t, task.Memory, a.Resource, res.MemoryTotal)
	}
	if len(task.AllowedResources) > 0 {
		ok := false
		for _, allowed := range task.AllowedResources {
			if allowed == res.ID {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("runner: task %d is not allowed on resource %d", t, a.Resource)
		}
	}

	switch task.State {
	case dag.Ready:
		if err := r.d.MarkRunnable(t); err != nil {
			return err
		}
	case dag.Pending:
		if err := r.d.MarkScheduled(t); err != nil {
			return err
		}
	default:
		return fmt.Errorf("runner: task %d already has an assignment", t)
	}

	r.assigned[t] = true
	r.taskRes[t] = a.Resource
	r.taskCores[t] = cores
	r.queues[a.Resource] = append(r.queues[a.Resource], t)
	r.trace(trace.KindScheduled, t, res.ID, cores, -1, "")
	return nil
}

// dispatch pops and starts queued tasks on resource ri while the queue's
// head is Runnable and fits in currently-available cores/memory (spec
// §4.11 step 3).
func (r *Runner) dispatch(ri int) {
	for len(r.queues[ri]) > 0 {
		t := r.queues[ri][0]
		task := r.d.Task(t)
		if task.State != dag.Runnable {
			return
		}
		if r.comp[ri].CoresAvailable() < r.taskCores[t] || r.comp[ri].MemoryAvailable() < task.Memory {
			return
		}
		r.queues[ri] = r.queues[ri][1:]
		r.ctx.Spawn(func(taskCtx *kernel.Context) { r.runTask(taskCtx, t, ri) })
	}
}

// runTask drives one task from reservation through completion as a single
// coroutine: reserve -> transfer inputs -> release the reservation ->
// compute (the compute facade holds the cores until it finishes) ->
// propagate.
func (r *Runner) runTask(ctx *kernel.Context, t, ri int) {
	task := r.d.Task(t)
	res := r.sys.Resources[ri]
	id := uint64(t)
	cores := r.taskCores[t]

	// Reserve cores/memory for the duration of the input-transfer wait.
	// The dispatch loop above already confirmed capacity, so this request
	// is not expected to fail; we only await the success arm.
	if _, err := ctx.Emit(compute.AllocationRequest{ID: id, Cores: cores, Memory: task.Memory, Requester: ctx.ID()}, res.ID, 0); err != nil {
		r.fail(t, err)
		return
	}
	if _, err := kernel.Recv[compute.AllocationSuccess](ctx).From(res.ID).WithKey(id).Await(); err != nil {
		r.fail(t, err)
		return
	}

	for _, item := range task.Inputs {
		di := r.d.DataItem(item)
		if err := r.deliverInput(ctx, di, ri); err != nil {
			r.fail(t, err)
			return
		}
	}

	if _, err := ctx.Emit(compute.DeallocationRequest{ID: id, Requester: ctx.ID()}, res.ID, 0); err != nil {
		r.fail(t, err)
		return
	}
	if _, err := kernel.Recv[compute.DeallocationSuccess](ctx).From(res.ID).WithKey(id).Await(); err != nil {
		r.fail(t, err)
		return
	}

	if err := r.d.MarkRunning(t); err != nil {
		r.fail(t, err)
		return
	}
	r.trace(trace.KindStarted, t, res.ID, cores, -1, "")

	if _, err := ctx.Emit(compute.CompRequest{
		ID: id, Flops: task.Flops, Memory: task.Memory,
		MinCores: cores, MaxCores: cores, CoresDependency: task.CoresDependency,
		Requester: ctx.ID(),
	}, res.ID, 0); err != nil {
		r.fail(t, err)
		return
	}
	if _, err := kernel.Recv[compute.CompStarted](ctx).From(res.ID).WithKey(id).Await(); err != nil {
		r.fail(t, err)
		return
	}
	if _, err := kernel.Recv[compute.CompFinished](ctx).From(res.ID).WithKey(id).Await(); err != nil {
		r.fail(t, err)
		return
	}

	ready, err := r.d.MarkDone(t)
	if err != nil {
		r.fail(t, err)
		return
	}
	r.finished++
	r.trace(trace.KindFinished, t, res.ID, cores, -1, "")

	// Scheduled-path consumers: their last input may have just arrived
	// without dag.MarkDone reporting it (it only auto-promotes tasks that
	// were Pending, per pkg/dag's two explicit transition paths).
	for _, item := range task.Outputs {
		for _, consumer := range r.d.DataItem(item).Consumers {
			if r.assigned[consumer] && r.d.Task(consumer).State == dag.Scheduled && r.d.PendingInputCount(consumer) == 0 {
				if err := r.d.MarkRunnable(consumer); err == nil {
					r.dispatch(r.taskRes[consumer])
				}
			}
		}
	}

	// Pending-path consumers: dag.MarkDone already promoted these to Ready;
	// a Dynamic scheduler decides how to schedule them now.
	for _, s := range ready {
		if r.dynSched == nil {
			r.logger.Warn().Int("task", s).Msg("task became ready with no assignment and no dynamic scheduler")
			continue
		}
		for _, a := range r.dynSched.OnTaskStateChanged(s, dag.Ready, r.d, r.sys) {
			_ = r.applyAction(a)
		}
	}
	for _, s := range ready {
		if r.assigned[s] {
			r.dispatch(r.taskRes[s])
		}
	}

	if r.dynSched != nil {
		for _, a := range r.dynSched.OnTaskStateChanged(t, dag.Done, r.d, r.sys) {
			_ = r.applyAction(a)
		}
	}

	r.dispatch(ri)

	if r.finished == r.totalTasks {
		r.metrics.RecordMakespan(ctx.Time())
		_, _ = r.ctx.EmitNow(RunCompleted{RunID: r.runID, Makespan: ctx.Time()}, r.notify)
	}
}

// deliverInput moves one input item onto resource dstRes per the
// configured DataTransferMode, awaiting every transfer it issues in
// sequence. Transfers for different tasks still run concurrently (each
// task is its own coroutine); only a single task's own multiple inputs are
// serialized, a deliberate simplification documented in DESIGN.md.
func (r *Runner) deliverInput(ctx *kernel.Context, di dag.DataItem, dstRes int) error {
	if di.Producer < 0 {
		return nil // external input, assumed already present
	}
	srcRes := r.taskRes[di.Producer]

	switch r.cfg.DataTransferMode {
	case scheduler.Manual:
		return nil
	case scheduler.ViaMasterNode:
		master := r.cfg.MasterResource
		if srcRes != master {
			if err := r.awaitTransfer(ctx, srcRes, master, di.Size); err != nil {
				return err
			}
		}
		if dstRes != master {
			if err := r.awaitTransfer(ctx, master, dstRes, di.Size); err != nil {
				return err
			}
		}
		return nil
	default: // Direct
		if srcRes == dstRes {
			return nil
		}
		return r.awaitTransfer(ctx, srcRes, dstRes, di.Size)
	}
}

func (r *Runner) awaitTransfer(ctx *kernel.Context, srcIdx, dstIdx int, size float64) error {
	if srcIdx == dstIdx {
		return nil
	}
	srcID := r.sys.Resources[srcIdx].ID
	dstID := r.sys.Resources[dstIdx].ID
	dataID, err := r.net.TransferData(srcID, dstID, size, ctx.ID())
	if err != nil {
		return err
	}
	_, err = kernel.Recv[network.DataTransferCompleted](ctx).WithKey(dataID).Await()
	return err
}

func (r *Runner) fail(t int, err error) {
	r.logger.Error().Int("task", t).Err(err).Msg("task pipeline failed")
	r.metrics.RecordSchedulingFailure(fmt.Sprintf("%T", r.sched))
	_, _ = r.ctx.EmitNow(RunFailed{RunID: r.runID, Reason: err.Error()}, r.notify)
}

func (r *Runner) trace(kind trace.Kind, task int, resource kernel.Id, cores, item int, detail string) {
	if r.tlog == nil {
		return
	}
	_ = r.tlog.Append(trace.Record{
		RunID: r.runID, Time: r.ctx.Time(), Kind: kind, Task: task, Resource: resource,
		Cores: cores, DataItem: item, Detail: detail,
	})
}
