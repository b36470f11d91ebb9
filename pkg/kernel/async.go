package kernel

import "reflect"

// timerFired is the kernel-internal payload used to back timer futures with
// a self-event. It is never exposed to ordinary handlers: the dispatcher
// intercepts it before normal dispatch (see simulation.go's deliver).
type timerFired struct {
	seq uint64
}

// awaitBucketKey groups pending event-future promises by the component
// waiting (dst) and the payload type it is waiting for.
type awaitBucketKey struct {
	dst Id
	typ reflect.Type
}

// promise is one outstanding await registration: an event future, a pure
// timer future, or the combination produced by with_timeout (spec §4.5).
type promise struct {
	taskID uint64

	dst Id

	hasSrc bool
	src    Id

	hasKey bool
	key    uint64

	typ reflect.Type // nil for a pure timer wait

	pureTimer    bool
	timerSeq     uint64 // 0 if this promise has no linked timer
	timerEventID uint64
	timeoutDelay float64
}

// resumeSignal is delivered to a suspended task goroutine to wake it.
type resumeSignal struct {
	aborted bool

	event    Event
	payload  any
	timedOut bool

	// populated only when timedOut is true
	timeoutSrc   Id
	hasTimeoutSrc bool
	timeoutKey   uint64
	hasTimeoutKey bool
	timeoutDelay float64
}

// yieldSignal is sent by a task goroutine back to whichever kernel call is
// driving it (spawn or resume), indicating it has either suspended again or
// returned.
type yieldSignal struct {
	finished bool
}

type task struct {
	id       uint64
	owner    Id
	resumeCh chan resumeSignal
	yieldCh  chan yieldSignal
}

// abortSignal is the panic value used to unwind a task goroutine cleanly
// when its owning component is removed. It is recovered in the goroutine's
// top-level deferred func and never escapes to the caller.
type abortSignal struct{}

// asyncRuntime is the kernel's cooperative task executor. Exactly one
// goroutine is ever runnable at a time: the dispatch loop, or a task
// goroutine between being sent a resumeSignal and sending back a
// yieldSignal. This is enforced structurally by the channel protocol below,
// not by a mutex — there is nothing else to race with (spec §5: "No real
// locks; all mutation is serial because there is no parallelism").
type asyncRuntime struct {
	sim *Simulation

	nextTaskID uint64
	tasks      map[uint64]*task

	byType map[awaitBucketKey][]*promise
	byTimer map[uint64]*promise
	nextTimerSeq uint64

	keyGetters map[reflect.Type]func(any) uint64
}

func newAsyncRuntime(sim *Simulation) *asyncRuntime {
	return &asyncRuntime{
		sim:        sim,
		nextTaskID: 1,
		tasks:      make(map[uint64]*task),
		byType:     make(map[awaitBucketKey][]*promise),
		byTimer:    make(map[uint64]*promise),
	}
}

func (rt *asyncRuntime) pendingCount() int {
	n := 0
	for _, b := range rt.byType {
		n += len(b)
	}
	return n
}

// spawn starts fn in its own goroutine, owned by owner, and runs it until
// it first suspends or returns.
func (rt *asyncRuntime) spawn(owner Id, fn func(*Context)) {
	ctx := &Context{sim: rt.sim, id: owner}
	t := &task{
		id:       rt.nextTaskID,
		owner:    owner,
		resumeCh: make(chan resumeSignal),
		yieldCh:  make(chan yieldSignal),
	}
	rt.nextTaskID++
	rt.tasks[t.id] = t
	ctx.taskID = t.id

	go func() {
		defer func() {
			recover() // swallow abortSignal{}; any other panic also stops here by design
			t.yieldCh <- yieldSignal{finished: true}
		}()
		fn(ctx)
	}()

	rt.runUntilYield(t)
	if rt.sim.metrics != nil {
		rt.sim.metrics.RecordTaskSpawned(rt.pendingCount())
	}
}

// runUntilYield blocks until t either suspends (registering a promise) or
// finishes. Either way, ownership of the single logical thread returns to
// the caller once this returns.
func (rt *asyncRuntime) runUntilYield(t *task) {
	msg := <-t.yieldCh
	if msg.finished {
		delete(rt.tasks, t.id)
	}
}

// resume hands ev/payload (or a timeout) to the task waiting in the given
// promise and blocks until it suspends again or finishes.
func (rt *asyncRuntime) resume(p *promise, sig resumeSignal) {
	t, ok := rt.tasks[p.taskID]
	if !ok {
		return
	}
	t.resumeCh <- sig
	rt.runUntilYield(t)
}

// tryConsumeEvent checks whether e is claimed by an outstanding event-future
// promise. If so, the matching promise is removed, its linked timer (if
// any) is cancelled, and the owning task is resumed with the event. Returns
// true iff the event was consumed this way (spec §4.5 contract 2).
func (rt *asyncRuntime) tryConsumeEvent(e Event) bool {
	typ := reflect.TypeOf(e.Payload)
	bucket := rt.byType[awaitBucketKey{dst: e.Dst, typ: typ}]
	for i, p := range bucket {
		if p.hasSrc && p.src != e.Src {
			continue
		}
		if p.hasKey {
			getter, ok := rt.keyGetters[typ]
			if !ok {
				continue
			}
			if getter(e.Payload) != p.key {
				continue
			}
		}
		rt.byType[awaitBucketKey{dst: e.Dst, typ: typ}] = append(bucket[:i:i], bucket[i+1:]...)
		if p.timerSeq != 0 {
			delete(rt.byTimer, p.timerSeq)
			rt.sim.queue.cancel(p.timerEventID)
		}
		rt.resume(p, resumeSignal{event: e, payload: e.Payload})
		return true
	}
	return false
}

// tryConsumeTimer checks whether e is a timerFired self-event matching an
// outstanding timer or with_timeout promise, and if so resumes its task.
// Returns true iff e was an internal timer event (consumed either way).
func (rt *asyncRuntime) tryConsumeTimer(e Event) bool {
	tf, ok := e.Payload.(timerFired)
	if !ok {
		return false
	}
	p, ok := rt.byTimer[tf.seq]
	if !ok {
		return true // stale/cancelled timer race; nothing to wake
	}
	delete(rt.byTimer, tf.seq)
	if !p.pureTimer {
		bucket := rt.byType[awaitBucketKey{dst: p.dst, typ: p.typ}]
		for i, q := range bucket {
			if q == p {
				rt.byType[awaitBucketKey{dst: p.dst, typ: p.typ}] = append(bucket[:i:i], bucket[i+1:]...)
				break
			}
		}
	}
	sig := resumeSignal{timedOut: true, timeoutDelay: p.timeoutDelay}
	if p.hasSrc {
		sig.timeoutSrc, sig.hasTimeoutSrc = p.src, true
	}
	if p.hasKey {
		sig.timeoutKey, sig.hasTimeoutKey = p.key, true
	}
	rt.resume(p, sig)
	return true
}

// registerKeyGetter installs the extraction function used to pull a
// correlation key out of payloads of type T (spec §4.5 contract 5).
func registerKeyGetter[T any](rt *asyncRuntime, fn func(T) uint64) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	rt.keyGetters[typ] = func(v any) uint64 { return fn(v.(T)) }
}

// dropComponentPromises removes every promise owned by tasks belonging to
// id, without waking anyone (spec §4.5 contract 4, §5 Cancellation).
func (rt *asyncRuntime) dropComponentPromises(id Id) {
	for key, bucket := range rt.byType {
		if key.dst != id {
			continue
		}
		for _, p := range bucket {
			if p.timerSeq != 0 {
				delete(rt.byTimer, p.timerSeq)
				rt.sim.queue.cancel(p.timerEventID)
			}
		}
		delete(rt.byType, key)
	}
	for seq, p := range rt.byTimer {
		if p.dst == id {
			delete(rt.byTimer, seq)
		}
	}
}

// abortComponentTasks cleanly unwinds every live task goroutine owned by
// id, so it is garbage-collected rather than leaked blocked forever.
func (rt *asyncRuntime) abortComponentTasks(id Id) {
	for tid, t := range rt.tasks {
		if t.owner != id {
			continue
		}
		t.resumeCh <- resumeSignal{aborted: true}
		<-t.yieldCh
		delete(rt.tasks, tid)
	}
}
