package kernel

import "reflect"

// Context is the Emission Context: the only handle a handler or async task
// gets into the kernel (spec §4.3). It hides the event queue, registry, and
// async runtime behind emit/cancel/time/id/spawn/rand.
type Context struct {
	sim *Simulation
	id  Id

	// taskID is non-zero only inside a goroutine spawned via Spawn; it lets
	// Recv/Sleep register promises against the right task.
	taskID uint64
}

func (c *Context) ID() Id     { return c.id }
func (c *Context) Time() float64 { return c.sim.now }

func (c *Context) Name() string {
	name, _ := c.sim.registry.lookupName(c.id)
	return name
}

// Emit schedules payload for delivery to dst after delay simulated seconds
// and returns the new event's id so the caller may later CancelEvent it.
// delay must be >= 0.
func (c *Context) Emit(payload any, dst Id, delay float64) (uint64, error) {
	if delay < 0 {
		return 0, ErrInvalidDelay
	}
	e := c.sim.queue.schedule(c.sim.now+delay, c.id, dst, payload)
	return e.ID, nil
}

// EmitSelf is sugar for Emit(payload, ctx.ID(), delay).
func (c *Context) EmitSelf(payload any, delay float64) (uint64, error) {
	return c.Emit(payload, c.id, delay)
}

// EmitNow is sugar for Emit(payload, dst, 0).
func (c *Context) EmitNow(payload any, dst Id) (uint64, error) {
	return c.Emit(payload, dst, 0)
}

// CancelEvent removes a pending event; cancelling an unknown or already
// delivered id is a silent no-op.
func (c *Context) CancelEvent(id uint64) {
	c.sim.queue.cancel(id)
}

// Spawn registers fn as a new async task owned by this component and runs
// it until it first suspends or returns.
func (c *Context) Spawn(fn func(*Context)) {
	c.sim.async.spawn(c.id, fn)
}

func (c *Context) Rand() float64            { return c.sim.rng.Float64() }
func (c *Context) GenRange(lo, hi int) int   { return c.sim.rng.GenRange(lo, hi) }
func (c *Context) RandomString(n int) string { return c.sim.rng.RandomString(n) }

// Sleep suspends the calling task until delay simulated seconds have
// passed. It must be called from within a goroutine started by Spawn.
func (c *Context) Sleep(delay float64) error {
	if delay < 0 {
		return ErrInvalidDelay
	}
	rt := c.sim.async
	seq := rt.nextTimerSeq + 1
	rt.nextTimerSeq = seq
	p := &promise{taskID: c.taskID, dst: c.id, pureTimer: true, timerSeq: seq, timeoutDelay: delay}
	eventID, err := c.EmitSelf(timerFired{seq: seq}, delay)
	if err != nil {
		return err
	}
	p.timerEventID = eventID
	rt.byTimer[seq] = p

	sig := c.suspend(rt, c.taskID)
	if sig.aborted {
		panic(abortSignal{})
	}
	return nil
}

// suspend sends the yield signal for the current task and blocks on its
// resume channel until the runtime wakes it.
func (c *Context) suspend(rt *asyncRuntime, taskID uint64) resumeSignal {
	t := rt.tasks[taskID]
	t.yieldCh <- yieldSignal{finished: false}
	return <-t.resumeCh
}

// RecvResult is the outcome of an awaited Recv: either the matching event
// fired (TimedOut == false) or the timeout arm won (TimedOut == true, per
// spec §4.5's with_timeout combinator).
type RecvResult[T any] struct {
	Event    Event
	Data     T
	TimedOut bool

	TimeoutSrc    Id
	HasTimeoutSrc bool
	TimeoutKey    uint64
	HasTimeoutKey bool
	TimeoutDelay  float64
}

// RecvBuilder accumulates the constraints of an event future before it is
// awaited: source component, correlation key, and optional timeout.
type RecvBuilder[T any] struct {
	ctx     *Context
	hasSrc  bool
	src     Id
	hasKey  bool
	key     uint64
	timeout *float64
}

// Recv starts building an event future for payloads of type T addressed to
// ctx's component (spec §4.5: "ctx.recv::<P>().from(src).with_key(k).await").
func Recv[T any](ctx *Context) *RecvBuilder[T] {
	return &RecvBuilder[T]{ctx: ctx}
}

func (b *RecvBuilder[T]) From(src Id) *RecvBuilder[T] {
	b.hasSrc, b.src = true, src
	return b
}

func (b *RecvBuilder[T]) WithKey(key uint64) *RecvBuilder[T] {
	b.hasKey, b.key = true, key
	return b
}

func (b *RecvBuilder[T]) WithTimeout(delay float64) *RecvBuilder[T] {
	b.timeout = &delay
	return b
}

// Await registers the promise and suspends the calling task until a
// matching event is delivered or, if WithTimeout was set, until the timeout
// fires first. Must be called from within a goroutine started by Spawn.
func (b *RecvBuilder[T]) Await() (RecvResult[T], error) {
	ctx := b.ctx
	rt := ctx.sim.async
	typ := reflect.TypeOf((*T)(nil)).Elem()

	if b.hasKey {
		if _, ok := rt.keyGetters[typ]; !ok {
			return RecvResult[T]{}, ErrMissingKeyGetter
		}
	}

	if b.timeout != nil && *b.timeout < 0 {
		return RecvResult[T]{}, ErrInvalidDelay
	}

	bucketKey := awaitBucketKey{dst: ctx.id, typ: typ}
	if b.hasSrc && b.hasKey {
		for _, p := range rt.byType[bucketKey] {
			if p.hasSrc && p.src == b.src && p.hasKey && p.key == b.key {
				return RecvResult[T]{}, ErrDuplicateAwait
			}
		}
	}

	p := &promise{
		taskID: ctx.taskID,
		dst:    ctx.id,
		hasSrc: b.hasSrc,
		src:    b.src,
		hasKey: b.hasKey,
		key:    b.key,
		typ:    typ,
	}
	rt.byType[bucketKey] = append(rt.byType[bucketKey], p)

	if b.timeout != nil {
		seq := rt.nextTimerSeq + 1
		rt.nextTimerSeq = seq
		p.timerSeq = seq
		p.timeoutDelay = *b.timeout
		eventID, err := ctx.EmitSelf(timerFired{seq: seq}, *b.timeout)
		if err != nil {
			return RecvResult[T]{}, err
		}
		p.timerEventID = eventID
		rt.byTimer[seq] = p
	}

	sig := ctx.suspend(rt, ctx.taskID)
	if sig.aborted {
		panic(abortSignal{})
	}

	if sig.timedOut {
		return RecvResult[T]{
			TimedOut:      true,
			TimeoutSrc:    sig.timeoutSrc,
			HasTimeoutSrc: sig.hasTimeoutSrc,
			TimeoutKey:    sig.timeoutKey,
			HasTimeoutKey: sig.hasTimeoutKey,
			TimeoutDelay:  sig.timeoutDelay,
		}, nil
	}
	return RecvResult[T]{Event: sig.event, Data: sig.payload.(T)}, nil
}
