package kernel

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/dslab-go/simkit/pkg/log"
	"github.com/dslab-go/simkit/pkg/metrics"
)

// Simulation owns the event queue, component registry, async runtime, and
// PRNG for one simulation run. It is a value the driver program creates and
// holds; there is no global mutable state (spec §9 Design Notes).
type Simulation struct {
	queue    *eventQueue
	registry *registry
	async    *asyncRuntime
	rng      *prng

	now float64

	metrics *metrics.Collector
	logger  zerolog.Logger
}

// Option configures a Simulation at construction time.
type Option func(*Simulation)

// WithMetrics attaches a metrics collector; pass metrics.NewCollector(true)
// to record dispatch/async counters, or omit this option to run with
// metrics disabled.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Simulation) { s.metrics = c }
}

// New creates a simulation seeded for reproducible random draws.
func New(seed uint64, opts ...Option) *Simulation {
	s := &Simulation{
		queue:   newEventQueue(),
		rng:     newPRNG(seed),
		metrics: metrics.NewCollector(false),
		logger:  log.WithComponent("kernel"),
	}
	s.queue.onDiscard = func() { s.metrics.RecordCancel() }
	s.registry = newRegistry()
	s.async = newAsyncRuntime(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateContext reserves name and a dense id for a component-to-be and
// returns its Emission Context, without attaching a handler yet. This
// two-phase registration lets the handler's constructor receive its own
// context (and therefore its own id) before it is wired into dispatch.
func (s *Simulation) CreateContext(name string) (*Context, error) {
	id, err := s.registry.reserve(name)
	if err != nil {
		return nil, err
	}
	return &Context{sim: s, id: id}, nil
}

// AddHandler attaches h to the component previously reserved by name.
func (s *Simulation) AddHandler(name string, h Handler) error {
	_, err := s.registry.attach(name, h)
	return err
}

// Register is a convenience for the common case where the handler does not
// need its own id before construction: it reserves name, attaches h, and
// returns the resulting context in one call.
func (s *Simulation) Register(name string, h Handler) (*Context, error) {
	ctx, err := s.CreateContext(name)
	if err != nil {
		return nil, err
	}
	if err := s.AddHandler(name, h); err != nil {
		return nil, err
	}
	return ctx, nil
}

// RemoveComponent simulates a crash: subsequent events addressed to this
// component are discarded, its pending self-sourced events are purged, and
// all of its outstanding promises are dropped and its suspended tasks
// cleanly unwound (spec §4.2, §4.5 contract 4, §5 Cancellation).
func (s *Simulation) RemoveComponent(name string) error {
	id, ok := s.registry.remove(name)
	if !ok {
		return ErrUnknownComponent
	}
	s.queue.purgeSrc(id)
	s.async.dropComponentPromises(id)
	s.async.abortComponentTasks(id)
	s.logger.Warn().Str("component", name).Float64("time", s.now).Msg("component removed")
	return nil
}

// LookupID returns the id reserved for name, if any.
func (s *Simulation) LookupID(name string) (Id, bool) { return s.registry.lookupID(name) }

// LookupName returns the name reserved for id, if any.
func (s *Simulation) LookupName(id Id) (string, bool) { return s.registry.lookupName(id) }

// Time returns the current virtual simulation time: the timestamp of the
// last delivered event, or 0 before the first step.
func (s *Simulation) Time() float64 { return s.now }

// RegisterKeyGetter installs the extraction function used to pull a
// correlation key out of payloads of type T for key-constrained awaits.
func RegisterKeyGetter[T any](s *Simulation, fn func(T) uint64) {
	registerKeyGetter(s.async, fn)
}

// Step executes one iteration of the dispatcher (spec §4.4): pop the next
// live event, advance the clock to its time, and either let the async
// runtime consume it or deliver it to its destination's handler. Returns
// false iff the queue held no live events.
func (s *Simulation) Step() bool {
	e, ok := s.queue.popNext()
	if !ok {
		return false
	}
	s.now = e.Time

	start := time.Now()
	s.deliver(e)
	s.metrics.RecordDispatch(time.Since(start).Seconds(), s.queueLen(), s.now)

	return true
}

func (s *Simulation) queueLen() int { return len(s.queue.h) }

func (s *Simulation) deliver(e Event) {
	if s.async.tryConsumeTimer(e) {
		return
	}
	if s.async.tryConsumeEvent(e) {
		return
	}
	h, ok := s.registry.handler(e.Dst)
	if !ok {
		return // absent handler (e.g. crashed node): discard, per spec §4.4 step 5
	}
	h.OnEvent(e)
}

// Steps runs up to n dispatch steps, stopping early if the queue empties.
// Returns the number of events actually dispatched.
func (s *Simulation) Steps(n int) int {
	i := 0
	for ; i < n; i++ {
		if !s.Step() {
			break
		}
	}
	return i
}

// StepUntilNoEvents drains the queue completely.
func (s *Simulation) StepUntilNoEvents() {
	for s.Step() {
	}
}

// StepForDuration dispatches events until the queue's next event would fall
// strictly after now()+d, then stops without advancing the clock further.
func (s *Simulation) StepForDuration(d float64) {
	target := s.now + d
	s.StepUntilTime(target)
}

// StepUntilTime dispatches events until the queue's next event would fall
// strictly after t, then stops. The clock never advances past the last
// event actually delivered (spec §4.4: "there is no internal idle").
func (s *Simulation) StepUntilTime(t float64) {
	for {
		next, ok := s.queue.peekTime()
		if !ok || next > t {
			return
		}
		if !s.Step() {
			return
		}
	}
}
