package compute

import (
	"github.com/rs/zerolog"

	"github.com/dslab-go/simkit/pkg/kernel"
	"github.com/dslab-go/simkit/pkg/log"
	"github.com/dslab-go/simkit/pkg/metrics"
)

type runningComputation struct {
	cores     int
	memory    float64
	requester kernel.Id
}

type allocation struct {
	cores     int
	memory    float64
	requester kernel.Id
}

// Compute is a multicore resource: cores_total/memory_total split between
// running computations and standing allocations (spec §4.8).
type Compute struct {
	ctx *kernel.Context

	speed float64 // flops/s, before cores-dependency speedup

	coresTotal      int
	memoryTotal     float64
	coresAvailable  int
	memoryAvailable float64

	running     map[uint64]runningComputation
	allocations map[uint64]allocation

	metrics *metrics.Collector
	logger  zerolog.Logger
}

// New constructs a Compute resource bound to ctx (reserved via
// Simulation.CreateContext before the handler is attached). speed is in
// flops/s.
func New(ctx *kernel.Context, speed float64, cores int, memory float64, opts ...Option) *Compute {
	c := &Compute{
		ctx:             ctx,
		speed:           speed,
		coresTotal:      cores,
		memoryTotal:     memory,
		coresAvailable:  cores,
		memoryAvailable: memory,
		running:         make(map[uint64]runningComputation),
		allocations:     make(map[uint64]allocation),
		metrics:         metrics.NewCollector(false),
		logger:          log.WithResourceID(ctx.Name()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures a Compute resource at construction time.
type Option func(*Compute)

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Compute) { c.metrics = m }
}

func (c *Compute) CoresAvailable() int      { return c.coresAvailable }
func (c *Compute) MemoryAvailable() float64 { return c.memoryAvailable }

// OnEvent implements kernel.Handler.
func (c *Compute) OnEvent(e kernel.Event) {
	switch p := e.Payload.(type) {
	case CompRequest:
		c.onCompRequest(p)
	case finishTimer:
		c.onFinish(p)
	case AllocationRequest:
		c.onAllocationRequest(p)
	case DeallocationRequest:
		c.onDeallocationRequest(p)
	}
}

func (c *Compute) onCompRequest(p CompRequest) {
	if c.coresAvailable < p.MinCores || c.memoryAvailable < p.Memory {
		c.metrics.RecordComputationFailed()
		c.logger.Warn().
			Uint64("id", p.ID).
			Int("min_cores", p.MinCores).
			Int("cores_available", c.coresAvailable).
			Float64("memory_available", c.memoryAvailable).
			Msg("computation request rejected: not enough resources")
		_, _ = c.ctx.EmitNow(CompFailed{
			ID: p.ID,
			Reason: FailReason{
				Kind:            NotEnoughResources,
				AvailableCores:  c.coresAvailable,
				AvailableMemory: c.memoryAvailable,
			},
		}, p.Requester)
		return
	}

	cores := p.MaxCores
	if cores > c.coresAvailable {
		cores = c.coresAvailable
	}
	if cores < p.MinCores {
		cores = p.MinCores
	}
	memory := p.Memory

	c.coresAvailable -= cores
	c.memoryAvailable -= memory
	c.running[p.ID] = runningComputation{cores: cores, memory: memory, requester: p.Requester}

	dep := p.CoresDependency
	if dep == nil {
		dep = Linear()
	}
	speedup := dep(cores)
	duration := p.Flops / (c.speed * speedup)

	_, _ = c.ctx.EmitNow(CompStarted{ID: p.ID, Cores: cores}, p.Requester)
	_, _ = c.ctx.EmitSelf(finishTimer{id: p.ID}, duration)
	c.metrics.RecordComputationStarted(c.ctx.Name(), c.coresTotal-c.coresAvailable)
	c.logger.Debug().Uint64("id", p.ID).Int("cores", cores).Float64("duration", duration).Msg("computation started")
}

func (c *Compute) onFinish(p finishTimer) {
	rc, ok := c.running[p.id]
	if !ok {
		return
	}
	delete(c.running, p.id)
	c.coresAvailable += rc.cores
	c.memoryAvailable += rc.memory
	_, _ = c.ctx.EmitNow(CompFinished{ID: p.id}, rc.requester)
	c.metrics.RecordComputationFinished(c.ctx.Name(), c.coresTotal-c.coresAvailable)
	c.logger.Debug().Uint64("id", p.id).Msg("computation finished")
}

func (c *Compute) onAllocationRequest(p AllocationRequest) {
	if c.coresAvailable < p.Cores || c.memoryAvailable < p.Memory {
		c.logger.Warn().
			Uint64("id", p.ID).
			Int("cores_requested", p.Cores).
			Int("cores_available", c.coresAvailable).
			Msg("allocation request rejected: not enough resources")
		_, _ = c.ctx.EmitNow(AllocationFailed{
			ID: p.ID,
			Reason: FailReason{
				Kind:            NotEnoughResources,
				AvailableCores:  c.coresAvailable,
				AvailableMemory: c.memoryAvailable,
			},
		}, p.Requester)
		return
	}
	c.coresAvailable -= p.Cores
	c.memoryAvailable -= p.Memory
	c.allocations[p.ID] = allocation{cores: p.Cores, memory: p.Memory, requester: p.Requester}
	_, _ = c.ctx.EmitNow(AllocationSuccess{ID: p.ID}, p.Requester)
}

func (c *Compute) onDeallocationRequest(p DeallocationRequest) {
	a, ok := c.allocations[p.ID]
	if !ok {
		c.logger.Warn().Uint64("id", p.ID).Msg("deallocation request rejected: unknown allocation id")
		_, _ = c.ctx.EmitNow(DeallocationFailed{ID: p.ID, Reason: "unknown allocation id"}, p.Requester)
		return
	}
	delete(c.allocations, p.ID)
	c.coresAvailable += a.cores
	c.memoryAvailable += a.memory
	_, _ = c.ctx.EmitNow(DeallocationSuccess{ID: p.ID}, p.Requester)
}
