package compute_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dslab-go/simkit/pkg/compute"
	"github.com/dslab-go/simkit/pkg/kernel"
)

type collector struct {
	started  []compute.CompStarted
	finished []compute.CompFinished
	failed   []compute.CompFailed
}

func (c *collector) OnEvent(e kernel.Event) {
	switch p := e.Payload.(type) {
	case compute.CompStarted:
		c.started = append(c.started, p)
	case compute.CompFinished:
		c.finished = append(c.finished, p)
	case compute.CompFailed:
		c.failed = append(c.failed, p)
	}
}

func TestCompRequestRunsToCompletion(t *testing.T) {
	sim := kernel.New(1)
	rCtx, err := sim.CreateContext("r0")
	require.NoError(t, err)
	res := compute.New(rCtx, 2.0, 4, 1024)
	require.NoError(t, sim.AddHandler("r0", res))

	col := &collector{}
	reqCtx, err := sim.Register("requester", col)
	require.NoError(t, err)

	_, err = reqCtx.EmitNow(compute.CompRequest{
		ID:              1,
		Flops:           20,
		Memory:          100,
		MinCores:        1,
		MaxCores:        2,
		CoresDependency: compute.Linear(),
		Requester:       reqCtx.ID(),
	}, rCtx.ID())
	require.NoError(t, err)

	sim.StepUntilNoEvents()

	require.Len(t, col.started, 1)
	require.Equal(t, 2, col.started[0].Cores)
	require.Len(t, col.finished, 1)
	require.Empty(t, col.failed)
	// flops/(speed*speedup) = 20/(2*2) = 5
	require.Equal(t, 5.0, sim.Time())
	require.Equal(t, 4, res.CoresAvailable())
}

func TestCompRequestFailsWithoutEnoughCores(t *testing.T) {
	sim := kernel.New(1)
	rCtx, err := sim.CreateContext("r0")
	require.NoError(t, err)
	res := compute.New(rCtx, 1.0, 2, 100)
	require.NoError(t, sim.AddHandler("r0", res))

	col := &collector{}
	reqCtx, err := sim.Register("requester", col)
	require.NoError(t, err)

	_, err = reqCtx.EmitNow(compute.CompRequest{
		ID:              1,
		Flops:           10,
		Memory:          10,
		MinCores:        4,
		MaxCores:        4,
		CoresDependency: compute.Linear(),
		Requester:       reqCtx.ID(),
	}, rCtx.ID())
	require.NoError(t, err)

	sim.StepUntilNoEvents()

	require.Empty(t, col.started)
	require.Len(t, col.failed, 1)
	require.Equal(t, compute.NotEnoughResources, col.failed[0].Reason.Kind)
}

func TestAllocationAndDeallocation(t *testing.T) {
	sim := kernel.New(1)
	rCtx, err := sim.CreateContext("r0")
	require.NoError(t, err)
	res := compute.New(rCtx, 1.0, 4, 100)
	require.NoError(t, sim.AddHandler("r0", res))

	var success []compute.AllocationSuccess
	var dealloc []compute.DeallocationSuccess
	handler := &allocWatcher{onSuccess: func(s compute.AllocationSuccess) { success = append(success, s) },
		onDealloc: func(d compute.DeallocationSuccess) { dealloc = append(dealloc, d) }}
	reqCtx, err := sim.Register("requester", handler)
	require.NoError(t, err)

	_, err = reqCtx.EmitNow(compute.AllocationRequest{ID: 7, Cores: 2, Memory: 50, Requester: reqCtx.ID()}, rCtx.ID())
	require.NoError(t, err)
	sim.StepUntilNoEvents()
	require.Len(t, success, 1)
	require.Equal(t, 2, res.CoresAvailable())

	_, err = reqCtx.EmitNow(compute.DeallocationRequest{ID: 7, Requester: reqCtx.ID()}, rCtx.ID())
	require.NoError(t, err)
	sim.StepUntilNoEvents()
	require.Len(t, dealloc, 1)
	require.Equal(t, 4, res.CoresAvailable())
}

type allocWatcher struct {
	onSuccess func(compute.AllocationSuccess)
	onDealloc func(compute.DeallocationSuccess)
}

func (a *allocWatcher) OnEvent(e kernel.Event) {
	switch p := e.Payload.(type) {
	case compute.AllocationSuccess:
		a.onSuccess(p)
	case compute.DeallocationSuccess:
		a.onDealloc(p)
	}
}
