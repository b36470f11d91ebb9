package runner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dslab-go/simkit/pkg/compute"
	"github.com/dslab-go/simkit/pkg/dag"
	"github.com/dslab-go/simkit/pkg/kernel"
	"github.com/dslab-go/simkit/pkg/network"
	"github.com/dslab-go/simkit/pkg/runner"
	"github.com/dslab-go/simkit/pkg/scheduler"
)

type notifyHandler struct {
	completed *runner.RunCompleted
	failed    *runner.RunFailed
}

func (h *notifyHandler) OnEvent(e kernel.Event) {
	switch p := e.Payload.(type) {
	case runner.RunCompleted:
		h.completed = &p
	case runner.RunFailed:
		h.failed = &p
	}
}

func TestRunnerTwoTaskChainOnSingleResource(t *testing.T) {
	sim := kernel.New(1)

	resCtx, err := sim.CreateContext("res0")
	require.NoError(t, err)
	comp := compute.New(resCtx, 1, 2, 10)
	require.NoError(t, sim.AddHandler("res0", comp))

	netCtx, err := sim.CreateContext("net")
	require.NoError(t, err)
	topo := &network.FullMesh{DefaultBandwidth: 10, DefaultLatency: 0}
	net := network.New(netCtx, topo)
	require.NoError(t, sim.AddHandler("net", net))

	d := dag.New()
	a := d.AddTask("A", 5, 1, 1, 1, compute.Linear(), nil)
	b := d.AddTask("B", 5, 1, 1, 1, compute.Linear(), nil)
	item := d.AddDataItem("a-out", 0)
	d.SetProducer(item, a)
	d.AddConsumer(item, b)
	d.Finalize()

	sys := scheduler.System{
		Resources: []scheduler.Resource{{ID: resCtx.ID(), Speed: 1, CoresTotal: 2, MemoryTotal: 10}},
		Topology:  topo,
	}

	runnerCtx, err := sim.CreateContext("runner")
	require.NoError(t, err)
	r := runner.New(sim, runnerCtx, d, sys, scheduler.Config{DataTransferMode: scheduler.Direct}, []*compute.Compute{comp}, net, scheduler.Simple{}, nil)
	require.NoError(t, sim.AddHandler("runner", r))

	h := &notifyHandler{}
	notifyCtx, err := sim.Register("notify", h)
	require.NoError(t, err)

	require.NoError(t, r.Start(notifyCtx.ID()))
	sim.StepUntilNoEvents()

	require.Nil(t, h.failed)
	require.NotNil(t, h.completed)
	require.Equal(t, 10.0, h.completed.Makespan)
	require.Equal(t, dag.Done, d.Task(a).State)
	require.Equal(t, dag.Done, d.Task(b).State)
}

func TestRunnerDiamondAcrossTwoResourcesWithTransfers(t *testing.T) {
	sim := kernel.New(1)

	r0Ctx, err := sim.CreateContext("res0")
	require.NoError(t, err)
	comp0 := compute.New(r0Ctx, 1, 1, 10)
	require.NoError(t, sim.AddHandler("res0", comp0))

	r1Ctx, err := sim.CreateContext("res1")
	require.NoError(t, err)
	comp1 := compute.New(r1Ctx, 1, 1, 10)
	require.NoError(t, sim.AddHandler("res1", comp1))

	netCtx, err := sim.CreateContext("net")
	require.NoError(t, err)
	topo := &network.FullMesh{DefaultBandwidth: 10, DefaultLatency: 0}
	net := network.New(netCtx, topo)
	require.NoError(t, sim.AddHandler("net", net))

	d := dag.New()
	a := d.AddTask("A", 10, 1, 1, 1, compute.Linear(), nil)
	b := d.AddTask("B", 10, 1, 1, 1, compute.Linear(), nil)
	c := d.AddTask("C", 10, 1, 1, 1, compute.Linear(), nil)
	e := d.AddTask("D", 10, 1, 1, 1, compute.Linear(), nil)
	ab := d.AddDataItem("a-b", 0)
	d.SetProducer(ab, a)
	d.AddConsumer(ab, b)
	ac := d.AddDataItem("a-c", 0)
	d.SetProducer(ac, a)
	d.AddConsumer(ac, c)
	bd := d.AddDataItem("b-d", 0)
	d.SetProducer(bd, b)
	d.AddConsumer(bd, e)
	cd := d.AddDataItem("c-d", 0)
	d.SetProducer(cd, c)
	d.AddConsumer(cd, e)
	d.Finalize()

	sys := scheduler.System{
		Resources: []scheduler.Resource{
			{ID: r0Ctx.ID(), Speed: 1, CoresTotal: 1, MemoryTotal: 10},
			{ID: r1Ctx.ID(), Speed: 1, CoresTotal: 1, MemoryTotal: 10},
		},
		Topology: topo,
	}

	runnerCtx, err := sim.CreateContext("runner")
	require.NoError(t, err)
	r := runner.New(sim, runnerCtx, d, sys, scheduler.Config{DataTransferMode: scheduler.Direct}, []*compute.Compute{comp0, comp1}, net, scheduler.Heft{}, nil)
	require.NoError(t, sim.AddHandler("runner", r))

	h := &notifyHandler{}
	notifyCtx, err := sim.Register("notify", h)
	require.NoError(t, err)

	require.NoError(t, r.Start(notifyCtx.ID()))
	sim.StepUntilNoEvents()

	require.Nil(t, h.failed)
	require.NotNil(t, h.completed)
	for _, task := range []int{a, b, c, e} {
		require.Equal(t, dag.Done, d.Task(task).State)
	}
}
