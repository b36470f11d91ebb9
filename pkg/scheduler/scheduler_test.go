package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dslab-go/simkit/pkg/compute"
	"github.com/dslab-go/simkit/pkg/dag"
	"github.com/dslab-go/simkit/pkg/kernel"
	"github.com/dslab-go/simkit/pkg/network"
	"github.com/dslab-go/simkit/pkg/scheduler"
)

// diamond builds A -> {B, C} -> D with zero-size data items (so transfer
// time never factors into placement) on two resources of different speed:
// R0 (id 1) at speed 1, R1 (id 2) at speed 2, both single-core.
func diamond() (*dag.DAG, scheduler.System) {
	d := dag.New()
	a := d.AddTask("A", 10, 1, 1, 1, compute.Linear(), nil)
	b := d.AddTask("B", 20, 1, 1, 1, compute.Linear(), nil)
	c := d.AddTask("C", 20, 1, 1, 1, compute.Linear(), nil)
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
			{ID: kernel.Id(1), Speed: 1, CoresTotal: 1, MemoryTotal: 100},
			{ID: kernel.Id(2), Speed: 2, CoresTotal: 1, MemoryTotal: 100},
		},
		Topology: &network.FullMesh{DefaultBandwidth: 1000, DefaultLatency: 0},
	}
	return d, sys
}

func TestHeftDiamondSchedule(t *testing.T) {
	d, sys := diamond()
	actions, err := scheduler.Heft{}.Start(d, sys, scheduler.Config{})
	require.NoError(t, err)
	require.Len(t, actions, 4)

	byTask := make(map[int]scheduler.Action)
	for _, a := range actions {
		byTask[a.Task] = a
	}

	require.Equal(t, 1, byTask[0].Resource) // A on the faster resource R1
	require.Equal(t, 1, byTask[1].Resource) // B on R1
	require.Equal(t, 0, byTask[2].Resource) // C on R0 (R1 busy with B)
	require.Equal(t, 1, byTask[3].Resource) // D on R1

	require.InDelta(t, 5.0, byTask[0].ExpectedSpan, 1e-9)
	require.InDelta(t, 10.0, byTask[1].ExpectedSpan, 1e-9)
	require.InDelta(t, 20.0, byTask[2].ExpectedSpan, 1e-9)
	require.InDelta(t, 5.0, byTask[3].ExpectedSpan, 1e-9)
}

func TestSimpleDiamondScheduleIsFeasible(t *testing.T) {
	d, sys := diamond()
	actions, err := scheduler.Simple{}.Start(d, sys, scheduler.Config{})
	require.NoError(t, err)
	require.Len(t, actions, 4)
}

func TestDLSDiamondScheduleIsFeasible(t *testing.T) {
	d, sys := diamond()
	actions, err := scheduler.DLS{}.Start(d, sys, scheduler.Config{})
	require.NoError(t, err)
	require.Len(t, actions, 4)
}

func TestPeftDiamondScheduleIsFeasible(t *testing.T) {
	d, sys := diamond()
	actions, err := scheduler.Peft{}.Start(d, sys, scheduler.Config{})
	require.NoError(t, err)
	require.Len(t, actions, 4)
}

func TestLookaheadDiamondScheduleIsFeasible(t *testing.T) {
	d, sys := diamond()
	actions, err := scheduler.Lookahead{}.Start(d, sys, scheduler.Config{})
	require.NoError(t, err)
	require.Len(t, actions, 4)
}

func TestNoFeasibleAssignmentWhenMinCoresExceedsEveryResource(t *testing.T) {
	d := dag.New()
	d.AddTask("big", 10, 1, 4, 4, compute.Linear(), nil)
	d.Finalize()
	sys := scheduler.System{
		Resources: []scheduler.Resource{{ID: kernel.Id(1), Speed: 1, CoresTotal: 2, MemoryTotal: 100}},
		Topology:  &network.FullMesh{DefaultBandwidth: 10, DefaultLatency: 0},
	}
	_, err := scheduler.Heft{}.Start(d, sys, scheduler.Config{})
	require.ErrorIs(t, err, scheduler.ErrNoFeasibleAssignment)
}
