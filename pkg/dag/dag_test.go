package dag_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dslab-go/simkit/pkg/compute"
	"github.com/dslab-go/simkit/pkg/dag"
)

func buildChain(t *testing.T) *dag.DAG {
	t.Helper()
	d := dag.New()
	a := d.AddTask("A", 10, 1, 1, 1, compute.Linear(), nil)
	b := d.AddTask("B", 10, 1, 1, 1, compute.Linear(), nil)
	item := d.AddDataItem("a-out", 50)
	d.SetProducer(item, a)
	d.AddConsumer(item, b)
	d.Finalize()
	require.Equal(t, dag.Ready, d.Task(a).State)
	require.Equal(t, dag.Pending, d.Task(b).State)
	return d
}

func TestTaskLifecycleNoRegression(t *testing.T) {
	d := buildChain(t)

	require.NoError(t, d.MarkRunnable(0))
	require.NoError(t, d.MarkRunning(0))
	ready, err := d.MarkDone(0)
	require.NoError(t, err)
	require.Equal(t, []int{1}, ready)
	require.Equal(t, dag.Ready, d.Task(1).State)
	require.True(t, d.DataItem(0).Ready)

	require.NoError(t, d.MarkRunnable(1))
	require.NoError(t, d.MarkRunning(1))
	_, err = d.MarkDone(1)
	require.NoError(t, err)
	require.Equal(t, dag.Done, d.Task(1).State)

	// Done is terminal; no transition can move it further.
	require.Error(t, d.MarkRunnable(1))
}

func TestScheduledPendingPath(t *testing.T) {
	d := buildChain(t)
	require.NoError(t, d.MarkScheduled(1))
	require.Equal(t, dag.Scheduled, d.Task(1).State)
	require.Error(t, d.MarkScheduled(1)) // already left Pending

	require.NoError(t, d.MarkRunnable(0))
	require.NoError(t, d.MarkRunning(0))
	_, err := d.MarkDone(0)
	require.NoError(t, err)

	require.Equal(t, 0, d.PendingInputCount(1))
	require.NoError(t, d.MarkRunnable(1))
	require.Equal(t, dag.Runnable, d.Task(1).State)
}
