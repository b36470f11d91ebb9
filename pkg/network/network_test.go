package network_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dslab-go/simkit/pkg/kernel"
	"github.com/dslab-go/simkit/pkg/network"
)

type notifyHandler struct {
	completed []network.DataTransferCompleted
}

func (h *notifyHandler) OnEvent(e kernel.Event) {
	if p, ok := e.Payload.(network.DataTransferCompleted); ok {
		h.completed = append(h.completed, p)
	}
}

func TestTransferDataSingle(t *testing.T) {
	sim := kernel.New(1)
	topo := &network.FullMesh{DefaultBandwidth: 10, DefaultLatency: 0}
	netCtx, err := sim.CreateContext("net")
	require.NoError(t, err)
	n := network.New(netCtx, topo)
	require.NoError(t, sim.AddHandler("net", n))

	h := &notifyHandler{}
	notifyCtx, err := sim.Register("notify", h)
	require.NoError(t, err)

	a, err := sim.CreateContext("a")
	require.NoError(t, err)

	_, err = n.TransferData(a.ID(), notifyCtx.ID(), 100, notifyCtx.ID())
	require.NoError(t, err)

	sim.StepUntilNoEvents()

	require.Len(t, h.completed, 1)
	require.Equal(t, 10.0, sim.Time())
}

func TestTransferDataFairShare(t *testing.T) {
	sim := kernel.New(1)
	topo := &network.FullMesh{DefaultBandwidth: 10, DefaultLatency: 0}
	netCtx, err := sim.CreateContext("net")
	require.NoError(t, err)
	n := network.New(netCtx, topo)
	require.NoError(t, sim.AddHandler("net", n))

	h := &notifyHandler{}
	notifyCtx, err := sim.Register("notify", h)
	require.NoError(t, err)

	a, err := sim.CreateContext("a")
	require.NoError(t, err)

	_, err = n.TransferData(a.ID(), notifyCtx.ID(), 100, notifyCtx.ID())
	require.NoError(t, err)
	_, err = n.TransferData(a.ID(), notifyCtx.ID(), 100, notifyCtx.ID())
	require.NoError(t, err)

	sim.StepUntilNoEvents()

	require.Len(t, h.completed, 2)
	require.Equal(t, 20.0, sim.Time())
}

func TestSendEventUsesLatencyOnly(t *testing.T) {
	sim := kernel.New(1)
	topo := &network.FullMesh{DefaultBandwidth: 10, DefaultLatency: 3}
	netCtx, err := sim.CreateContext("net")
	require.NoError(t, err)
	n := network.New(netCtx, topo)
	require.NoError(t, sim.AddHandler("net", n))

	h := &notifyHandler{}
	dstCtx, err := sim.Register("dst", h)
	require.NoError(t, err)
	srcCtx, err := sim.Register("src", &notifyHandler{})
	require.NoError(t, err)

	_, err = n.SendEvent(srcCtx, "hello", srcCtx.ID(), dstCtx.ID())
	require.NoError(t, err)

	sim.StepUntilNoEvents()
	require.Equal(t, 3.0, sim.Time())
}
