package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dslab-go/simkit/pkg/kernel"
)

type recorder struct {
	events []kernel.Event
}

func (r *recorder) OnEvent(e kernel.Event) {
	r.events = append(r.events, e)
}

type pingPayload struct{ n int }

func TestMonotoneTimeAndFIFOTieBreak(t *testing.T) {
	sim := kernel.New(1)
	rec := &recorder{}
	ctx, err := sim.Register("r", rec)
	require.NoError(t, err)

	_, err = ctx.Emit(pingPayload{1}, ctx.ID(), 5)
	require.NoError(t, err)
	_, err = ctx.Emit(pingPayload{2}, ctx.ID(), 1)
	require.NoError(t, err)
	_, err = ctx.Emit(pingPayload{3}, ctx.ID(), 1) // same time as #2, emitted after it
	require.NoError(t, err)

	sim.StepUntilNoEvents()

	require.Len(t, rec.events, 3)
	require.Equal(t, 2, rec.events[0].Payload.(pingPayload).n)
	require.Equal(t, 3, rec.events[1].Payload.(pingPayload).n)
	require.Equal(t, 1, rec.events[2].Payload.(pingPayload).n)

	for i := 1; i < len(rec.events); i++ {
		require.LessOrEqual(t, rec.events[i-1].Time, rec.events[i].Time)
	}
}

func TestDuplicateNameRejected(t *testing.T) {
	sim := kernel.New(1)
	_, err := sim.Register("dup", &recorder{})
	require.NoError(t, err)
	_, err = sim.Register("dup", &recorder{})
	require.ErrorIs(t, err, kernel.ErrDuplicateName)
}

func TestInvalidDelayRejected(t *testing.T) {
	sim := kernel.New(1)
	ctx, err := sim.Register("a", &recorder{})
	require.NoError(t, err)
	_, err = ctx.Emit(pingPayload{}, ctx.ID(), -1)
	require.ErrorIs(t, err, kernel.ErrInvalidDelay)
}

func TestCancelEventIsSkipped(t *testing.T) {
	sim := kernel.New(1)
	rec := &recorder{}
	ctx, err := sim.Register("a", rec)
	require.NoError(t, err)

	id, err := ctx.Emit(pingPayload{1}, ctx.ID(), 5)
	require.NoError(t, err)
	ctx.CancelEvent(id)

	sim.StepUntilNoEvents()
	require.Empty(t, rec.events)
	require.Equal(t, 0.0, sim.Time())
}

// message is the request/response payload used by the await-with-timeout
// scenario (spec §8 scenario 6).
type message struct{ requestID uint64 }

type waiterHandler struct {
	result kernel.RecvResult[message]
	done   chan struct{}
}

func (w *waiterHandler) OnEvent(kernel.Event) {}

func TestScenario6AwaitWithTimeout(t *testing.T) {
	sim := kernel.New(1)
	kernel.RegisterKeyGetter[message](sim, func(m message) uint64 { return m.requestID })

	w := &waiterHandler{done: make(chan struct{}, 1)}
	waiterCtx, err := sim.Register("C", w)
	require.NoError(t, err)

	rCtx, err := sim.Register("R", &recorder{})
	require.NoError(t, err)

	// R emits Message{request_id=1} at absolute t=50.
	_, err = rCtx.Emit(message{requestID: 1}, waiterCtx.ID(), 50)
	require.NoError(t, err)

	waiterCtx.Spawn(func(c *kernel.Context) {
		first, err := kernel.Recv[message](c).From(rCtx.ID()).WithKey(1).WithTimeout(10).Await()
		if err != nil {
			return
		}
		if !first.TimedOut {
			return
		}
		second, err := kernel.Recv[message](c).From(rCtx.ID()).WithKey(1).WithTimeout(100).Await()
		if err == nil {
			w.result = second
		}
		w.done <- struct{}{}
	})

	sim.StepUntilNoEvents()
	<-w.done

	require.False(t, w.result.TimedOut)
	require.Equal(t, uint64(1), w.result.Data.requestID)
	require.Equal(t, 50.0, sim.Time())
}

type selfCrasher struct {
	fired bool
}

func (s *selfCrasher) OnEvent(kernel.Event) { s.fired = true }

type remover struct {
	sim    *kernel.Simulation
	target string
}

func (r *remover) OnEvent(kernel.Event) {
	_ = r.sim.RemoveComponent(r.target)
}

func TestScenario7CrashCancelsPending(t *testing.T) {
	sim := kernel.New(1)

	n := &selfCrasher{}
	nCtx, err := sim.Register("N", n)
	require.NoError(t, err)
	_, err = nCtx.EmitSelf(pingPayload{}, 5)
	require.NoError(t, err)

	ctl := &remover{sim: sim, target: "N"}
	ctlCtx, err := sim.Register("ctl", ctl)
	require.NoError(t, err)
	_, err = ctlCtx.EmitSelf(pingPayload{}, 2)
	require.NoError(t, err)

	sim.StepUntilNoEvents()

	require.False(t, n.fired)
	require.Equal(t, 2.0, sim.Time())
}
