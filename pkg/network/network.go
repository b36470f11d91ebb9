package network

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dslab-go/simkit/pkg/kernel"
	"github.com/dslab-go/simkit/pkg/log"
	"github.com/dslab-go/simkit/pkg/metrics"
	"github.com/dslab-go/simkit/pkg/sharing"
)

// DataTransferCompleted is emitted to the Notify component when a transfer
// started with TransferData finishes.
type DataTransferCompleted struct {
	Data uint64
}

type linkKey struct {
	src kernel.Id
	dst kernel.Id
}

type transferActivity struct {
	dataID uint64
	notify kernel.Id
}

type linkState struct {
	model          *sharing.Model[transferActivity]
	pendingEventID uint64
	hasPending     bool
}

// linkCompletion is the internal self-event a link schedules for the
// activity its sharing model currently expects to finish first.
type linkCompletion struct {
	key linkKey
}

// Network is the Network Facade: a registered component that owns one
// sharing model per directed link and turns Topology bandwidth into
// bandwidth-limited transfer completion times (spec §4.7).
type Network struct {
	ctx   *kernel.Context
	topo  Topology
	links map[linkKey]*linkState

	nextDataID uint64

	metrics *metrics.Collector
	logger  zerolog.Logger
}

// New constructs a Network facade bound to ctx and backed by topo.
func New(ctx *kernel.Context, topo Topology, opts ...Option) *Network {
	n := &Network{
		ctx:     ctx,
		topo:    topo,
		links:   make(map[linkKey]*linkState),
		metrics: metrics.NewCollector(false),
		logger:  log.WithComponent("network"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type Option func(*Network)

func WithMetrics(m *metrics.Collector) Option {
	return func(n *Network) { n.metrics = m }
}

func (n *Network) Bandwidth(src, dst kernel.Id) float64 { return n.topo.Bandwidth(src, dst) }
func (n *Network) Latency(src, dst kernel.Id) float64   { return n.topo.Latency(src, dst) }

// SendEvent delivers payload to dst after the topology's latency for
// (src, dst), with no bandwidth reservation (spec §4.7).
func (n *Network) SendEvent(ctx *kernel.Context, payload any, src, dst kernel.Id) (uint64, error) {
	return ctx.Emit(payload, dst, n.topo.Latency(src, dst))
}

// SendMsg is SendEvent for an opaque payload; the kernel's own event id
// doubles as the msg_id the spec says a later delivery carries (the
// recipient reads it off kernel.Event.ID).
func (n *Network) SendMsg(ctx *kernel.Context, body any, src, dst kernel.Id) (uint64, error) {
	return n.SendEvent(ctx, body, src, dst)
}

// TransferData schedules a bandwidth-limited transfer on the (src, dst)
// link and returns a data id; completion emits DataTransferCompleted{Data}
// to notify. A zero-size transfer completes at the current time without
// entering the link's sharing model.
func (n *Network) TransferData(src, dst kernel.Id, size float64, notify kernel.Id) (uint64, error) {
	key := linkKey{src: src, dst: dst}
	ls, ok := n.links[key]
	if !ok {
		bw := n.topo.Bandwidth(src, dst)
		ls = &linkState{model: sharing.New[transferActivity](sharing.FixedThroughput(bw))}
		n.links[key] = ls
	}

	n.nextDataID++
	dataID := n.nextDataID
	if size == 0 {
		_, _ = n.ctx.EmitNow(DataTransferCompleted{Data: dataID}, notify)
		return dataID, nil
	}
	if err := ls.model.Insert(n.ctx.Time(), size, transferActivity{dataID: dataID, notify: notify}); err != nil {
		n.logger.Warn().Str("link", linkName(src, dst)).Err(err).Msg("transfer rejected")
		return 0, err
	}
	n.metrics.RecordDataTransfer()
	n.metrics.RecordSharingModelSize(linkName(src, dst), ls.model.Len())
	n.logger.Debug().Str("link", linkName(src, dst)).Uint64("data", dataID).Float64("size", size).Msg("transfer started")
	n.rederive(key, ls)
	return dataID, nil
}

func linkName(src, dst kernel.Id) string {
	return fmt.Sprintf("%d->%d", src, dst)
}

// rederive cancels the link's previously scheduled completion self-event,
// if any, and schedules a new one for the activity that will now finish
// first (spec §4.7: "pending completion events are re-derived").
func (n *Network) rederive(key linkKey, ls *linkState) {
	if ls.hasPending {
		n.ctx.CancelEvent(ls.pendingEventID)
		ls.hasPending = false
	}
	completion, _, ok := ls.model.Peek()
	if !ok {
		return
	}
	delay := completion - n.ctx.Time()
	if delay < 0 {
		delay = 0
	}
	id, err := n.ctx.EmitSelf(linkCompletion{key: key}, delay)
	if err != nil {
		return
	}
	ls.pendingEventID = id
	ls.hasPending = true
}

// OnEvent implements kernel.Handler.
func (n *Network) OnEvent(e kernel.Event) {
	lc, ok := e.Payload.(linkCompletion)
	if !ok {
		return
	}
	ls, ok := n.links[lc.key]
	if !ok {
		return
	}
	ls.hasPending = false
	_, item, popped := ls.model.Pop()
	if popped {
		n.metrics.RecordSharingModelSize(linkName(lc.key.src, lc.key.dst), ls.model.Len())
		n.logger.Debug().Str("link", linkName(lc.key.src, lc.key.dst)).Uint64("data", item.dataID).Msg("transfer completed")
		_, _ = n.ctx.EmitNow(DataTransferCompleted{Data: item.dataID}, item.notify)
	}
	n.rederive(lc.key, ls)
}
