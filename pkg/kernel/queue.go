package kernel

import "container/heap"

// eventQueue is a min-heap of pending events ordered by (Time, ID), with
// lazy-skip cancellation: Cancel just marks an id as dead; a cancelled
// event is discarded, not dispatched, the next time it reaches the top of
// the heap (spec §4.1).
type eventQueue struct {
	h         eventHeap
	cancelled map[uint64]struct{}
	nextID    uint64

	// onDiscard, if set, is called once for every cancelled event dropped
	// at pop time (spec §4.4 step 3), letting the owning Simulation
	// observe cancellations for metrics without the queue importing
	// pkg/metrics itself.
	onDiscard func()
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		h:         make(eventHeap, 0, 64),
		cancelled: make(map[uint64]struct{}),
		nextID:    1,
	}
}

// schedule enqueues an event at the given absolute time and returns it with
// a freshly assigned, simulation-unique id.
func (q *eventQueue) schedule(time float64, src, dst Id, payload any) Event {
	e := Event{
		ID:      q.nextID,
		Time:    time,
		Src:     src,
		Dst:     dst,
		Payload: payload,
	}
	q.nextID++
	heap.Push(&q.h, e)
	return e
}

// cancel marks id as dead. Cancelling an unknown or already-delivered id is
// a no-op, never an error (spec §4.1 Failure).
func (q *eventQueue) cancel(id uint64) {
	q.cancelled[id] = struct{}{}
}

// dropCancelledTop discards cancelled entries sitting at the heap's top so
// that peekTime/popNext observe only live events.
func (q *eventQueue) dropCancelledTop() {
	for len(q.h) > 0 {
		top := q.h[0]
		if _, dead := q.cancelled[top.ID]; !dead {
			return
		}
		heap.Pop(&q.h)
		delete(q.cancelled, top.ID)
		if q.onDiscard != nil {
			q.onDiscard()
		}
	}
}

// popNext removes and returns the minimum (Time, ID) live event. ok is
// false iff the queue holds no live events.
func (q *eventQueue) popNext() (Event, bool) {
	q.dropCancelledTop()
	if len(q.h) == 0 {
		return Event{}, false
	}
	e := heap.Pop(&q.h).(Event)
	return e, true
}

// peekTime reports the time of the next live event without removing it.
func (q *eventQueue) peekTime() (float64, bool) {
	q.dropCancelledTop()
	if len(q.h) == 0 {
		return 0, false
	}
	return q.h[0].Time, true
}

// purgeSrc discards every pending event whose Src equals id, used when a
// component is removed (spec §4.2, §5 Cancellation).
func (q *eventQueue) purgeSrc(id Id) {
	for _, e := range q.h {
		if e.Src == id {
			q.cancelled[e.ID] = struct{}{}
		}
	}
	q.dropCancelledTop()
}

type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].ID < h[j].ID
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
