package sharing

import (
	"container/heap"
	"errors"
)

// User-input violations (spec §7), surfaced synchronously.
var (
	ErrNonMonotonicInsert = errors.New("sharing: insert time precedes the last observed time")
	ErrNonPositiveWeight  = errors.New("sharing: weight must be > 0")
)

// ThroughputFunc gives the total capacity available to n concurrently
// active activities. FixedThroughput covers the common constant-capacity
// case; it may also be a dynamic, user-supplied function of n (spec §4.6
// "(b) dynamic C(n)"). A nil ThroughputFunc is not valid: the model calls
// it whenever at least one activity is active.
type ThroughputFunc func(n int) float64

// FixedThroughput returns a ThroughputFunc for a constant capacity C,
// spec §4.6 model (a).
func FixedThroughput(c float64) ThroughputFunc {
	return func(int) float64 { return c }
}

// factor is throughput_factor(n) = C(n)/n, the share one activity gets
// while n are active.
func (f ThroughputFunc) factor(n int) float64 {
	if n <= 0 {
		return 0
	}
	return f(n) / float64(n)
}

type entry[T any] struct {
	pos  float64
	seq  uint64 // insertion order, used only to break exact pos ties (spec scenario 2)
	item T
}

type activityHeap[T any] []entry[T]

func (h activityHeap[T]) Len() int { return len(h) }

func (h activityHeap[T]) Less(i, j int) bool {
	if h[i].pos != h[j].pos {
		return h[i].pos < h[j].pos
	}
	return h[i].seq < h[j].seq
}

func (h activityHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *activityHeap[T]) Push(x any) { *h = append(*h, x.(entry[T])) }

func (h *activityHeap[T]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Model is a fair throughput-sharing model over activities of type T
// (spec §4.6). The zero value is not usable; construct with New.
type Model[T any] struct {
	throughput ThroughputFunc
	h          activityHeap[T]
	n          int // count of active activities
	eNow       float64
	tNow       float64
	nextSeq    uint64
}

// New creates an empty model that shares throughput according to fn.
func New[T any](fn ThroughputFunc) *Model[T] {
	return &Model[T]{throughput: fn}
}

// Len reports the number of currently active activities.
func (m *Model[T]) Len() int { return m.n }

// Insert adds an activity with the given remaining work at time t, which
// must be >= the time of the last Insert/Pop observed by this model.
func (m *Model[T]) Insert(t float64, weight float64, item T) error {
	if t < m.tNow {
		return ErrNonMonotonicInsert
	}
	if weight <= 0 {
		return ErrNonPositiveWeight
	}
	if m.n > 0 {
		m.eNow += (t - m.tNow) * m.throughput.factor(m.n)
	}
	m.tNow = t
	m.n++
	pos := m.eNow + weight
	m.nextSeq++
	heap.Push(&m.h, entry[T]{pos: pos, seq: m.nextSeq, item: item})
	return nil
}

// Peek returns the completion time and item of the activity that would
// finish first under the current share, without mutating the model.
func (m *Model[T]) Peek() (completionTime float64, item T, ok bool) {
	if len(m.h) == 0 {
		return 0, item, false
	}
	top := m.h[0]
	factor := m.throughput.factor(m.n)
	if factor <= 0 {
		return m.tNow, top.item, true
	}
	completionTime = m.tNow + (top.pos-m.eNow)/factor
	return completionTime, top.item, true
}

// Pop removes and returns the activity that finishes first under the
// current share, advancing the model's internal clock to its completion
// time.
func (m *Model[T]) Pop() (completionTime float64, item T, ok bool) {
	completionTime, item, ok = m.Peek()
	if !ok {
		return 0, item, false
	}
	top := heap.Pop(&m.h).(entry[T])
	m.eNow = top.pos
	m.tNow = completionTime
	m.n--
	return completionTime, item, true
}
