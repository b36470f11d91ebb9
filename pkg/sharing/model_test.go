package sharing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dslab-go/simkit/pkg/sharing"
)

func TestScenario1SingleActivity(t *testing.T) {
	m := sharing.New[string](sharing.FixedThroughput(10))
	require.NoError(t, m.Insert(0, 100, "X"))

	ct, item, ok := m.Peek()
	require.True(t, ok)
	require.Equal(t, "X", item)
	require.Equal(t, 10.0, ct)

	ct, item, ok = m.Pop()
	require.True(t, ok)
	require.Equal(t, "X", item)
	require.Equal(t, 10.0, ct)

	_, _, ok = m.Pop()
	require.False(t, ok)
}

func TestScenario2TwoEqualActivities(t *testing.T) {
	m := sharing.New[string](sharing.FixedThroughput(10))
	require.NoError(t, m.Insert(0, 100, "A"))
	require.NoError(t, m.Insert(0, 100, "B"))

	ct1, item1, ok := m.Pop()
	require.True(t, ok)
	require.Equal(t, "A", item1)
	require.Equal(t, 20.0, ct1)

	ct2, item2, ok := m.Pop()
	require.True(t, ok)
	require.Equal(t, "B", item2)
	require.Equal(t, 20.0, ct2)
}

func TestScenario3LateArrival(t *testing.T) {
	m := sharing.New[string](sharing.FixedThroughput(10))
	require.NoError(t, m.Insert(0, 100, "A"))
	require.NoError(t, m.Insert(5, 50, "B"))

	ctA, itemA, ok := m.Pop()
	require.True(t, ok)
	require.Equal(t, "A", itemA)
	require.InDelta(t, 15.0, ctA, 1e-9)

	ctB, itemB, ok := m.Pop()
	require.True(t, ok)
	require.Equal(t, "B", itemB)
	require.InDelta(t, 15.0, ctB, 1e-9)
}

func TestIdempotentPeek(t *testing.T) {
	m := sharing.New[int](sharing.FixedThroughput(4))
	require.NoError(t, m.Insert(0, 40, 1))
	require.NoError(t, m.Insert(0, 80, 2))

	ct1, item1, _ := m.Peek()
	ct2, item2, _ := m.Peek()
	require.Equal(t, ct1, ct2)
	require.Equal(t, item1, item2)
}

func TestNonMonotonicInsertRejected(t *testing.T) {
	m := sharing.New[int](sharing.FixedThroughput(1))
	require.NoError(t, m.Insert(5, 1, 1))
	err := m.Insert(2, 1, 2)
	require.ErrorIs(t, err, sharing.ErrNonMonotonicInsert)
}

func TestNonPositiveWeightRejected(t *testing.T) {
	m := sharing.New[int](sharing.FixedThroughput(1))
	err := m.Insert(0, 0, 1)
	require.ErrorIs(t, err, sharing.ErrNonPositiveWeight)
}

func TestDynamicThroughput(t *testing.T) {
	calls := map[int]bool{}
	fn := sharing.ThroughputFunc(func(n int) float64 {
		calls[n] = true
		return float64(n) * 10
	})
	m := sharing.New[int](fn)
	require.NoError(t, m.Insert(0, 10, 1))
	require.NoError(t, m.Insert(0, 10, 2))
	_, _, ok := m.Peek()
	require.True(t, ok)
	require.True(t, calls[2])
}
