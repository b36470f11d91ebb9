package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/dslab-go/simkit/pkg/metrics"
)

func TestTimerDurationAdvancesWithElapsedTime(t *testing.T) {
	timer := metrics.NewTimer()
	time.Sleep(20 * time.Millisecond)

	d := timer.Duration()
	require.GreaterOrEqual(t, d, 20*time.Millisecond)
}

func TestTimerObserveDurationRecordsToHistogram(t *testing.T) {
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "test_timer_observe_duration_seconds",
	})

	timer := metrics.NewTimer()
	time.Sleep(10 * time.Millisecond)
	timer.ObserveDuration(histogram)

	var m dto.Metric
	require.NoError(t, histogram.Write(&m))
	require.EqualValues(t, 1, m.GetHistogram().GetSampleCount())
	require.Greater(t, m.GetHistogram().GetSampleSum(), 0.0)
}

func TestCollectorRecordSchedulingLatencyObservesSchedulingLatency(t *testing.T) {
	before := sampleCount(t, metrics.SchedulingLatency)

	timer := metrics.NewTimer()
	metrics.NewCollector(true).RecordSchedulingLatency(timer)

	after := sampleCount(t, metrics.SchedulingLatency)
	require.Equal(t, before+1, after)
}

func TestCollectorRecordSchedulingLatencyNoopWhenDisabled(t *testing.T) {
	before := sampleCount(t, metrics.SchedulingLatency)

	timer := metrics.NewTimer()
	metrics.NewCollector(false).RecordSchedulingLatency(timer)

	after := sampleCount(t, metrics.SchedulingLatency)
	require.Equal(t, before, after)
}

func sampleCount(t *testing.T, histogram prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, histogram.Write(&m))
	return m.GetHistogram().GetSampleCount()
}
