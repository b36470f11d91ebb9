package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Kernel metrics
	EventsDispatchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simkit_events_dispatched_total",
			Help: "Total number of events popped from the queue and delivered to a handler",
		},
	)

	EventsCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simkit_events_cancelled_total",
			Help: "Total number of events cancelled before dispatch",
		},
	)

	QueueLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "simkit_event_queue_length",
			Help: "Number of events currently pending in the event queue",
		},
	)

	SimulationTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "simkit_simulation_time_seconds",
			Help: "Current virtual simulation time",
		},
	)

	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "simkit_dispatch_duration_seconds",
			Help:    "Wall-clock time spent delivering a single event to its handler",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Async runtime metrics
	TasksSpawnedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simkit_async_tasks_spawned_total",
			Help: "Total number of async tasks spawned",
		},
	)

	PendingAwaitsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "simkit_async_pending_awaits",
			Help: "Number of outstanding await-registry promises",
		},
	)

	// Throughput-sharing metrics
	SharingModelActivities = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "simkit_sharing_model_activities",
			Help: "Number of active activities per throughput-sharing model instance",
		},
		[]string{"model"},
	)

	// Compute facade metrics
	ComputationsScheduledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simkit_computations_scheduled_total",
			Help: "Total number of computations successfully started on a resource",
		},
	)

	ComputationsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simkit_computations_failed_total",
			Help: "Total number of computation requests rejected for lack of resources",
		},
	)

	ResourceCoresInUse = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "simkit_resource_cores_in_use",
			Help: "Cores currently allocated on a resource",
		},
		[]string{"resource"},
	)

	// Scheduler metrics
	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "simkit_scheduling_latency_seconds",
			Help:    "Wall-clock time taken by a scheduler to produce its action list",
			Buckets: prometheus.DefBuckets,
		},
	)

	TasksScheduledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simkit_tasks_scheduled_total",
			Help: "Total number of DAG tasks scheduled, labelled by scheduler",
		},
		[]string{"scheduler"},
	)

	SchedulingFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simkit_scheduling_failures_total",
			Help: "Total number of RunFailed reports emitted by the DAG runner",
		},
		[]string{"scheduler"},
	)

	// DAG runner metrics
	DAGMakespan = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "simkit_dag_makespan_seconds",
			Help:    "Simulated makespan of completed DAG runs",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	DataTransfersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simkit_data_transfers_total",
			Help: "Total number of data transfers initiated by the network facade",
		},
	)
)

func init() {
	prometheus.MustRegister(
		EventsDispatchedTotal,
		EventsCancelledTotal,
		QueueLength,
		SimulationTime,
		DispatchDuration,
		TasksSpawnedTotal,
		PendingAwaitsGauge,
		SharingModelActivities,
		ComputationsScheduledTotal,
		ComputationsFailedTotal,
		ResourceCoresInUse,
		SchedulingLatency,
		TasksScheduledTotal,
		SchedulingFailuresTotal,
		DAGMakespan,
		DataTransfersTotal,
	)
}

// Handler returns the Prometheus HTTP handler for scraping, to be mounted
// by whatever embeds simkit; the core never listens on a socket itself.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing wall-clock duration of simulator-host operations.
// It measures real time, never virtual simulation time.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
