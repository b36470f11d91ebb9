package metrics

// Collector is a thin synchronous wrapper around the package-level
// Prometheus metrics. Unlike a typical background poller, it is driven
// directly by the kernel's dispatch loop: the simulation is single-threaded
// and deterministic, so metrics updates happen inline with each step
// rather than on a ticker racing the event loop.
type Collector struct {
	enabled bool
}

// NewCollector creates a metrics collector. Passing enabled=false makes
// every method a no-op, which keeps metrics entirely off the hot path
// for callers that never scrape them.
func NewCollector(enabled bool) *Collector {
	return &Collector{enabled: enabled}
}

// RecordDispatch is called by the dispatcher after delivering one event.
func (c *Collector) RecordDispatch(dispatchSeconds float64, queueLen int, simTime float64) {
	if !c.enabled {
		return
	}
	EventsDispatchedTotal.Inc()
	DispatchDuration.Observe(dispatchSeconds)
	QueueLength.Set(float64(queueLen))
	SimulationTime.Set(simTime)
}

// RecordCancel is called whenever an event is cancelled or discarded unfired.
func (c *Collector) RecordCancel() {
	if !c.enabled {
		return
	}
	EventsCancelledTotal.Inc()
}

// RecordTaskSpawned is called when the async runtime spawns a new task.
func (c *Collector) RecordTaskSpawned(pendingAwaits int) {
	if !c.enabled {
		return
	}
	TasksSpawnedTotal.Inc()
	PendingAwaitsGauge.Set(float64(pendingAwaits))
}

// RecordSharingModelSize publishes the current activity count of a named
// throughput-sharing model instance (e.g. a network link or a disk).
func (c *Collector) RecordSharingModelSize(model string, activities int) {
	if !c.enabled {
		return
	}
	SharingModelActivities.WithLabelValues(model).Set(float64(activities))
}

// RecordComputationStarted is called by the compute facade when a
// CompRequest is accepted onto a resource.
func (c *Collector) RecordComputationStarted(resource string, coresInUse int) {
	if !c.enabled {
		return
	}
	ComputationsScheduledTotal.Inc()
	ResourceCoresInUse.WithLabelValues(resource).Set(float64(coresInUse))
}

// RecordComputationFailed is called when a CompRequest is rejected for lack
// of resources.
func (c *Collector) RecordComputationFailed() {
	if !c.enabled {
		return
	}
	ComputationsFailedTotal.Inc()
}

// RecordComputationFinished updates the cores-in-use gauge after a running
// computation releases its resources.
func (c *Collector) RecordComputationFinished(resource string, coresInUse int) {
	if !c.enabled {
		return
	}
	ResourceCoresInUse.WithLabelValues(resource).Set(float64(coresInUse))
}

// RecordScheduling is called by the runner after a scheduler has produced
// its action list.
func (c *Collector) RecordScheduling(schedulerName string, tasksScheduled int) {
	if !c.enabled {
		return
	}
	TasksScheduledTotal.WithLabelValues(schedulerName).Add(float64(tasksScheduled))
}

// RecordSchedulingLatency observes the wall-clock time a scheduler spent
// producing its action list, measured by a Timer started before the call
// to Static.Start.
func (c *Collector) RecordSchedulingLatency(t *Timer) {
	if !c.enabled {
		return
	}
	t.ObserveDuration(SchedulingLatency)
}

// RecordSchedulingFailure is called by the runner whenever it reports
// RunFailed: the scheduler found no feasible assignment, an Action failed
// validation, or a task's execution pipeline returned an error.
func (c *Collector) RecordSchedulingFailure(schedulerName string) {
	if !c.enabled {
		return
	}
	SchedulingFailuresTotal.WithLabelValues(schedulerName).Inc()
}

// RecordMakespan records the simulated makespan of a completed DAG run.
func (c *Collector) RecordMakespan(seconds float64) {
	if !c.enabled {
		return
	}
	DAGMakespan.Observe(seconds)
}

// RecordDataTransfer is called each time the network facade starts a
// bandwidth-limited transfer.
func (c *Collector) RecordDataTransfer() {
	if !c.enabled {
		return
	}
	DataTransfersTotal.Inc()
}
