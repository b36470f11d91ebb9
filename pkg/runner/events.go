package runner

// RunCompleted is emitted to the run's notify component once every task in
// the DAG has reached Done.
type RunCompleted struct {
	RunID    string
	Makespan float64
}

// RunFailed is emitted instead of RunCompleted when the scheduler could not
// produce a feasible assignment (spec §4.10: "the DAG does not partially
// execute") or an Action failed validation. It is also emitted, once per
// failing task, when a task's execution pipeline returns an error after the
// run has started.
type RunFailed struct {
	RunID  string
	Reason string
}
