/*
Package runner implements the DAG Runner (spec §4.11): the only component
allowed to mutate pkg/dag state while a simulation runs. It drives a
scheduler's Actions to completion by reserving resources, moving data
between producer and consumer resources according to a DataTransferMode,
and requesting computations through pkg/compute, recording every decision
to an optional pkg/trace.Log.

Each task's execution is one spawned coroutine (allocate -> transfer inputs
-> release the reservation -> compute), following the kernel's async/await model rather
than a hand-rolled callback state machine: this mirrors how pkg/kernel's
own async runtime is meant to be used (spec §5 "async tasks run until they
suspend"), and keeps the interleaving of concurrent per-resource FIFO
queues exactly as serial as the kernel guarantees.
*/
package runner
