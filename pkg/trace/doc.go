/*
Package trace records the DAG Runner's scheduling/execution decisions as an
append-only log (spec §4.11: "the runner emits a trace of every decision it
makes, for replay and visualization").

Broker is a minimal pub-sub fan-out for live subscribers (adapted from the
teacher's deleted pkg/events broadcaster), and Store optionally persists
every Record to a bbolt bucket so a trace survives past the process that
produced it, adapted from the teacher's pkg/storage/boltdb.go bucket idiom.
*/
package trace
