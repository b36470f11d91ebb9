/*
Package kernel implements simkit's discrete-event simulation core: a
monotonic virtual clock, a min-heap event queue, a component registry, the
per-component Emission Context, and a cooperative async runtime that lets a
handler suspend on an event or timer future without blocking the dispatch
loop.

Everything in this package runs on a single logical thread. Async tasks are
backed by real goroutines, but the runtime hands off control with an
unbuffered channel rendezvous so that exactly one goroutine — the dispatch
loop or one suspended task being resumed — ever touches simulation state at
a time. See async.go for the handoff protocol.
*/
package kernel
