/*
Package metrics exposes simkit's internal counters and histograms as
Prometheus collectors.

All metrics describe the wall-clock cost of running the simulator
(dispatch latency, scheduling latency) or a snapshot of its virtual
state (queue length, simulated time, active activities) — never the
thing being simulated. Embedders who want to scrape these mount
Handler() on their own HTTP mux; simkit itself never binds a socket.

Collector is the only type application code touches directly: it wraps
the package-level metrics so that call sites in the kernel and facades
read as plain method calls that return immediately when metrics are
disabled.
*/
package metrics
