/*
Package scheduler implements the Scheduler Interface and the HEFT family of
list-scheduling heuristics (spec §4.10): Static and Dynamic scheduler
contracts, plus HEFT, PEFT, Lookahead, DLS, and a trivial FCFS "Simple"
baseline.

Schedulers are pure: Start receives a read-only *dag.DAG and System view and
returns a list of Actions; only pkg/runner mutates DAG state (spec §9
Design Notes: "Scheduler/runner separation"). All four HEFT-family
variants share upward-rank-based prioritization and a greedy per-core
resource assignment, grounded on dslab-dag's schedulers/{heft,peft,dls,
lookahead}.rs.
*/
package scheduler
