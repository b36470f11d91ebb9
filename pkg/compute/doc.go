/*
Package compute implements the Compute Facade (spec §4.8): a multicore
resource that runs flops-bound computations under a core-count-dependent
speedup function, and separately tracks standing core/memory reservations
requested without an attached computation.

Compute is a kernel.Handler: requests and results both travel as ordinary
events, grounded on dslab-compute's multicore.rs actor.
*/
package compute
