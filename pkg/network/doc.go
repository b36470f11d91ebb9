/*
Package network implements the Network Facade (spec §4.7): point-to-point
event/message delivery with latency only, plus bandwidth-limited data
transfers backed by one sharing.Model per directed link.

Topology (bandwidth/latency between endpoints) is external and pluggable,
per spec.md §1's "specified only by interface"; FullMesh is a minimal
in-memory implementation usable directly or as a test double.
*/
package network
