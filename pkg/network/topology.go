package network

import "github.com/dslab-go/simkit/pkg/kernel"

// Topology answers bandwidth/latency queries between two components. It is
// an external collaborator (spec §4.7): simkit never parses a topology
// description itself, it only consumes this interface.
type Topology interface {
	Bandwidth(src, dst kernel.Id) float64
	Latency(src, dst kernel.Id) float64
}

type linkParams struct {
	bandwidth float64
	latency   float64
}

// FullMesh is a minimal in-memory Topology: every pair of endpoints shares
// DefaultBandwidth/DefaultLatency unless overridden for a specific
// (src, dst) pair. Struct tags let an external YAML/JSON loader populate
// one of these without simkit depending on that loader (spec.md's
// Non-goals exclude config loaders from the core).
type FullMesh struct {
	DefaultBandwidth float64 `yaml:"default_bandwidth"`
	DefaultLatency   float64 `yaml:"default_latency"`

	overrides map[[2]kernel.Id]linkParams
}

// SetLink overrides bandwidth/latency for one directed (src, dst) pair.
func (f *FullMesh) SetLink(src, dst kernel.Id, bandwidth, latency float64) {
	if f.overrides == nil {
		f.overrides = make(map[[2]kernel.Id]linkParams)
	}
	f.overrides[[2]kernel.Id{src, dst}] = linkParams{bandwidth: bandwidth, latency: latency}
}

func (f *FullMesh) Bandwidth(src, dst kernel.Id) float64 {
	if p, ok := f.overrides[[2]kernel.Id{src, dst}]; ok {
		return p.bandwidth
	}
	return f.DefaultBandwidth
}

func (f *FullMesh) Latency(src, dst kernel.Id) float64 {
	if p, ok := f.overrides[[2]kernel.Id{src, dst}]; ok {
		return p.latency
	}
	return f.DefaultLatency
}
