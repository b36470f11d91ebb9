package compute

import "github.com/dslab-go/simkit/pkg/kernel"

// CoresDependency maps an allocated core count to an execution speedup
// (spec §4.8). Linear, Amdahl, and Custom are the three shapes the spec
// calls out.
type CoresDependency func(cores int) float64

// Linear gives speedup(c) = c: perfectly parallel work.
func Linear() CoresDependency {
	return func(cores int) float64 { return float64(cores) }
}

// Amdahl gives speedup(c) = 1 / (f + (1-f)/c) for a fixed serial
// fraction f in [0, 1].
func Amdahl(f float64) CoresDependency {
	return func(cores int) float64 {
		return 1 / (f + (1-f)/float64(cores))
	}
}

// Custom wraps an arbitrary user-supplied speedup function.
func Custom(fn func(cores int) float64) CoresDependency {
	return fn
}

// FailReasonKind discriminates the shape of a FailReason.
type FailReasonKind int

const (
	NotEnoughResources FailReasonKind = iota
	OtherFailure
)

// FailReason explains why a CompRequest or AllocationRequest was rejected.
type FailReason struct {
	Kind            FailReasonKind
	AvailableCores  int
	AvailableMemory float64
	Reason          string
}

// CompRequest asks the resource to run a computation. ID is chosen by the
// requester and is echoed back on every terminal/intermediate event so the
// requester can correlate a response (e.g. via an async await keyed on it).
type CompRequest struct {
	ID              uint64
	Flops           float64
	Memory          float64
	MinCores        int
	MaxCores        int
	CoresDependency CoresDependency
	Requester       kernel.Id
}

// CompStarted is emitted to Requester the instant a CompRequest is accepted.
type CompStarted struct {
	ID    uint64
	Cores int
}

// CompFinished is emitted to Requester when the computation's resources are
// released back to the pool.
type CompFinished struct {
	ID uint64
}

// CompFailed is emitted to Requester instead of CompStarted when the
// resource cannot satisfy MinCores/Memory.
type CompFailed struct {
	ID     uint64
	Reason FailReason
}

// AllocationRequest reserves cores/memory without attaching a computation.
type AllocationRequest struct {
	ID        uint64
	Cores     int
	Memory    float64
	Requester kernel.Id
}

type AllocationSuccess struct{ ID uint64 }

type AllocationFailed struct {
	ID     uint64
	Reason FailReason
}

// DeallocationRequest releases a previously granted AllocationRequest.
type DeallocationRequest struct {
	ID        uint64
	Requester kernel.Id
}

type DeallocationSuccess struct{ ID uint64 }

type DeallocationFailed struct {
	ID     uint64
	Reason string
}

// finishTimer is the internal self-event that fires when a running
// computation's flops have been exhausted.
type finishTimer struct {
	id uint64
}
