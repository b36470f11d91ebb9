package scheduler

import (
	"errors"

	"github.com/dslab-go/simkit/pkg/dag"
	"github.com/dslab-go/simkit/pkg/kernel"
	"github.com/dslab-go/simkit/pkg/network"
)

// ErrNoFeasibleAssignment is returned when no resource can host a task under
// its MinCores/Memory/AllowedResources constraints.
var ErrNoFeasibleAssignment = errors.New("scheduler: no resource satisfies task constraints")

// DataTransferMode controls how the runner moves a data item from a
// producer's resource to a consumer's resource (spec §4.11).
type DataTransferMode int

const (
	// Direct transfers go straight from producer to consumer resource.
	Direct DataTransferMode = iota
	// ViaMasterNode routes every transfer through Config.MasterResource.
	ViaMasterNode
	// Manual disables automatic transfers; the caller uploads/downloads
	// data items itself and the runner only waits for readiness.
	Manual
)

// Config carries the parameters every scheduler needs beyond the DAG and
// System view (spec §4.10).
type Config struct {
	DataTransferMode DataTransferMode
	// MasterResource is consulted only when DataTransferMode is
	// ViaMasterNode; it indexes System.Resources.
	MasterResource int
}

// Resource is a scheduler's read-only view of one compute.Compute-backed
// node (spec §4.10: "Scheduler needs to know about resource speed/cores").
type Resource struct {
	ID          kernel.Id
	Speed       float64
	CoresTotal  int
	MemoryTotal float64
}

// System is the static infrastructure a scheduler plans against: the
// resource pool and the network topology used to estimate transfer times.
type System struct {
	Resources []Resource
	Topology  network.Topology
}

// ActionKind discriminates the two Action shapes of spec §4.10.
type ActionKind int

const (
	// ActionSchedule assigns a task to a resource with a core count, letting
	// the runner pick which specific cores at dispatch time.
	ActionSchedule ActionKind = iota
	// ActionScheduleOnCores pins a task to specific core indices on a
	// resource, as produced by a scheduler that plans concrete core
	// assignments ahead of time (HEFT and its relatives).
	ActionScheduleOnCores
)

// Action is one scheduling decision: "run Task on Resource using Cores
// cores" (spec §4.10). CoreSet is populated only for ActionScheduleOnCores.
// ExpectedSpan is the scheduler's own EFT-EST estimate, carried along for
// tracing/diagnostics; the runner never trusts it for correctness.
type Action struct {
	Kind         ActionKind
	Task         int
	Resource     int // index into System.Resources
	Cores        int
	CoreSet      []int
	ExpectedSpan float64
}

// Static produces one upfront schedule for the whole DAG (spec §4.10).
type Static interface {
	Start(d *dag.DAG, sys System, cfg Config) ([]Action, error)
}

// Dynamic additionally reacts to state changes (a task becoming Ready, or
// finishing) by producing incremental Actions (spec §4.10).
type Dynamic interface {
	Static
	OnTaskStateChanged(task int, newState dag.State, d *dag.DAG, sys System) []Action
}
