package dag

import (
	"fmt"

	"github.com/dslab-go/simkit/pkg/compute"
	"github.com/dslab-go/simkit/pkg/kernel"
)

// State is a position in the task state machine of spec §4.9:
//
//	Pending --all inputs ready--> Ready
//	Ready   --scheduler assigns--> Runnable   (Pending path: Scheduled)
//	Runnable--resources allocated--> Running
//	Running --compute finishes, outputs uploaded--> Done
type State int

const (
	Pending State = iota
	Ready
	Scheduled
	Runnable
	Running
	Done
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Ready:
		return "Ready"
	case Scheduled:
		return "Scheduled"
	case Runnable:
		return "Runnable"
	case Running:
		return "Running"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// ErrStateRegression is returned when a caller attempts to move a task to
// a state that does not follow from its current one (spec §8: "a task
// never regresses").
var ErrStateRegression = fmt.Errorf("dag: illegal task state transition")

// Task is one node of the DAG (spec §3 Entities). CoresDependency and
// AllowedResources are consulted by schedulers and validated by the runner
// (spec §4.10).
type Task struct {
	ID   int
	Name string

	Flops           float64
	Memory          float64
	MinCores        int
	MaxCores        int
	CoresDependency compute.CoresDependency
	AllowedResources []kernel.Id // empty means any resource is allowed

	Inputs  []int // DataItem indices this task consumes
	Outputs []int // DataItem indices this task produces

	State State

	pendingInputs map[int]struct{}
}

// DataItem is an abstract blob produced by at most one task and consumed
// by zero or more tasks (spec §3 Entities).
type DataItem struct {
	ID   int
	Name string
	Size float64

	Producer  int // task index, or -1 for an external input
	Consumers []int

	Ready bool
}

// DAG is the arena owning all tasks and data items of one workflow.
type DAG struct {
	tasks []Task
	items []DataItem
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{}
}

// AddTask appends a new task in the Pending state and returns its index.
// Call Finalize once the graph is fully wired to compute correct initial
// states.
func (d *DAG) AddTask(name string, flops, memory float64, minCores, maxCores int, dep compute.CoresDependency, allowed []kernel.Id) int {
	idx := len(d.tasks)
	d.tasks = append(d.tasks, Task{
		ID:               idx,
		Name:             name,
		Flops:            flops,
		Memory:           memory,
		MinCores:         minCores,
		MaxCores:         maxCores,
		CoresDependency:  dep,
		AllowedResources: allowed,
		State:            Pending,
		pendingInputs:    make(map[int]struct{}),
	})
	return idx
}

// AddDataItem appends a new data item with no producer (external input by
// default) and returns its index.
func (d *DAG) AddDataItem(name string, size float64) int {
	idx := len(d.items)
	d.items = append(d.items, DataItem{ID: idx, Name: name, Size: size, Producer: -1})
	return idx
}

// MarkExternalInput flags a data item as ready from the start (it has no
// producing task within this DAG).
func (d *DAG) MarkExternalInput(item int) {
	d.items[item].Ready = true
}

// SetProducer records that task produces item. A data item has at most one
// producer.
func (d *DAG) SetProducer(item, task int) {
	d.items[item].Producer = task
	d.tasks[task].Outputs = append(d.tasks[task].Outputs, item)
}

// AddConsumer records that task consumes item: item is added to the task's
// required inputs and the task is added to item's consumer set.
func (d *DAG) AddConsumer(item, task int) {
	d.items[item].Consumers = append(d.items[item].Consumers, task)
	d.tasks[task].Inputs = append(d.tasks[task].Inputs, item)
	d.tasks[task].pendingInputs[item] = struct{}{}
}

// Finalize computes each task's initial state: inputs with no producing task
// (external inputs) count as already available, so a task is Ready if every
// remaining input is external, Pending otherwise. Call this once after the
// graph is fully built and before scheduling starts.
func (d *DAG) Finalize() {
	for i := range d.tasks {
		for item := range d.tasks[i].pendingInputs {
			if d.items[item].Producer < 0 {
				delete(d.tasks[i].pendingInputs, item)
			}
		}
		if len(d.tasks[i].pendingInputs) == 0 {
			d.tasks[i].State = Ready
		}
	}
}

func (d *DAG) TaskCount() int { return len(d.tasks) }
func (d *DAG) ItemCount() int { return len(d.items) }

func (d *DAG) Task(i int) Task         { return d.tasks[i] }
func (d *DAG) DataItem(i int) DataItem { return d.items[i] }

// PendingInputCount reports how many of task's inputs have not yet arrived.
func (d *DAG) PendingInputCount(task int) int { return len(d.tasks[task].pendingInputs) }

// MarkScheduled moves task from Pending to Scheduled: the scheduler has
// assigned it a resource, but its inputs have not all arrived yet.
func (d *DAG) MarkScheduled(task int) error {
	if d.tasks[task].State != Pending {
		return ErrStateRegression
	}
	d.tasks[task].State = Scheduled
	return nil
}

// MarkRunnable moves task from Ready to Runnable: the scheduler has
// assigned it a resource and its inputs are already satisfied.
func (d *DAG) MarkRunnable(task int) error {
	switch d.tasks[task].State {
	case Ready, Scheduled:
		d.tasks[task].State = Runnable
		return nil
	default:
		return ErrStateRegression
	}
}

// MarkRunning moves task from Runnable to Running: resources have been
// reserved and the computation has started.
func (d *DAG) MarkRunning(task int) error {
	if d.tasks[task].State != Runnable {
		return ErrStateRegression
	}
	d.tasks[task].State = Running
	return nil
}

// MarkDone moves task from Running to Done, marks each of its output data
// items Ready, and returns the indices of downstream tasks that became
// Ready as a result (spec §4.9 Transitions).
func (d *DAG) MarkDone(task int) ([]int, error) {
	if d.tasks[task].State != Running {
		return nil, ErrStateRegression
	}
	d.tasks[task].State = Done

	var becameReady []int
	for _, itemIdx := range d.tasks[task].Outputs {
		d.items[itemIdx].Ready = true
		for _, consumer := range d.items[itemIdx].Consumers {
			if d.InputArrived(consumer, itemIdx) {
				becameReady = append(becameReady, consumer)
			}
		}
	}
	return becameReady, nil
}

// InputArrived removes item from task's set of unready inputs. It returns
// true iff this was the task's last pending input and it has transitioned
// to Ready (from Pending) as a result. A Scheduled task whose last input
// arrives is left for the caller to move to Runnable via MarkRunnable,
// since that is also how a runner reacts to a scheduler assignment arriving
// after the data.
func (d *DAG) InputArrived(task, item int) bool {
	delete(d.tasks[task].pendingInputs, item)
	if len(d.tasks[task].pendingInputs) != 0 {
		return false
	}
	if d.tasks[task].State == Pending {
		d.tasks[task].State = Ready
		return true
	}
	return false
}
