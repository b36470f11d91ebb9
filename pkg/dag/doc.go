/*
Package dag implements the DAG Model (spec §4.9): tasks and data items
connected into a directed acyclic graph, plus the task state machine
(Pending -> Ready -> Runnable/Scheduled -> Running -> Done).

Tasks and data items are stored as parallel slices indexed by int (the
arena+index pattern of spec §9 Design Notes, grounded on dslab-dag's
Vec<TaskItem>/Vec<DataItemState>): producers/consumers reference each other
by index, never by pointer, so the DAG has no lifetime tangles and every
state transition is an O(1) slice write.
*/
package dag
