/*
Package sharing implements the fair throughput-sharing model used by the
network facade, one model per directed link (spec §4.6): a set of concurrent "activities"
split a capacity C(n) fairly, and Model answers peek/pop for the
next-to-finish activity in O(log n) amortized time instead of recomputing
every remaining activity's completion time on every change to the active
set.

The trick is to track a single monotone scalar E, the total normalized work
consumed so far, and to give each activity a heap key pos_i = E_at_insert +
w_i. The activity with the smallest pos is always the next to finish under
the current share, so peek/pop only need the heap's minimum.
*/
package sharing
