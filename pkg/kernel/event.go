package kernel

// Event is an immutable, timestamped message from one component to another.
// Payload is intentionally untyped: handlers recover its concrete type with
// a type switch, and the async runtime matches awaits against it with
// reflect.Type identity (spec §9 Design Notes, option (b): open-world type
// erasure, matching the reference implementation's dynamic dispatch).
type Event struct {
	ID      uint64
	Time    float64
	Src     Id
	Dst     Id
	Payload any
}
