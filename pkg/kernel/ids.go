package kernel

// Id is a dense component identifier assigned on registration. It is stable
// for the lifetime of the simulation and never reused.
type Id uint32

// NoComponent is never a valid registered id; it is used as the zero value
// sentinel for "no source" / "no destination".
const NoComponent Id = 0
