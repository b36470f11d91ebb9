package kernel

// Handler receives events addressed to the component it was attached to.
// At most one handler exists per component id (spec §3 Entities).
type Handler interface {
	OnEvent(e Event)
}

// registry maps component id <-> name and owns the (possibly nil, until
// AddHandler attaches one) handler for each id. Names and ids are reserved
// together by CreateContext; ids are never reused within a simulation, while
// the name of a removed component may be reserved again under a new id.
type registry struct {
	nameToID map[string]Id
	idToName map[Id]string
	handlers map[Id]Handler
	alive    map[Id]bool
	nextID   Id
}

func newRegistry() *registry {
	return &registry{
		nameToID: make(map[string]Id),
		idToName: make(map[Id]string),
		handlers: make(map[Id]Handler),
		alive:    make(map[Id]bool),
		nextID:   1,
	}
}

// reserve assigns the next dense id to name. Fails with ErrDuplicateName if
// the name is already registered (spec §4.2).
func (r *registry) reserve(name string) (Id, error) {
	if _, exists := r.nameToID[name]; exists {
		return 0, ErrDuplicateName
	}
	id := r.nextID
	r.nextID++
	r.nameToID[name] = id
	r.idToName[id] = name
	r.alive[id] = true
	return id, nil
}

// attach binds a handler to an already-reserved name.
func (r *registry) attach(name string, h Handler) (Id, error) {
	id, ok := r.nameToID[name]
	if !ok {
		return 0, ErrUnknownComponent
	}
	if _, has := r.handlers[id]; has {
		return 0, ErrHandlerAttached
	}
	r.handlers[id] = h
	return id, nil
}

func (r *registry) lookupID(name string) (Id, bool) {
	id, ok := r.nameToID[name]
	return id, ok
}

func (r *registry) lookupName(id Id) (string, bool) {
	name, ok := r.idToName[id]
	return name, ok
}

func (r *registry) handler(id Id) (Handler, bool) {
	if !r.alive[id] {
		return nil, false
	}
	h, ok := r.handlers[id]
	return h, ok
}

// remove marks the component dead: its name is detached, its handler is
// dropped, and it is reported as absent by handler() from this point on
// (spec §4.2). The id is never handed out again; the name is released and
// can be reserved again.
func (r *registry) remove(name string) (Id, bool) {
	id, ok := r.nameToID[name]
	if !ok {
		return 0, false
	}
	delete(r.nameToID, name)
	delete(r.handlers, id)
	r.alive[id] = false
	return id, true
}
