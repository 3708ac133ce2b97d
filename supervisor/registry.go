package supervisor

// Registry is the in-memory set of services, keyed by name and by id,
// with a reverse index from pid to name valid exactly when the service
// is Running or Stopping. It is not safe for concurrent use: the event
// loop is the only caller, by construction.
type Registry struct {
	byName    map[string]*Service
	nameByID  map[ServiceID]string
	nameByPID map[int]string
	order     []string // insertion order, for status file iteration
	nextID    ServiceID
	dirty     bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:    make(map[string]*Service),
		nameByID:  make(map[ServiceID]string),
		nameByPID: make(map[int]string),
	}
}

// Insert adds a new service with a freshly allocated id and Stopped
// state, and marks the registry dirty. The caller must ensure spec.Name
// is not already present.
func (r *Registry) Insert(spec ServiceSpec) *Service {
	r.nextID++
	id := r.nextID
	svc := &Service{
		ID:   id,
		Spec: spec,
		State: ServiceState{
			Kind: StateStopped,
		},
	}
	r.byName[spec.Name] = svc
	r.nameByID[id] = spec.Name
	r.order = append(r.order, spec.Name)
	r.dirty = true
	return svc
}

// LookupByName returns the service named name, or nil.
func (r *Registry) LookupByName(name string) *Service {
	return r.byName[name]
}

// LookupByID returns the service with the given id, or nil.
func (r *Registry) LookupByID(id ServiceID) *Service {
	name, ok := r.nameByID[id]
	if !ok {
		return nil
	}
	return r.byName[name]
}

// LookupByPID returns the service currently owning pid, or nil.
func (r *Registry) LookupByPID(pid int) *Service {
	name, ok := r.nameByPID[pid]
	if !ok {
		return nil
	}
	return r.byName[name]
}

// RegisterPID records that pid is now owned by the named service.
func (r *Registry) RegisterPID(pid int, name string) {
	r.nameByPID[pid] = name
}

// UnregisterPID removes pid from the reverse index, if present.
func (r *Registry) UnregisterPID(pid int) {
	delete(r.nameByPID, pid)
}

// Remove deletes the named service entirely. Any pid still pointing at
// it is left dangling; callers must UnregisterPID first if the pid is
// still live (in practice Remove is only ever called once a service's
// process has already exited and been unregistered by the reaper).
func (r *Registry) Remove(name string) {
	svc, ok := r.byName[name]
	if !ok {
		return
	}
	delete(r.byName, name)
	delete(r.nameByID, svc.ID)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.dirty = true
}

// MarkDirty flags the registry as changed since the last status write.
func (r *Registry) MarkDirty() {
	r.dirty = true
}

// Dirty reports whether the registry has changed since the last
// ClearDirty.
func (r *Registry) Dirty() bool {
	return r.dirty
}

// ClearDirty resets the dirty flag.
func (r *Registry) ClearDirty() {
	r.dirty = false
}

// Iter returns every service in insertion order.
func (r *Registry) Iter() []*Service {
	out := make([]*Service, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// AllStopped reports whether no service is Running or Stopping.
func (r *Registry) AllStopped() bool {
	for _, svc := range r.byName {
		if svc.IsAlive() {
			return false
		}
	}
	return true
}
