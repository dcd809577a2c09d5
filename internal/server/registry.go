package server

import (
	"cmp"
	"slices"
	"sync"
)

// Registry holds the running instances, capped at a maximum count.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*Instance
	max       int
}

// NewRegistry creates a registry holding at most max instances.
func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = 1
	}
	return &Registry{
		instances: make(map[string]*Instance),
		max:       max,
	}
}

// Reserve checks that there is room for one more instance.
func (r *Registry) Reserve() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.instances) >= r.max {
		return ErrInstanceLimit
	}
	return nil
}

// Add registers a started instance.
func (r *Registry) Add(inst *Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.instances) >= r.max {
		return ErrInstanceLimit
	}
	r.instances[inst.ID] = inst
	return nil
}

// Get returns an instance by id.
func (r *Registry) Get(id string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// Remove unregisters an instance and stops it.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	inst, ok := r.instances[id]
	delete(r.instances, id)
	r.mu.Unlock()

	if !ok {
		return ErrInstanceNotFound
	}
	inst.Stop()
	return nil
}

// List returns the instances, oldest first.
func (r *Registry) List() []*Instance {
	r.mu.RLock()
	list := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		list = append(list, inst)
	}
	r.mu.RUnlock()

	slices.SortFunc(list, func(a, b *Instance) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return list
}

// Len returns the number of running instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// StopAll stops and removes every instance.
func (r *Registry) StopAll() {
	for _, inst := range r.List() {
		r.Remove(inst.ID)
	}
}
