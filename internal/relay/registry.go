package relay

import (
	"sync"

	"github.com/rickgao/wsrelay/internal/metrics"
)

// Registry maps connection ids to inbound handles. It is shared by all
// sessions and every operation holds a single lock, never across I/O.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Inbound
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[string]*Inbound),
	}
}

// Register maps id to handle, replacing any previous handle (last write wins).
func (r *Registry) Register(id string, handle *Inbound) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handles[id] = handle
	metrics.SetRegistryEntries(len(r.handles))
}

// Lookup returns the handle registered under id.
func (r *Registry) Lookup(id string) (*Inbound, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[id]
	return h, ok
}

// Remove deletes id. No-op if absent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.handles, id)
	metrics.SetRegistryEntries(len(r.handles))
}

// RemoveIf deletes id only while it still maps to handle.
// Reports whether an entry was removed.
func (r *Registry) RemoveIf(id string, handle *Inbound) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[id]; !ok || h != handle {
		return false
	}
	delete(r.handles, id)
	metrics.SetRegistryEntries(len(r.handles))
	return true
}

// Len returns the number of registered ids, aliases included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
