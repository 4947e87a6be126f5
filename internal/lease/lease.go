// Package lease provides in-process keyed leases. A sync run holds the lease
// for its organisation so overlapping runs cannot double-ingest; TryAcquire
// never blocks.
package lease

import "sync"

type Registry struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{held: make(map[string]struct{})}
}

// TryAcquire takes the lease for key if it is free. It returns false without
// blocking when the lease is already held.
func (r *Registry) TryAcquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.held[key]; ok {
		return false
	}
	r.held[key] = struct{}{}
	return true
}

// Release frees the lease for key. Releasing an unheld key is a no-op.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, key)
}
