package subscription

import "sync"

// Registry tracks live handles so they can all be closed on shutdown.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Add tracks h until it reaches Closed.
func (r *Registry) Add(h *Handle) {
	r.mu.Lock()
	r.handles[h.ID()] = h
	r.mu.Unlock()

	go func() {
		<-h.Done()
		r.mu.Lock()
		delete(r.handles, h.ID())
		r.mu.Unlock()
	}()
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// CloseAll closes every live handle with reason and returns how many it closed.
func (r *Registry) CloseAll(reason string) int {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	closed := 0
	for _, h := range handles {
		if h.Close(reason) {
			closed++
		}
	}
	return closed
}
