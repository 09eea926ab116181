package utils

import "sync"

// -----------------------------------------------------------------------------
// Registry - explicit subscription registry with typed detach tokens.
// Listener removal goes through the returned token, never through index
// bookkeeping captured in closures.
// -----------------------------------------------------------------------------

type Registry[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]func(T)
}

// -----------------------------------------------------------------------------

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		listeners: make(map[uint64]func(T)),
	}
}

// -----------------------------------------------------------------------------

// Add registers a listener and returns its detach token. Detaching twice is
// harmless.
func (r *Registry[T]) Add(listener func(T)) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.listeners[id] = listener
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// -----------------------------------------------------------------------------

// Emit delivers the event to every registered listener. Listeners are invoked
// outside the registry lock so they may attach/detach freely.
func (r *Registry[T]) Emit(event T) {
	r.mu.Lock()
	snapshot := make([]func(T), 0, len(r.listeners))
	for _, listener := range r.listeners {
		snapshot = append(snapshot, listener)
	}
	r.mu.Unlock()

	for _, listener := range snapshot {
		listener(event)
	}
}

// -----------------------------------------------------------------------------

// Len returns the number of attached listeners.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}
