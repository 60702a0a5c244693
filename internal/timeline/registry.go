package timeline

import (
	"fmt"
	"sort"
	"sync"

	"match-narrator/internal/model"
)

// Registry manages event kind registration and lookup.
// It is safe for concurrent use.
type Registry struct {
	kinds map[model.EventType]Kind
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[model.EventType]Kind),
	}
}

// Register adds a kind. A kind with the same type is replaced.
func (r *Registry) Register(k Kind) error {
	if k == nil {
		return fmt.Errorf("cannot register nil kind")
	}
	if k.Type() == "" {
		return fmt.Errorf("kind type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[k.Type()] = k
	return nil
}

// Get retrieves the kind for an event type.
func (r *Registry) Get(t model.EventType) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[t]
	return k, ok
}

// Lookup is Get returning ErrUnknownType for unregistered types.
func (r *Registry) Lookup(t model.EventType) (Kind, error) {
	k, ok := r.Get(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return k, nil
}

// List returns all registered kinds sorted by type.
func (r *Registry) List() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Type() < kinds[j].Type() })
	return kinds
}

// Count returns the number of registered kinds.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.kinds)
}

// DefaultRegistry returns a registry holding every built-in event kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, k := range builtinKinds() {
		// Built-ins always have a non-empty type.
		_ = r.Register(k)
	}
	return r
}
