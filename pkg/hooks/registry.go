package hooks

import (
	"context"
	"sort"
)

// Handler is one plugin's policy callback. Run returns the faults it
// found; a non-nil error means the handler itself failed and is converted
// into a fault at the dispatch boundary. Handlers never see each other's
// faults and must not abort the process themselves.
type Handler interface {
	// Name is the plugin's canonical lowercase name. It doubles as the
	// configuration section and the disable-variable suffix.
	Name() string

	// Points lists the hook points the handler runs at.
	Points() []HookPoint

	Run(ctx context.Context, inv *Invocation) ([]Fault, error)
}

// Registry maps hook points to their handlers. It is populated during
// startup and read-only during dispatch; execution order equals
// registration order.
type Registry struct {
	handlers map[HookPoint][]Handler
	names    map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[HookPoint][]Handler),
		names:    make(map[string]struct{}),
	}
}

// Add registers a handler at every point it declares.
func (r *Registry) Add(h Handler) {
	r.names[h.Name()] = struct{}{}
	for _, p := range h.Points() {
		r.handlers[p] = append(r.handlers[p], h)
	}
}

// Handlers returns the handlers registered for a point, in registration
// order.
func (r *Registry) Handlers(p HookPoint) []Handler {
	return r.handlers[p]
}

// Known reports whether a plugin name is registered at any point.
func (r *Registry) Known(name string) bool {
	_, ok := r.names[name]
	return ok
}

// Names returns every registered plugin name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
