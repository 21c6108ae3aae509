package connector

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the process-wide connector lookup table (C3): initialized
// once at startup, read-mostly afterwards. Reads use an RWMutex favoring
// readers per §5(ii); there is no cross-process coordination because the
// registry is pure in-memory config, not shared state.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

// Register adds a connector under its own metadata slug. Intended to be
// called only during startup wiring.
func (r *Registry) Register(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[c.Metadata().Slug] = c
}

// Get looks up a connector by provider slug.
func (r *Registry) Get(slug string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[slug]
	return c, ok
}

// MustGet looks up a connector by slug, returning an error suitable for
// mapping to 404 NOT_FOUND when absent.
func (r *Registry) MustGet(slug string) (Connector, error) {
	c, ok := r.Get(slug)
	if !ok {
		return nil, fmt.Errorf("connector: no connector registered for provider %q", slug)
	}
	return c, nil
}

// All returns every registered connector's metadata, sorted by slug.
func (r *Registry) All() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metadata, 0, len(r.connectors))
	for _, c := range r.connectors {
		out = append(out, c.Metadata())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
