package activity

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNoBackend is returned by For when no backend serves a short name.
var ErrNoBackend = errors.New("no activity backend")

// Registry maps source short names (e.g. "fake") to backends.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Source
	fallback Source
}

// NewRegistry creates a registry. fallback serves short names with no
// registered backend; nil means such lookups fail.
func NewRegistry(fallback Source) *Registry {
	return &Registry{
		backends: make(map[string]Source),
		fallback: fallback,
	}
}

// Register binds shortName to src, replacing any earlier binding.
func (r *Registry) Register(shortName string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[shortName] = src
}

// For returns the backend for shortName.
func (r *Registry) For(shortName string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if src, ok := r.backends[shortName]; ok {
		return src, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w for %q", ErrNoBackend, shortName)
}
