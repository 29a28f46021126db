package schema

import (
	"encoding/json"
	"sort"
	"sync"
)

// Schema owns the shape of one document key.
type Schema interface {
	Key() string
	// Normalize validates raw and returns the canonical encoding that gets
	// stored. Failures are *ValidationError.
	Normalize(raw json.RawMessage) (json.RawMessage, error)
	// Seed returns the canonical document written on first access.
	Seed() (json.RawMessage, error)
}

type Registry struct {
	mu      sync.RWMutex
	schemas map[string]Schema
}

func NewRegistry(schemas ...Schema) *Registry {
	r := &Registry{schemas: make(map[string]Schema, len(schemas))}
	for _, s := range schemas {
		r.Register(s)
	}
	return r
}

// Register adds s, replacing any schema already registered for its key.
func (r *Registry) Register(s Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Key()] = s
}

func (r *Registry) Lookup(key string) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[key]
	return s, ok
}

func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Default returns a registry holding every built-in document.
func Default() *Registry {
	return NewRegistry(NewPricingSchema())
}
