package strategy

import (
	"sort"
	"sync"

	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// Factory builds a configured strategy instance. Callers register closures
// that capture their configuration, keeping the registry free of dynamic
// loading: every strategy is statically known at compile time.
type Factory func() (Strategy, error)

// Registry maps strategy identifiers to factories.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under the given identifier.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrCodeStrategyAlreadyExists, "strategy %q already registered", name)
	}

	r.factories[name] = factory

	return nil
}

// Create builds a strategy instance by identifier.
func (r *Registry) Create(name string) (Strategy, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %q not registered", name)
	}

	return factory()
}

// List returns the registered strategy identifiers.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Remove deletes a factory from the registry.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; !exists {
		return errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %q not registered", name)
	}

	delete(r.factories, name)

	return nil
}
