package strategy

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dnldd/kumo/shared"
	"github.com/rs/zerolog"
)

// Factory creates a strategy from the provided parameters.
type Factory func(params Params, logger zerolog.Logger) (Strategy, error)

// Registry maps strategy identifiers to their factories.
type Registry struct {
	factories    map[string]Factory
	factoriesMtx sync.RWMutex
}

// NewRegistry initializes an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry returns a registry of the bundled strategies.
func DefaultRegistry() *Registry {
	registry := NewRegistry()
	_ = registry.Register(IchimokuBreakoutID, NewIchimokuBreakout)
	return registry
}

// Register adds the provided strategy factory under the provided identifier.
func (r *Registry) Register(id string, factory Factory) error {
	if id == "" {
		return fmt.Errorf("strategy identifier cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("strategy factory for %s cannot be nil", id)
	}

	r.factoriesMtx.Lock()
	defer r.factoriesMtx.Unlock()

	if _, ok := r.factories[id]; ok {
		return fmt.Errorf("strategy %s already registered", id)
	}

	r.factories[id] = factory
	return nil
}

// Load creates the strategy registered under the provided identifier.
func (r *Registry) Load(id string, params Params, logger zerolog.Logger) (Strategy, error) {
	r.factoriesMtx.RLock()
	factory, ok := r.factories[id]
	r.factoriesMtx.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no strategy registered as %q", shared.ErrLoadFailure, id)
	}

	strategy, err := factory(params, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s: %w", shared.ErrLoadFailure, id, err)
	}

	return strategy, nil
}

// IDs returns the sorted identifiers of registered strategies.
func (r *Registry) IDs() []string {
	r.factoriesMtx.RLock()
	defer r.factoriesMtx.RUnlock()

	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}

	slices.Sort(ids)
	return ids
}
