// Package registry provides a generic, thread-safe registry of factories keyed
// by type name. The broker and warehouse registries are specialisations of it.
//
// Example usage:
//
//	r := registry.New[warehouse.Factory]()
//	r.Register("sqlite", &sqlite.Factory{})
//	factory, err := r.Get("sqlite")
//	sink, err := factory.Create(config, logger)
package registry

import (
	"fmt"
	"sort"
	"sync"

	"app-groups-sync/internal/common/errors"
)

// Factory defines the interface that all factory types must implement
// to be used with the generic registry.
type Factory interface {
	// GetType returns the type identifier for this factory
	GetType() string
}

// Registry provides a generic, thread-safe registry for factory instances.
type Registry[T Factory] struct {
	factories map[string]T
	mu        sync.RWMutex
}

// New creates a new empty registry for factories of type T.
func New[T Factory]() *Registry[T] {
	return &Registry[T]{
		factories: make(map[string]T),
	}
}

// Register adds a factory for the specified type, replacing any previous one.
func (r *Registry[T]) Register(factoryType string, factory T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[factoryType] = factory
}

// Get retrieves a factory by its type identifier.
// An unknown type is a not_found error.
func (r *Registry[T]) Get(factoryType string) (T, error) {
	r.mu.RLock()
	factory, exists := r.factories[factoryType]
	r.mu.RUnlock()

	if !exists {
		var zero T
		return zero, errors.NotFoundError(fmt.Sprintf("factory type %s", factoryType))
	}

	return factory, nil
}

// GetAvailableTypes returns the registered types in sorted order.
func (r *Registry[T]) GetAvailableTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for factoryType := range r.factories {
		types = append(types, factoryType)
	}
	sort.Strings(types)
	return types
}

func (r *Registry[T]) IsRegistered(factoryType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[factoryType]
	return exists
}
