package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/vfinder/pkg/storage"
)

// Registry manages the named storages available to the file manager.
// It provides thread-safe registration and lookup.
//
// Storage keys keep their registration order, which is also the order the
// client shows them in. The first registered storage is the default for
// paths without a storage prefix.
//
// Example usage:
//
//	reg := NewRegistry()
//	reg.Register("local", localStore, Options{})
//	reg.Register("archive", s3Store, Options{ReadOnly: true})
//
//	backend, _ := reg.Get("archive")
//	reg.IsReadOnly("archive") // true
type Registry struct {
	mu       sync.RWMutex
	order    []string
	storages map[string]*Storage
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		storages: make(map[string]*Storage),
	}
}

// Register adds a named storage to the registry.
// Returns an error if the backend is nil, the name is empty or a storage
// with the same name already exists.
func (r *Registry) Register(name string, backend storage.Backend, opts Options) error {
	if backend == nil {
		return fmt.Errorf("cannot register nil backend")
	}
	if name == "" {
		return fmt.Errorf("cannot register storage with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.storages[name]; exists {
		return fmt.Errorf("storage %q already registered", name)
	}

	r.storages[name] = &Storage{
		Name:    name,
		Backend: backend,
		Options: opts,
	}
	r.order = append(r.order, name)
	return nil
}

// Keys returns the registered storage keys in registration order.
// The returned slice is a copy.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Default returns the first registered storage key, "" when empty.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}

// Has reports whether a storage with this key is registered.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.storages[key]
	return ok
}

// Storage returns the registration record for a key.
func (r *Registry) Storage(key string) (*Storage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.storages[key]
	if !ok {
		return nil, &UnknownStorageError{Key: key}
	}
	return s, nil
}

// Get returns the backend registered under key.
func (r *Registry) Get(key string) (storage.Backend, error) {
	s, err := r.Storage(key)
	if err != nil {
		return nil, err
	}
	return s.Backend, nil
}

// IsReadOnly reports whether the storage is configured read-only.
// Unknown keys report false, lookups of unknown keys fail elsewhere.
func (r *Registry) IsReadOnly(key string) bool {
	s, err := r.Storage(key)
	if err != nil {
		return false
	}
	return s.Options.ReadOnly
}

// Count returns the number of registered storages.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Close closes every registered backend, in reverse registration order.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		if err := r.storages[name].Backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
