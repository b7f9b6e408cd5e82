package rtti

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
)

// Registry maps type ids, names and Go types to their descriptors.
// Registration is append-only and happens before first use; the first lookup
// (or an explicit Freeze) freezes the registry, after which lookups take no
// locks and Register fails with ErrRegistryFrozen.
type Registry struct {
	mu     sync.RWMutex
	frozen atomic.Bool

	byID   map[uint32]*TypeDescriptor
	byName map[string]*TypeDescriptor
	byType map[reflect.Type]*TypeDescriptor
	order  []*TypeDescriptor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[uint32]*TypeDescriptor),
		byName: make(map[string]*TypeDescriptor),
		byType: make(map[reflect.Type]*TypeDescriptor),
	}
}

// Global registry instance
var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by Register and TypeFor
func Default() *Registry {
	return defaultRegistry
}

func (r *Registry) add(td *TypeDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fail := func(err error, format string, args ...any) error {
		return &RegistrationError{TypeID: td.id, TypeName: td.name, Err: err, Msg: fmt.Sprintf(format, args...)}
	}

	if r.frozen.Load() {
		return fail(ErrRegistryFrozen, "register types before the first lookup")
	}
	if prev, exists := r.byID[td.id]; exists {
		return fail(ErrDuplicateTypeID, "id already used by %s", prev.name)
	}
	if _, exists := r.byName[td.name]; exists {
		return fail(ErrDuplicateTypeName, "")
	}
	if prev, exists := r.byType[td.rtype]; exists {
		return fail(ErrDuplicateTypeID, "%s is already registered as %s", td.rtype, prev.name)
	}
	for _, base := range td.bases {
		if r.byID[base.id] != base {
			return fail(ErrTypeNotRegistered, "base type %s is not in this registry", base.name)
		}
	}

	r.byID[td.id] = td
	r.byName[td.name] = td
	r.byType[td.rtype] = td
	r.order = append(r.order, td)
	return nil
}

// Freeze makes the registry read-only. It is called implicitly by the first lookup.
func (r *Registry) Freeze() {
	if r.frozen.Load() {
		return
	}
	r.mu.Lock()
	r.frozen.Store(true)
	r.mu.Unlock()
}

// Frozen reports whether the registry is read-only
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// ByID returns the descriptor registered under id
func (r *Registry) ByID(id uint32) (*TypeDescriptor, bool) {
	r.Freeze()
	td, ok := r.byID[id]
	return td, ok
}

// ByName returns the descriptor registered under name
func (r *Registry) ByName(name string) (*TypeDescriptor, bool) {
	r.Freeze()
	td, ok := r.byName[name]
	return td, ok
}

// TypeFor returns the descriptor of a Go type, given as T or *T
func (r *Registry) TypeFor(rt reflect.Type) (*TypeDescriptor, error) {
	r.Freeze()
	if rt == nil {
		return nil, fmt.Errorf("%w: nil type", ErrTypeNotRegistered)
	}
	if td, ok := r.byType[rt]; ok {
		return td, nil
	}
	if rt.Kind() == reflect.Pointer {
		if td, ok := r.byType[rt.Elem()]; ok {
			return td, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, rt)
}

// Types returns all descriptors ordered by type id
func (r *Registry) Types() []*TypeDescriptor {
	r.Freeze()
	out := make([]*TypeDescriptor, len(r.order))
	copy(out, r.order)
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Len returns the number of registered types
func (r *Registry) Len() int {
	r.Freeze()
	return len(r.order)
}

// Reset clears and unfreezes the registry (used for testing).
// It must not run concurrently with lookups.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[uint32]*TypeDescriptor)
	r.byName = make(map[string]*TypeDescriptor)
	r.byType = make(map[reflect.Type]*TypeDescriptor)
	r.order = nil
	r.frozen.Store(false)
}

// TypeFor returns the descriptor of T from the default registry without an instance
func TypeFor[T any]() (*TypeDescriptor, error) {
	return Default().TypeFor(reflect.TypeFor[T]())
}

// MustTypeFor is like TypeFor but panics if T is not registered
func MustTypeFor[T any]() *TypeDescriptor {
	td, err := TypeFor[T]()
	if err != nil {
		panic(err)
	}
	return td
}
