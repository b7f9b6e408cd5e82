package rtti

import (
	"fmt"
	"reflect"
)

// TypeDescriptor describes a reflectable type: its identity, its schema
// version, its fields and its base types. Descriptors are created by a
// TypeBuilder and never change afterwards.
type TypeDescriptor struct {
	id      uint32
	name    string
	version uint16
	rtype   reflect.Type

	fields []*FieldDescriptor
	all    []*FieldDescriptor
	byID   map[uint16]*FieldDescriptor
	byName map[string]*FieldDescriptor
	bases  []*TypeDescriptor

	ancestors []Ancestor

	factory        func() Reflectable
	migrations     []Migration
	onSerialize    []HookFunc
	onDeserialized []HookFunc
}

// ID returns the process-wide type id. Id 0 is never assigned.
func (t *TypeDescriptor) ID() uint32 { return t.id }

// Name returns the registered type name
func (t *TypeDescriptor) Name() string { return t.name }

// Version returns the current schema version
func (t *TypeDescriptor) Version() uint16 { return t.version }

// ReflectType returns the Go struct type described by t
func (t *TypeDescriptor) ReflectType() reflect.Type { return t.rtype }

// Fields returns the fields declared directly on the type, in declaration order
func (t *TypeDescriptor) Fields() []*FieldDescriptor {
	out := make([]*FieldDescriptor, len(t.fields))
	copy(out, t.fields)
	return out
}

// AllFields returns the own fields followed by the flattened fields of every
// base type. Base fields accept an instance of t as owner.
func (t *TypeDescriptor) AllFields() []*FieldDescriptor {
	out := make([]*FieldDescriptor, len(t.all))
	copy(out, t.all)
	return out
}

// NumFields returns the size of the full field set
func (t *TypeDescriptor) NumFields() int { return len(t.all) }

// Field looks up a field by id across the full field set
func (t *TypeDescriptor) Field(id uint16) (*FieldDescriptor, error) {
	if f, ok := t.byID[id]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s has no field id %d", ErrFieldNotFound, t.name, id)
}

// FieldByName looks up a field by name across the full field set
func (t *TypeDescriptor) FieldByName(name string) (*FieldDescriptor, error) {
	if f, ok := t.byName[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s has no field %q", ErrFieldNotFound, t.name, name)
}

// Bases returns the direct base types in declaration order
func (t *TypeDescriptor) Bases() []*TypeDescriptor {
	out := make([]*TypeDescriptor, len(t.bases))
	copy(out, t.bases)
	return out
}

// Ancestor is a base type reached through the base chain together with the
// projection from an instance of the derived type to the embedded base
type Ancestor struct {
	Type    *TypeDescriptor
	Project func(obj Reflectable) (Reflectable, error)
}

// Ancestors returns every base type in the order their fields follow the own
// fields in AllFields: each direct base, then that base's own ancestors
func (t *TypeDescriptor) Ancestors() []Ancestor {
	out := make([]Ancestor, len(t.ancestors))
	copy(out, t.ancestors)
	return out
}

// IsA reports whether t is other or derives from it
func (t *TypeDescriptor) IsA(other *TypeDescriptor) bool {
	if t == other {
		return true
	}
	for _, b := range t.bases {
		if b.IsA(other) {
			return true
		}
	}
	return false
}

// NewInstance returns a default-constructed instance of the type
func (t *TypeDescriptor) NewInstance() Reflectable {
	return t.factory()
}

// Migrations returns the registered migrations ordered by From
func (t *TypeDescriptor) Migrations() []Migration {
	out := make([]Migration, len(t.migrations))
	copy(out, t.migrations)
	return out
}

// MigrationsFrom returns the migrations that upgrade a record stored with
// version stored to the current version, in the order they must run
func (t *TypeDescriptor) MigrationsFrom(stored uint16) []Migration {
	var out []Migration
	for _, m := range t.migrations {
		if m.From >= stored {
			out = append(out, m)
		}
	}
	return out
}

// SerializeHooks returns the hooks run before an instance is written,
// base type hooks first
func (t *TypeDescriptor) SerializeHooks() []HookFunc { return t.onSerialize }

// DeserializedHooks returns the hooks run after the whole graph is populated,
// base type hooks first
func (t *TypeDescriptor) DeserializedHooks() []HookFunc { return t.onDeserialized }

// String returns the type name and version
func (t *TypeDescriptor) String() string {
	return fmt.Sprintf("%s@v%d", t.name, t.version)
}
