package rtti

import (
	"fmt"
	"reflect"
	"sort"
)

var reflectableType = reflect.TypeFor[Reflectable]()

// TypeBuilder declares a reflectable type T. *T must implement Reflectable.
//
//	var nodeType *rtti.TypeDescriptor
//
//	func init() {
//		nodeType = rtti.NewType[Node](10, "Node").
//			Fields(
//				rtti.Plain(1, "value", func(n *Node) int32 { return n.Value }, func(n *Node, v int32) { n.Value = v }),
//				rtti.Reference(2, "next", func(n *Node) *Node { return n.Next }, func(n *Node, v *Node) { n.Next = v }),
//			).
//			MustRegister()
//	}
type TypeBuilder[T any] struct {
	id             uint32
	name           string
	version        uint16
	factory        func() *T
	bases          []baseDecl[T]
	fields         []*FieldDescriptor
	migrations     []Migration
	onSerialize    []HookFunc
	onDeserialized []HookFunc
}

type baseDecl[T any] struct {
	td *TypeDescriptor
	up func(*T) any
}

// NewType starts the declaration of T with a type id and a unique name
func NewType[T any](id uint32, name string) *TypeBuilder[T] {
	return &TypeBuilder[T]{id: id, name: name, version: 1}
}

// Version sets the schema version. Bump it whenever fields are removed or
// change meaning, and add a Migration from the previous version.
func (b *TypeBuilder[T]) Version(v uint16) *TypeBuilder[T] {
	b.version = v
	return b
}

// Factory sets the constructor used for default instances. Without it,
// instances are zero values of T.
func (b *TypeBuilder[T]) Factory(fn func() *T) *TypeBuilder[T] {
	b.factory = fn
	return b
}

// Base declares base as a base type of T. up returns the embedded base
// instance inside a *T, usually the address of an embedded struct.
func (b *TypeBuilder[T]) Base(base *TypeDescriptor, up func(*T) any) *TypeBuilder[T] {
	b.bases = append(b.bases, baseDecl[T]{td: base, up: up})
	return b
}

// Fields appends own fields in declaration order
func (b *TypeBuilder[T]) Fields(fields ...*FieldDescriptor) *TypeBuilder[T] {
	b.fields = append(b.fields, fields...)
	return b
}

// Migrate registers fn to upgrade records stored with version from
func (b *TypeBuilder[T]) Migrate(from uint16, fn MigrateFunc) *TypeBuilder[T] {
	b.migrations = append(b.migrations, Migration{From: from, Apply: fn})
	return b
}

// OnSerialize adds a hook run before an instance is written
func (b *TypeBuilder[T]) OnSerialize(fn HookFunc) *TypeBuilder[T] {
	b.onSerialize = append(b.onSerialize, fn)
	return b
}

// OnDeserialized adds a hook run once the whole graph has been populated
func (b *TypeBuilder[T]) OnDeserialized(fn HookFunc) *TypeBuilder[T] {
	b.onDeserialized = append(b.onDeserialized, fn)
	return b
}

// Build validates the declaration and returns a descriptor that is not
// registered anywhere
func (b *TypeBuilder[T]) Build() (*TypeDescriptor, error) {
	td, err := b.build()
	if err != nil {
		return nil, err
	}
	td.claimFields()
	return td, nil
}

// RegisterIn validates the declaration and adds it to r
func (b *TypeBuilder[T]) RegisterIn(r *Registry) (*TypeDescriptor, error) {
	td, err := b.build()
	if err != nil {
		return nil, err
	}
	td.claimFields()
	if err := r.add(td); err != nil {
		td.releaseFields()
		return nil, err
	}
	return td, nil
}

// Register adds the declaration to the default registry
func (b *TypeBuilder[T]) Register() (*TypeDescriptor, error) {
	return b.RegisterIn(Default())
}

// MustRegister is like Register but panics on error. It is meant for init
// functions, where a bad declaration is a programming error.
func (b *TypeBuilder[T]) MustRegister() *TypeDescriptor {
	td, err := b.Register()
	if err != nil {
		panic(err)
	}
	return td
}

func (b *TypeBuilder[T]) fail(err error, format string, args ...any) error {
	return &RegistrationError{
		TypeID:   b.id,
		TypeName: b.name,
		Err:      err,
		Msg:      fmt.Sprintf(format, args...),
	}
}

func (b *TypeBuilder[T]) build() (*TypeDescriptor, error) {
	rt := reflect.TypeFor[T]()

	if b.id == 0 {
		return nil, b.fail(ErrInvalidTypeID, "type id 0 is reserved")
	}
	if b.name == "" {
		return nil, b.fail(ErrInvalidTypeID, "type name is empty")
	}
	if !reflect.PointerTo(rt).Implements(reflectableType) {
		return nil, b.fail(ErrNotReflectable, "*%s has no RTTI method", rt)
	}

	td := &TypeDescriptor{
		id:      b.id,
		name:    b.name,
		version: b.version,
		rtype:   rt,
		byID:    make(map[uint16]*FieldDescriptor),
		byName:  make(map[string]*FieldDescriptor),
	}

	// Own fields
	for _, f := range b.fields {
		if f == nil {
			return nil, b.fail(ErrFieldNotFound, "nil field descriptor")
		}
		if f.err != nil {
			return nil, b.fail(f.err, "field %q", f.name)
		}
		if f.owner != nil {
			return nil, b.fail(ErrFieldOwned, "field %q is declared on %s", f.name, f.owner.name)
		}
		if f.ownerType != rt {
			return nil, b.fail(ErrFieldKindMismatch, "field %q is declared for %s", f.name, f.ownerType)
		}
		if err := td.addField(f); err != nil {
			return nil, b.fail(err, "field %q", f.name)
		}
		td.fields = append(td.fields, f)
	}

	// Flattened base fields
	for _, base := range b.bases {
		if base.td == nil || base.up == nil {
			return nil, b.fail(ErrTypeNotRegistered, "base type or projection is nil")
		}
		up := base.up
		project := func(owner any) (any, error) {
			o, err := ownerAs[T](owner)
			if err != nil {
				return nil, err
			}
			return up(o), nil
		}
		for _, f := range base.td.all {
			pf := f.project(project)
			if err := td.addField(pf); err != nil {
				return nil, b.fail(err, "field %q inherited from %s", f.name, base.td.name)
			}
		}
		td.bases = append(td.bases, base.td)
		td.ancestors = append(td.ancestors, Ancestor{Type: base.td, Project: reflectable(project)})
		for _, a := range base.td.ancestors {
			td.ancestors = append(td.ancestors, Ancestor{Type: a.Type, Project: chain(project, a.Project)})
		}
		td.onSerialize = append(td.onSerialize, projectHooks(base.td.onSerialize, project)...)
		td.onDeserialized = append(td.onDeserialized, projectHooks(base.td.onDeserialized, project)...)
	}
	td.onSerialize = append(td.onSerialize, b.onSerialize...)
	td.onDeserialized = append(td.onDeserialized, b.onDeserialized...)

	// Migrations
	seen := make(map[uint16]bool)
	for _, m := range b.migrations {
		if m.Apply == nil {
			return nil, b.fail(ErrInvalidMigration, "migration from v%d has no function", m.From)
		}
		if m.From >= b.version {
			return nil, b.fail(ErrInvalidMigration, "migration from v%d is not below v%d", m.From, b.version)
		}
		if seen[m.From] {
			return nil, b.fail(ErrInvalidMigration, "duplicate migration from v%d", m.From)
		}
		seen[m.From] = true
		td.migrations = append(td.migrations, m)
	}
	sort.Slice(td.migrations, func(i, j int) bool { return td.migrations[i].From < td.migrations[j].From })

	factory := b.factory
	if factory == nil {
		factory = func() *T { return new(T) }
	}
	td.factory = func() Reflectable {
		return any(factory()).(Reflectable)
	}

	return td, nil
}

// addField appends f to the full field set
func (t *TypeDescriptor) addField(f *FieldDescriptor) error {
	if prev, ok := t.byID[f.id]; ok {
		return fmt.Errorf("%w: id %d used by %q and %q", ErrDuplicateFieldID, f.id, prev.name, f.name)
	}
	if _, ok := t.byName[f.name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateFieldName, f.name)
	}
	t.byID[f.id] = f
	t.byName[f.name] = f
	t.all = append(t.all, f)
	return nil
}

func (t *TypeDescriptor) claimFields() {
	for _, f := range t.fields {
		f.owner = t
	}
}

func (t *TypeDescriptor) releaseFields() {
	for _, f := range t.fields {
		f.owner = nil
	}
}

// reflectable adapts a base projection to return the embedded instance
func reflectable(up func(any) (any, error)) func(Reflectable) (Reflectable, error) {
	return func(obj Reflectable) (Reflectable, error) {
		base, err := up(obj)
		if err != nil {
			return nil, err
		}
		r, ok := base.(Reflectable)
		if !ok {
			return nil, fmt.Errorf("%w: base %T", ErrNotReflectable, base)
		}
		return r, nil
	}
}

// chain projects through a direct base to one of its ancestors
func chain(up func(any) (any, error), next func(Reflectable) (Reflectable, error)) func(Reflectable) (Reflectable, error) {
	first := reflectable(up)
	return func(obj Reflectable) (Reflectable, error) {
		base, err := first(obj)
		if err != nil {
			return nil, err
		}
		return next(base)
	}
}

func projectHooks(hooks []HookFunc, up func(any) (any, error)) []HookFunc {
	project := reflectable(up)
	out := make([]HookFunc, 0, len(hooks))
	for _, h := range hooks {
		out = append(out, func(obj Reflectable) error {
			base, err := project(obj)
			if err != nil {
				return err
			}
			return h(base)
		})
	}
	return out
}
