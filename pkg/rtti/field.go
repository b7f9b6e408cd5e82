package rtti

import (
	"fmt"
	"reflect"
)

// Category is the serialization category of a field
type Category uint8

const (
	// CategoryPlain is a fixed-format value copied as bytes (numbers, strings, POD structs)
	CategoryPlain Category = iota
	// CategoryDataBlock is a variable-length raw byte payload
	CategoryDataBlock
	// CategoryValue is a nested reflectable object serialized inline
	CategoryValue
	// CategoryReference is an edge to another object in the graph
	CategoryReference
)

// String returns the string representation of the category
func (c Category) String() string {
	switch c {
	case CategoryPlain:
		return "plain"
	case CategoryDataBlock:
		return "datablock"
	case CategoryValue:
		return "value"
	case CategoryReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Flags is a bit set of field flags
type Flags uint64

const (
	// FlagWeakReference marks a reference edge that may be assigned before its
	// target is fully populated. The owner must not read the target's data until
	// deserialization has completed. Only legal on reference fields.
	FlagWeakReference Flags = 1 << iota
)

// Has reports whether all bits of flag are set
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// Block is a data block payload. Passing a Block to Set on a field that is not
// a data block field fails with ErrFieldKindMismatch.
type Block []byte

// FieldOption configures a field at declaration
type FieldOption func(*fieldConfig)

type fieldConfig struct {
	flags Flags
	codec any
}

// Weak marks a reference field as a weak reference
func Weak() FieldOption {
	return func(c *fieldConfig) {
		c.flags |= FlagWeakReference
	}
}

// WithFlags adds raw flags to the field
func WithFlags(flags Flags) FieldOption {
	return func(c *fieldConfig) {
		c.flags |= flags
	}
}

// WithCodec overrides the default codec of a plain field
func WithCodec[T any](codec Codec[T]) FieldOption {
	return func(c *fieldConfig) {
		c.codec = codec
	}
}

// FieldDescriptor describes one named, numerically identified field of a type.
// Descriptors are immutable once their type is registered.
type FieldDescriptor struct {
	name      string
	id        uint16
	category  Category
	array     bool
	flags     Flags
	ownerType reflect.Type
	elemType  reflect.Type
	owner     *TypeDescriptor
	acc       accessor
	err       error
}

// Name returns the field name
func (f *FieldDescriptor) Name() string { return f.name }

// ID returns the field id used as the key in streams
func (f *FieldDescriptor) ID() uint16 { return f.id }

// Category returns the field category
func (f *FieldDescriptor) Category() Category { return f.category }

// IsArray reports whether the field holds a sequence of elements
func (f *FieldDescriptor) IsArray() bool { return f.array }

// Flags returns the field flags
func (f *FieldDescriptor) Flags() Flags { return f.flags }

// IsWeakRef reports whether the field is a weak reference
func (f *FieldDescriptor) IsWeakRef() bool {
	return f.category == CategoryReference && f.flags.Has(FlagWeakReference)
}

// Owner returns the type that declares the field, or nil before registration
func (f *FieldDescriptor) Owner() *TypeDescriptor { return f.owner }

// ElemType returns the Go type of a single element of the field
func (f *FieldDescriptor) ElemType() reflect.Type { return f.elemType }

// TypeSize returns the encoded size of one plain element in bytes.
// It is 0 for dynamic plain fields and for all other categories.
func (f *FieldDescriptor) TypeSize() int {
	if f.category != CategoryPlain {
		return 0
	}
	if n := f.acc.typeSize(); n > 0 {
		return n
	}
	return 0
}

// HasDynamicSize reports whether elements need an explicit length prefix.
// This holds for strings, slices, maps, fixed types over MaxFixedSize bytes,
// data blocks, and inline values.
func (f *FieldDescriptor) HasDynamicSize() bool {
	switch f.category {
	case CategoryPlain:
		return f.acc.typeSize() < 0
	case CategoryDataBlock, CategoryValue:
		return true
	default:
		return false
	}
}

// Get returns the value of a single-valued field
func (f *FieldDescriptor) Get(owner any) (any, error) {
	if err := f.CheckIsArray(false); err != nil {
		return nil, err
	}
	v, err := f.acc.get(owner, -1)
	if err != nil {
		return nil, f.fail("Get", err)
	}
	return v, nil
}

// Set assigns the value of a single-valued field. A nil value clears
// reference and value fields.
func (f *FieldDescriptor) Set(owner any, value any) error {
	if err := f.CheckIsArray(false); err != nil {
		return err
	}
	if err := f.checkPayload(value); err != nil {
		return f.fail("Set", err)
	}
	if err := f.acc.set(owner, -1, value); err != nil {
		return f.fail("Set", err)
	}
	return nil
}

// SetDataBlock assigns the bytes of a single-valued data block field
func (f *FieldDescriptor) SetDataBlock(owner any, data []byte) error {
	if err := f.CheckIsDataBlock(); err != nil {
		return err
	}
	return f.Set(owner, Block(data))
}

// GetAt returns element i of an array field
func (f *FieldDescriptor) GetAt(owner any, i int) (any, error) {
	if !f.array {
		return nil, f.fail("GetAt", ErrNotAnArray)
	}
	v, err := f.acc.get(owner, i)
	if err != nil {
		return nil, f.fail("GetAt", err)
	}
	return v, nil
}

// SetAt assigns element i of an array field. The array must already have
// at least i+1 elements; see SetArraySize.
func (f *FieldDescriptor) SetAt(owner any, i int, value any) error {
	if !f.array {
		return f.fail("SetAt", ErrNotAnArray)
	}
	if err := f.checkPayload(value); err != nil {
		return f.fail("SetAt", err)
	}
	if err := f.acc.set(owner, i, value); err != nil {
		return f.fail("SetAt", err)
	}
	return nil
}

// ArraySize returns the number of elements of an array field
func (f *FieldDescriptor) ArraySize(owner any) (int, error) {
	if !f.array {
		return 0, f.fail("ArraySize", ErrNotAnArray)
	}
	n, err := f.acc.size(owner)
	if err != nil {
		return 0, f.fail("ArraySize", err)
	}
	return n, nil
}

// SetArraySize resizes an array field to n elements, keeping the existing
// prefix and zero-filling new elements
func (f *FieldDescriptor) SetArraySize(owner any, n int) error {
	if !f.array {
		return f.fail("SetArraySize", ErrNotAnArray)
	}
	if n < 0 {
		return f.fail("SetArraySize", fmt.Errorf("%w: negative size %d", ErrIndexOutOfRange, n))
	}
	if err := f.acc.resize(owner, n); err != nil {
		return f.fail("SetArraySize", err)
	}
	return nil
}

// MarshalPlain encodes a plain element with the field's codec. The index is
// ignored for single-valued fields.
func (f *FieldDescriptor) MarshalPlain(owner any, i int) ([]byte, error) {
	if err := f.CheckIsPlain(f.array); err != nil {
		return nil, err
	}
	if !f.array {
		i = -1
	}
	b, err := f.acc.marshal(owner, i)
	if err != nil {
		return nil, f.fail("MarshalPlain", err)
	}
	return b, nil
}

// UnmarshalPlain decodes b with the field's codec and stores it. The index
// is ignored for single-valued fields.
func (f *FieldDescriptor) UnmarshalPlain(owner any, i int, b []byte) error {
	if err := f.CheckIsPlain(f.array); err != nil {
		return err
	}
	if !f.array {
		i = -1
	}
	if err := f.acc.unmarshal(owner, i, b); err != nil {
		return f.fail("UnmarshalPlain", err)
	}
	return nil
}

// CheckIsPlain fails unless the field is a plain field with the given array-ness
func (f *FieldDescriptor) CheckIsPlain(array bool) error {
	return f.checkKind("CheckIsPlain", CategoryPlain, array)
}

// CheckIsComplex fails unless the field is an inline value field with the given array-ness
func (f *FieldDescriptor) CheckIsComplex(array bool) error {
	return f.checkKind("CheckIsComplex", CategoryValue, array)
}

// CheckIsComplexPtr fails unless the field is a reference field with the given array-ness
func (f *FieldDescriptor) CheckIsComplexPtr(array bool) error {
	return f.checkKind("CheckIsComplexPtr", CategoryReference, array)
}

// CheckIsDataBlock fails unless the field is a single-valued data block field
func (f *FieldDescriptor) CheckIsDataBlock() error {
	return f.checkKind("CheckIsDataBlock", CategoryDataBlock, false)
}

// CheckIsArray fails if the field's array-ness differs from array
func (f *FieldDescriptor) CheckIsArray(array bool) error {
	if f.array == array {
		return nil
	}
	return &FieldError{
		Type:  f.ownerName(),
		Field: f.name,
		Op:    "CheckIsArray",
		Err:   ErrFieldKindMismatch,
		Msg:   fmt.Sprintf("want array=%t, field array=%t", array, f.array),
	}
}

func (f *FieldDescriptor) checkKind(op string, want Category, array bool) error {
	if f.category == want && f.array == array {
		return nil
	}
	return &FieldError{
		Type:  f.ownerName(),
		Field: f.name,
		Op:    op,
		Err:   ErrFieldKindMismatch,
		Msg: fmt.Sprintf("want %s (array=%t), field is %s (array=%t)",
			want, array, f.category, f.array),
	}
}

// checkPayload rejects data block payloads on non data block fields
func (f *FieldDescriptor) checkPayload(value any) error {
	if _, isBlock := value.(Block); isBlock && f.category != CategoryDataBlock {
		return fmt.Errorf("%w: data block payload for %s field", ErrFieldKindMismatch, f.category)
	}
	return nil
}

func (f *FieldDescriptor) fail(op string, err error) error {
	if _, ok := err.(*FieldError); ok {
		return err
	}
	return &FieldError{Type: f.ownerName(), Field: f.name, Op: op, Err: err}
}

func (f *FieldDescriptor) ownerName() string {
	if f.owner != nil {
		return f.owner.name
	}
	if f.ownerType != nil {
		return f.ownerType.Name()
	}
	return "?"
}

// project returns a copy of f whose accessors take the owner through up.
// Derived types use it to expose base type fields.
func (f *FieldDescriptor) project(up func(any) (any, error)) *FieldDescriptor {
	cp := *f
	cp.acc = projected{inner: f.acc, up: up}
	return &cp
}

func newField(id uint16, name string, cat Category, array bool, ownerType, elemType reflect.Type, acc accessor, opts []FieldOption) (*FieldDescriptor, *fieldConfig) {
	cfg := &fieldConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	f := &FieldDescriptor{
		name:      name,
		id:        id,
		category:  cat,
		array:     array,
		flags:     cfg.flags,
		ownerType: ownerType,
		elemType:  elemType,
		acc:       acc,
	}
	if cfg.flags.Has(FlagWeakReference) && cat != CategoryReference {
		f.err = fmt.Errorf("%w: weak flag on %s field %q", ErrInvalidFieldFlags, cat, name)
	}
	return f, cfg
}

func plainCodec[T any](name string, cfg *fieldConfig) (Codec[T], error) {
	if cfg.codec == nil {
		return DefaultCodec[T](), nil
	}
	codec, ok := cfg.codec.(Codec[T])
	if !ok {
		var zero T
		return DefaultCodec[T](), fmt.Errorf("%w: codec %T cannot encode %T for field %q",
			ErrFieldKindMismatch, cfg.codec, zero, name)
	}
	return codec, nil
}

// Plain declares a single plain field of O
func Plain[O, T any](id uint16, name string, get func(*O) T, set func(*O, T), opts ...FieldOption) *FieldDescriptor {
	acc := &plainAccess[O, T]{getFn: get, setFn: set}
	f, cfg := newField(id, name, CategoryPlain, false, reflect.TypeFor[O](), reflect.TypeFor[T](), acc, opts)
	codec, err := plainCodec[T](name, cfg)
	acc.codec = codec
	if err != nil && f.err == nil {
		f.err = err
	}
	return f
}

// PlainArray declares an array of plain elements backed by a slice
func PlainArray[O, T any](id uint16, name string, get func(*O) []T, set func(*O, []T), opts ...FieldOption) *FieldDescriptor {
	acc := &plainSliceAccess[O, T]{sliceAccess: sliceAccess[O, T]{getFn: get, setFn: set}}
	f, cfg := newField(id, name, CategoryPlain, true, reflect.TypeFor[O](), reflect.TypeFor[T](), acc, opts)
	codec, err := plainCodec[T](name, cfg)
	acc.codec = codec
	if err != nil && f.err == nil {
		f.err = err
	}
	return f
}

// DataBlock declares a single raw byte payload
func DataBlock[O any](id uint16, name string, get func(*O) []byte, set func(*O, []byte), opts ...FieldOption) *FieldDescriptor {
	acc := &blockAccess[O]{getFn: get, setFn: set}
	f, _ := newField(id, name, CategoryDataBlock, false, reflect.TypeFor[O](), reflect.TypeFor[[]byte](), acc, opts)
	return f
}

// DataBlockArray declares an array of raw byte payloads
func DataBlockArray[O any](id uint16, name string, get func(*O) [][]byte, set func(*O, [][]byte), opts ...FieldOption) *FieldDescriptor {
	acc := &blockSliceAccess[O]{sliceAccess: sliceAccess[O, []byte]{getFn: get, setFn: set}}
	f, _ := newField(id, name, CategoryDataBlock, true, reflect.TypeFor[O](), reflect.TypeFor[[]byte](), acc, opts)
	return f
}

// Value declares a nested reflectable value serialized inline. The getter may
// return a pointer into the owner; the setter receives a freshly populated
// instance on deserialization.
func Value[O any, V Reflectable](id uint16, name string, get func(*O) V, set func(*O, V), opts ...FieldOption) *FieldDescriptor {
	acc := &objectAccess[O, V]{getFn: get, setFn: set}
	f, _ := newField(id, name, CategoryValue, false, reflect.TypeFor[O](), reflect.TypeFor[V](), acc, opts)
	return f
}

// ValueArray declares an array of inline reflectable values
func ValueArray[O any, V Reflectable](id uint16, name string, get func(*O) []V, set func(*O, []V), opts ...FieldOption) *FieldDescriptor {
	acc := &objectSliceAccess[O, V]{sliceAccess: sliceAccess[O, V]{getFn: get, setFn: set}}
	f, _ := newField(id, name, CategoryValue, true, reflect.TypeFor[O](), reflect.TypeFor[V](), acc, opts)
	return f
}

// Reference declares an edge to another reflectable object
func Reference[O any, R Reflectable](id uint16, name string, get func(*O) R, set func(*O, R), opts ...FieldOption) *FieldDescriptor {
	acc := &objectAccess[O, R]{getFn: get, setFn: set}
	f, _ := newField(id, name, CategoryReference, false, reflect.TypeFor[O](), reflect.TypeFor[R](), acc, opts)
	return f
}

// ReferenceArray declares an array of edges to other reflectable objects
func ReferenceArray[O any, R Reflectable](id uint16, name string, get func(*O) []R, set func(*O, []R), opts ...FieldOption) *FieldDescriptor {
	acc := &objectSliceAccess[O, R]{sliceAccess: sliceAccess[O, R]{getFn: get, setFn: set}}
	f, _ := newField(id, name, CategoryReference, true, reflect.TypeFor[O](), reflect.TypeFor[R](), acc, opts)
	return f
}
