package rtti

import (
	"fmt"
)

// accessor is the type-erased view of a field's bound getter and setter.
// Index -1 addresses a single-valued field.
type accessor interface {
	get(owner any, i int) (any, error)
	set(owner any, i int, v any) error
	size(owner any) (int, error)
	resize(owner any, n int) error
	typeSize() int
	marshal(owner any, i int) ([]byte, error)
	unmarshal(owner any, i int, b []byte) error
}

func ownerAs[O any](owner any) (*O, error) {
	o, ok := owner.(*O)
	if !ok || o == nil {
		var zero O
		return nil, fmt.Errorf("%w: owner is %T, want *%T", ErrFieldKindMismatch, owner, zero)
	}
	return o, nil
}

func valueAs[T any](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: value is %T, want %T", ErrFieldKindMismatch, v, zero)
	}
	return t, nil
}

func objectAs[R Reflectable](v any) (R, error) {
	var zero R
	if v == nil {
		return zero, nil
	}
	return valueAs[R](v)
}

func blockAs(v any) ([]byte, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case Block:
		return []byte(b), nil
	case []byte:
		return b, nil
	default:
		return nil, fmt.Errorf("%w: value is %T, want []byte", ErrFieldKindMismatch, v)
	}
}

func objectOut[R Reflectable](r R) any {
	if IsNil(r) {
		return nil
	}
	return r
}

// scalar provides the array operations of single-valued accessors
type scalar struct{}

func (scalar) size(any) (int, error) { return 0, ErrNotAnArray }
func (scalar) resize(any, int) error { return ErrNotAnArray }

// complexElem provides the plain codec operations of non-plain accessors
type complexElem struct{}

func (complexElem) typeSize() int { return 0 }

func (complexElem) marshal(any, int) ([]byte, error) {
	return nil, fmt.Errorf("%w: not a plain field", ErrFieldKindMismatch)
}

func (complexElem) unmarshal(any, int, []byte) error {
	return fmt.Errorf("%w: not a plain field", ErrFieldKindMismatch)
}

type plainAccess[O, T any] struct {
	scalar
	getFn func(*O) T
	setFn func(*O, T)
	codec Codec[T]
}

func (a *plainAccess[O, T]) get(owner any, _ int) (any, error) {
	o, err := ownerAs[O](owner)
	if err != nil {
		return nil, err
	}
	return a.getFn(o), nil
}

func (a *plainAccess[O, T]) set(owner any, _ int, v any) error {
	o, err := ownerAs[O](owner)
	if err != nil {
		return err
	}
	t, err := valueAs[T](v)
	if err != nil {
		return err
	}
	a.setFn(o, t)
	return nil
}

func (a *plainAccess[O, T]) typeSize() int { return a.codec.Size() }

func (a *plainAccess[O, T]) marshal(owner any, _ int) ([]byte, error) {
	o, err := ownerAs[O](owner)
	if err != nil {
		return nil, err
	}
	return a.codec.Encode(a.getFn(o))
}

func (a *plainAccess[O, T]) unmarshal(owner any, _ int, b []byte) error {
	o, err := ownerAs[O](owner)
	if err != nil {
		return err
	}
	t, err := a.codec.Decode(b)
	if err != nil {
		return err
	}
	a.setFn(o, t)
	return nil
}

// sliceAccess implements the array operations shared by all slice-backed fields.
// Element writes go back through the setter so getters may return copies.
type sliceAccess[O, E any] struct {
	getFn func(*O) []E
	setFn func(*O, []E)
}

func (a *sliceAccess[O, E]) size(owner any) (int, error) {
	o, err := ownerAs[O](owner)
	if err != nil {
		return 0, err
	}
	return len(a.getFn(o)), nil
}

func (a *sliceAccess[O, E]) resize(owner any, n int) error {
	o, err := ownerAs[O](owner)
	if err != nil {
		return err
	}
	ns := make([]E, n)
	copy(ns, a.getFn(o))
	a.setFn(o, ns)
	return nil
}

func (a *sliceAccess[O, E]) at(owner any, i int) (E, error) {
	var zero E
	o, err := ownerAs[O](owner)
	if err != nil {
		return zero, err
	}
	s := a.getFn(o)
	if i < 0 || i >= len(s) {
		return zero, fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfRange, i, len(s))
	}
	return s[i], nil
}

func (a *sliceAccess[O, E]) put(owner any, i int, e E) error {
	o, err := ownerAs[O](owner)
	if err != nil {
		return err
	}
	s := a.getFn(o)
	if i < 0 || i >= len(s) {
		return fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfRange, i, len(s))
	}
	s[i] = e
	a.setFn(o, s)
	return nil
}

type plainSliceAccess[O, T any] struct {
	sliceAccess[O, T]
	codec Codec[T]
}

func (a *plainSliceAccess[O, T]) get(owner any, i int) (any, error) {
	return a.at(owner, i)
}

func (a *plainSliceAccess[O, T]) set(owner any, i int, v any) error {
	t, err := valueAs[T](v)
	if err != nil {
		return err
	}
	return a.put(owner, i, t)
}

func (a *plainSliceAccess[O, T]) typeSize() int { return a.codec.Size() }

func (a *plainSliceAccess[O, T]) marshal(owner any, i int) ([]byte, error) {
	t, err := a.at(owner, i)
	if err != nil {
		return nil, err
	}
	return a.codec.Encode(t)
}

func (a *plainSliceAccess[O, T]) unmarshal(owner any, i int, b []byte) error {
	t, err := a.codec.Decode(b)
	if err != nil {
		return err
	}
	return a.put(owner, i, t)
}

type blockAccess[O any] struct {
	scalar
	complexElem
	getFn func(*O) []byte
	setFn func(*O, []byte)
}

func (a *blockAccess[O]) get(owner any, _ int) (any, error) {
	o, err := ownerAs[O](owner)
	if err != nil {
		return nil, err
	}
	return a.getFn(o), nil
}

func (a *blockAccess[O]) set(owner any, _ int, v any) error {
	o, err := ownerAs[O](owner)
	if err != nil {
		return err
	}
	b, err := blockAs(v)
	if err != nil {
		return err
	}
	a.setFn(o, b)
	return nil
}

type blockSliceAccess[O any] struct {
	sliceAccess[O, []byte]
	complexElem
}

func (a *blockSliceAccess[O]) get(owner any, i int) (any, error) {
	return a.at(owner, i)
}

func (a *blockSliceAccess[O]) set(owner any, i int, v any) error {
	b, err := blockAs(v)
	if err != nil {
		return err
	}
	return a.put(owner, i, b)
}

type objectAccess[O any, R Reflectable] struct {
	scalar
	complexElem
	getFn func(*O) R
	setFn func(*O, R)
}

func (a *objectAccess[O, R]) get(owner any, _ int) (any, error) {
	o, err := ownerAs[O](owner)
	if err != nil {
		return nil, err
	}
	return objectOut(a.getFn(o)), nil
}

func (a *objectAccess[O, R]) set(owner any, _ int, v any) error {
	o, err := ownerAs[O](owner)
	if err != nil {
		return err
	}
	r, err := objectAs[R](v)
	if err != nil {
		return err
	}
	a.setFn(o, r)
	return nil
}

type objectSliceAccess[O any, R Reflectable] struct {
	sliceAccess[O, R]
	complexElem
}

func (a *objectSliceAccess[O, R]) get(owner any, i int) (any, error) {
	r, err := a.at(owner, i)
	if err != nil {
		return nil, err
	}
	return objectOut(r), nil
}

func (a *objectSliceAccess[O, R]) set(owner any, i int, v any) error {
	r, err := objectAs[R](v)
	if err != nil {
		return err
	}
	return a.put(owner, i, r)
}

// projected reaches a base type's field through the derived owner
type projected struct {
	inner accessor
	up    func(any) (any, error)
}

func (p projected) get(owner any, i int) (any, error) {
	o, err := p.up(owner)
	if err != nil {
		return nil, err
	}
	return p.inner.get(o, i)
}

func (p projected) set(owner any, i int, v any) error {
	o, err := p.up(owner)
	if err != nil {
		return err
	}
	return p.inner.set(o, i, v)
}

func (p projected) size(owner any) (int, error) {
	o, err := p.up(owner)
	if err != nil {
		return 0, err
	}
	return p.inner.size(o)
}

func (p projected) resize(owner any, n int) error {
	o, err := p.up(owner)
	if err != nil {
		return err
	}
	return p.inner.resize(o, n)
}

func (p projected) typeSize() int { return p.inner.typeSize() }

func (p projected) marshal(owner any, i int) ([]byte, error) {
	o, err := p.up(owner)
	if err != nil {
		return nil, err
	}
	return p.inner.marshal(o, i)
}

func (p projected) unmarshal(owner any, i int, b []byte) error {
	o, err := p.up(owner)
	if err != nil {
		return err
	}
	return p.inner.unmarshal(o, i, b)
}
