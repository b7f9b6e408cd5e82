package rtti

import "reflect"

// Reflectable is implemented by every object that can describe its own fields.
// RTTI returns the descriptor of the object's runtime type, so a value held
// through an interface reports its most derived type.
type Reflectable interface {
	RTTI() *TypeDescriptor
}

// HookFunc is called with an instance around serialization
type HookFunc func(obj Reflectable) error

// IsNil reports whether r is nil or an interface holding a nil pointer
func IsNil(r Reflectable) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
