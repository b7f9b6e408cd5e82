// Package rtti provides runtime type information for reflectable objects.
//
// A type declares its fields once, at registration, through the generic field
// constructors (Plain, DataBlock, Value, Reference and their Array variants).
// Each constructor binds a getter and setter for the owning type, so field
// access through a FieldDescriptor is type-checked at the declaration site and
// reported as ErrFieldKindMismatch at run time when misused.
//
// Descriptors are kept in a Registry. Registration happens during program
// initialization; the first lookup freezes the registry, after which it can
// be read concurrently without locks.
//
// The pkg/serial package uses these descriptors to write and read whole
// object graphs.
package rtti
