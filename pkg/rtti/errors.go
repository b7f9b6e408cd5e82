package rtti

import (
	"errors"
	"fmt"
)

// Field access errors. These are local to a single field operation.
var (
	// ErrFieldKindMismatch is returned when an operation does not match the
	// field's category or array-ness, or when the owner or value has the wrong type
	ErrFieldKindMismatch = errors.New("field kind mismatch")

	// ErrFieldNotFound is returned when a field id or name is not declared on a type
	ErrFieldNotFound = errors.New("field not found")

	// ErrNotAnArray is returned when an array operation is used on a scalar field
	ErrNotAnArray = errors.New("field is not an array")

	// ErrIndexOutOfRange is returned when an array element index is outside the array
	ErrIndexOutOfRange = errors.New("array index out of range")
)

// Registration errors. These indicate programming errors and surface immediately.
var (
	// ErrDuplicateFieldID is returned when two fields of a type (including its bases) share an id
	ErrDuplicateFieldID = errors.New("duplicate field id")

	// ErrDuplicateFieldName is returned when two fields of a type share a name
	ErrDuplicateFieldName = errors.New("duplicate field name")

	// ErrDuplicateTypeID is returned when a type id is already registered
	ErrDuplicateTypeID = errors.New("duplicate type id")

	// ErrDuplicateTypeName is returned when a type name is already registered
	ErrDuplicateTypeName = errors.New("duplicate type name")

	// ErrFieldOwned is returned when a field descriptor is declared on a second type
	ErrFieldOwned = errors.New("field already belongs to a type")

	// ErrInvalidFieldFlags is returned for flag combinations that are illegal for a category
	ErrInvalidFieldFlags = errors.New("invalid field flags")

	// ErrInvalidMigration is returned for a migration that does not start below the type version
	ErrInvalidMigration = errors.New("invalid migration")

	// ErrInvalidTypeID is returned when a type is declared with the reserved id 0
	ErrInvalidTypeID = errors.New("invalid type id")

	// ErrNotReflectable is returned when *T does not implement Reflectable
	ErrNotReflectable = errors.New("type does not implement rtti.Reflectable")

	// ErrRegistryFrozen is returned when registering into a registry that is already in use
	ErrRegistryFrozen = errors.New("registry is frozen")

	// ErrTypeNotRegistered is returned by class-level lookups for unknown types
	ErrTypeNotRegistered = errors.New("type not registered")
)

// FieldError describes a failed field operation
type FieldError struct {
	Type  string // Owning type name
	Field string // Field name
	Op    string // Operation that failed (e.g. "ArraySize", "Set")
	Err   error  // Underlying sentinel error
	Msg   string // Optional detail
}

// Error implements the error interface
func (e *FieldError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("rtti: %s.%s: %s: %v: %s", e.Type, e.Field, e.Op, e.Err, e.Msg)
	}
	return fmt.Sprintf("rtti: %s.%s: %s: %v", e.Type, e.Field, e.Op, e.Err)
}

// Unwrap returns the underlying sentinel error
func (e *FieldError) Unwrap() error {
	return e.Err
}

// RegistrationError describes a rejected type registration
type RegistrationError struct {
	TypeID   uint32
	TypeName string
	Err      error
	Msg      string
}

// Error implements the error interface
func (e *RegistrationError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("rtti: register %s (id %d): %v: %s", e.TypeName, e.TypeID, e.Err, e.Msg)
	}
	return fmt.Sprintf("rtti: register %s (id %d): %v", e.TypeName, e.TypeID, e.Err)
}

// Unwrap returns the underlying sentinel error
func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// IsFieldKindMismatch returns true if the error is ErrFieldKindMismatch
func IsFieldKindMismatch(err error) bool {
	return errors.Is(err, ErrFieldKindMismatch)
}

// IsFieldNotFound returns true if the error is ErrFieldNotFound
func IsFieldNotFound(err error) bool {
	return errors.Is(err, ErrFieldNotFound)
}

// IsNotAnArray returns true if the error is ErrNotAnArray
func IsNotAnArray(err error) bool {
	return errors.Is(err, ErrNotAnArray)
}

// IsRegistrationError returns true if the error came from type registration
func IsRegistrationError(err error) bool {
	var regErr *RegistrationError
	return errors.As(err, &regErr)
}
