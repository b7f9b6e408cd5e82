package serial

import (
	"errors"
	"fmt"
)

// Stream errors. Any of them aborts the whole operation; no partial graph is returned.
var (
	// ErrSchemaTooNew is returned when a record was written by a newer version of its type
	ErrSchemaTooNew = errors.New("schema version is newer than the registered type")

	// ErrUnknownTypeID is returned when a record names a type id that is not registered
	ErrUnknownTypeID = errors.New("unknown type id")

	// ErrTruncatedStream is returned when the stream ends inside a record
	ErrTruncatedStream = errors.New("truncated stream")

	// ErrCircularStrongReference is returned when strong references form a cycle
	ErrCircularStrongReference = errors.New("circular strong reference")

	// ErrInvalidStream is returned for malformed streams: bad magic, bad
	// indexes, bad field metadata or trailing bytes
	ErrInvalidStream = errors.New("invalid stream")
)

// StreamError describes where encoding or decoding failed
type StreamError struct {
	Phase  Phase  // Phase that failed
	Index  int    // Stream index of the record, or -1
	TypeID uint32 // Type id of the record, or 0
	Err    error  // Underlying error
}

// Error implements the error interface
func (e *StreamError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("serial: %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("serial: %s: record %d (type %d): %v", e.Phase, e.Index, e.TypeID, e.Err)
}

// Unwrap returns the underlying error
func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsSchemaTooNew returns true if the error is ErrSchemaTooNew
func IsSchemaTooNew(err error) bool {
	return errors.Is(err, ErrSchemaTooNew)
}

// IsUnknownTypeID returns true if the error is ErrUnknownTypeID
func IsUnknownTypeID(err error) bool {
	return errors.Is(err, ErrUnknownTypeID)
}

// IsTruncated returns true if the error is ErrTruncatedStream
func IsTruncated(err error) bool {
	return errors.Is(err, ErrTruncatedStream)
}

// IsCircularReference returns true if the error is ErrCircularStrongReference
func IsCircularReference(err error) bool {
	return errors.Is(err, ErrCircularStrongReference)
}

func streamErr(phase Phase, index int, typeID uint32, err error) error {
	var se *StreamError
	if errors.As(err, &se) {
		return err
	}
	return &StreamError{Phase: phase, Index: index, TypeID: typeID, Err: err}
}
