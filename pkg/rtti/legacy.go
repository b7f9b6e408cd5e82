package rtti

import (
	"fmt"
	"sort"
)

// MigrateFunc upgrades an instance populated from an older record. legacy
// holds the fields of the record that the current type no longer declares.
type MigrateFunc func(obj Reflectable, legacy *Legacy) error

// Migration upgrades instances stored with version From to From+1
type Migration struct {
	From  uint16
	Apply MigrateFunc
}

// LegacyField is the raw payload of a field that is no longer declared.
// Only plain and data block payloads are kept; Raw holds a scalar payload and
// Elements the payloads of an array.
type LegacyField struct {
	ID       uint16
	Category Category
	Array    bool
	Raw      []byte
	Elements [][]byte
}

// Legacy collects the undeclared fields of one record
type Legacy struct {
	Version uint16
	fields  map[uint16]*LegacyField
}

// NewLegacy creates an empty legacy store for a record of the given version
func NewLegacy(version uint16) *Legacy {
	return &Legacy{
		Version: version,
		fields:  make(map[uint16]*LegacyField),
	}
}

// Add stores a legacy field, replacing any field with the same id
func (l *Legacy) Add(f *LegacyField) {
	l.fields[f.ID] = f
}

// Field returns the legacy field with the given id
func (l *Legacy) Field(id uint16) (*LegacyField, bool) {
	f, ok := l.fields[id]
	return f, ok
}

// IDs returns the ids of all legacy fields in ascending order
func (l *Legacy) IDs() []uint16 {
	ids := make([]uint16, 0, len(l.fields))
	for id := range l.fields {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of legacy fields
func (l *Legacy) Len() int {
	return len(l.fields)
}

// LegacyValue decodes a scalar plain legacy field with the default codec for T.
// The boolean is false when the record did not carry the field.
func LegacyValue[T any](l *Legacy, id uint16) (T, bool, error) {
	var zero T
	if l == nil {
		return zero, false, nil
	}
	f, ok := l.Field(id)
	if !ok {
		return zero, false, nil
	}
	if f.Category != CategoryPlain || f.Array {
		return zero, true, fmt.Errorf("%w: legacy field %d is %s (array=%t)", ErrFieldKindMismatch, id, f.Category, f.Array)
	}
	v, err := DecodePlain[T](f.Raw)
	if err != nil {
		return zero, true, fmt.Errorf("legacy field %d: %w", id, err)
	}
	return v, true, nil
}
