package serial

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/conduit-lang/rtti/pkg/rtti"
	"google.golang.org/protobuf/encoding/protowire"
)

// Stream layout
//
//	stream  := magic | formatVersion varint | count varint | record*
//	record  := typeId fixed32 | version varint | lineage | body (varint length + bytes)
//	lineage := ownFields varint | baseCount varint | base*
//	base    := typeId fixed32 | version varint | fieldCount varint
//	body    := fieldCount varint | field*
//	field   := fieldId varint | meta byte | payload
//
// The lineage lists every ancestor in AllFields order with the version and
// field count it was written with. The body holds the own fields first and
// then one run of fields per ancestor, so each field can be traced to the
// type that declared it.
//
// Scalar payloads by category:
//
//	plain fixed   : size byte | size bytes
//	plain dynamic : varint length | bytes
//	data block    : varint length | bytes
//	value         : typeId fixed32 | version varint | lineage | body (varint length + bytes);
//	                a nil value is typeId 0 alone
//	reference     : zigzag varint stream index, -1 for nil
//
// Array payloads are the element count followed by the scalar payloads; a
// fixed plain array writes its size byte once, before the count.
const (
	// Magic starts every stream
	Magic = "RTG1"

	// FormatVersion is the layout version written after the magic
	FormatVersion = 2

	// maxValueDepth bounds the nesting of inline values
	maxValueDepth = 64

	// maxEmptyElements bounds the count of zero-sized plain elements
	maxEmptyElements = 1 << 20
)

const (
	metaCategoryMask byte = 0x03
	metaArray        byte = 1 << 2
	metaDynamic      byte = 1 << 3
	metaWeak         byte = 1 << 4
	metaReserved     byte = 0xe0
)

// fieldMeta is the decoded meta byte of a field record
type fieldMeta struct {
	category rtti.Category
	array    bool
	dynamic  bool
	weak     bool
}

func metaFor(f *rtti.FieldDescriptor) byte {
	m := byte(f.Category()) & metaCategoryMask
	if f.IsArray() {
		m |= metaArray
	}
	if f.HasDynamicSize() {
		m |= metaDynamic
	}
	if f.IsWeakRef() {
		m |= metaWeak
	}
	return m
}

func parseMeta(b byte) (fieldMeta, error) {
	if b&metaReserved != 0 {
		return fieldMeta{}, fmt.Errorf("%w: reserved meta bits set (0x%02x)", ErrInvalidStream, b)
	}
	m := fieldMeta{
		category: rtti.Category(b & metaCategoryMask),
		array:    b&metaArray != 0,
		dynamic:  b&metaDynamic != 0,
		weak:     b&metaWeak != 0,
	}
	if m.weak && m.category != rtti.CategoryReference {
		return fieldMeta{}, fmt.Errorf("%w: weak flag on %s field", ErrInvalidStream, m.category)
	}
	return m, nil
}

// fixedPlain reports whether elements carry no length prefix
func (m fieldMeta) fixedPlain() bool {
	return m.category == rtti.CategoryPlain && !m.dynamic
}

// matches reports whether a stored field can be assigned to f
func (m fieldMeta) matches(f *rtti.FieldDescriptor, size int) bool {
	if m.category != f.Category() || m.array != f.IsArray() || m.dynamic != f.HasDynamicSize() {
		return false
	}
	return !m.fixedPlain() || size == f.TypeSize()
}

// reader consumes stream primitives from a byte slice
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) fail(n int) error {
	err := protowire.ParseError(n)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w at offset %d", ErrTruncatedStream, r.off)
	}
	return fmt.Errorf("%w at offset %d: %v", ErrInvalidStream, r.off, err)
}

func (r *reader) varint() (uint64, error) {
	v, n := protowire.ConsumeVarint(r.buf[r.off:])
	if n < 0 {
		return 0, r.fail(n)
	}
	r.off += n
	return v, nil
}

func (r *reader) fixed32() (uint32, error) {
	v, n := protowire.ConsumeFixed32(r.buf[r.off:])
	if n < 0 {
		return 0, r.fail(n)
	}
	r.off += n
	return v, nil
}

func (r *reader) bytes() ([]byte, error) {
	v, n := protowire.ConsumeBytes(r.buf[r.off:])
	if n < 0 {
		return nil, r.fail(n)
	}
	r.off += n
	return v, nil
}

func (r *reader) u8() (byte, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("%w at offset %d", ErrTruncatedStream, r.off)
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) raw(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("%w at offset %d: need %d bytes, have %d", ErrTruncatedStream, r.off, n, r.remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u16(what string) (uint16, error) {
	v, err := r.varint()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %s %d out of range", ErrInvalidStream, what, v)
	}
	return uint16(v), nil
}

// count reads an element count and checks that the stream can hold it
// given the minimum encoded size of one element
func (r *reader) count(minElem int) (int, error) {
	v, err := r.varint()
	if err != nil {
		return 0, err
	}
	if minElem == 0 {
		if v > maxEmptyElements {
			return 0, fmt.Errorf("%w: %d empty elements", ErrInvalidStream, v)
		}
		return int(v), nil
	}
	if v > uint64(r.remaining()/minElem) {
		return 0, fmt.Errorf("%w: %d elements do not fit in %d bytes", ErrTruncatedStream, v, r.remaining())
	}
	return int(v), nil
}

// header is the stream preamble
type header struct {
	version uint64
	count   int
}

// rawRecord is one top-level record
type rawRecord struct {
	typeID  uint32
	version uint16
	lineage lineage
	body    *rawBody
}

// lineage is the stored schema of the ancestors of a record
type lineage struct {
	own   int
	bases []storedBase
}

// storedBase is one ancestor as it was when the record was written
type storedBase struct {
	typeID  uint32
	version uint16
	fields  int
}

// owners returns, for every field of a body, the position of its declaring
// type: 0 for the record type, i+1 for bases[i]
func (l lineage) owners(n int) ([]int, error) {
	total := l.own
	for _, b := range l.bases {
		total += b.fields
	}
	if total != n {
		return nil, fmt.Errorf("%w: lineage declares %d fields, body has %d", ErrInvalidStream, total, n)
	}
	out := make([]int, 0, n)
	for i := 0; i < l.own; i++ {
		out = append(out, 0)
	}
	for j, b := range l.bases {
		for i := 0; i < b.fields; i++ {
			out = append(out, j+1)
		}
	}
	return out, nil
}

func parseLineage(r *reader) (lineage, error) {
	var l lineage
	// id + meta
	own, err := r.count(2)
	if err != nil {
		return l, err
	}
	l.own = own
	// typeId + version + fieldCount
	n, err := r.count(6)
	if err != nil {
		return l, err
	}
	for i := 0; i < n; i++ {
		var b storedBase
		if b.typeID, err = r.fixed32(); err != nil {
			return l, err
		}
		if b.typeID == 0 {
			return l, fmt.Errorf("%w: base with type id 0", ErrInvalidStream)
		}
		if b.version, err = r.u16("base version"); err != nil {
			return l, err
		}
		if b.fields, err = r.count(2); err != nil {
			return l, err
		}
		l.bases = append(l.bases, b)
	}
	return l, nil
}

// rawBody is a parsed field list
type rawBody struct {
	fields []rawField
}

// rawField is one parsed field record. Plain and data block elements are in
// elems, references in refs and inline values in values; a scalar field has
// exactly one element.
type rawField struct {
	id     uint16
	meta   fieldMeta
	size   int
	elems  [][]byte
	refs   []int
	values []*rawValue
}

// count returns the number of elements
func (f *rawField) count() int {
	switch f.meta.category {
	case rtti.CategoryReference:
		return len(f.refs)
	case rtti.CategoryValue:
		return len(f.values)
	default:
		return len(f.elems)
	}
}

// rawValue is an inline value; nil for a nil value
type rawValue struct {
	typeID  uint32
	version uint16
	lineage lineage
	body    *rawBody
}

// parseStream splits a stream into records without consulting any registry
func parseStream(data []byte) (header, []rawRecord, error) {
	r := &reader{buf: data}

	magic, err := r.raw(len(Magic))
	if err != nil {
		return header{}, nil, err
	}
	if string(magic) != Magic {
		return header{}, nil, fmt.Errorf("%w: bad magic %q", ErrInvalidStream, magic)
	}

	var h header
	if h.version, err = r.varint(); err != nil {
		return h, nil, err
	}
	if h.version != FormatVersion {
		return h, nil, fmt.Errorf("%w: unsupported format version %d", ErrInvalidStream, h.version)
	}
	// typeId + version + lineage + body length
	if h.count, err = r.count(8); err != nil {
		return h, nil, err
	}
	if h.count == 0 {
		return h, nil, fmt.Errorf("%w: stream has no root record", ErrInvalidStream)
	}

	records := make([]rawRecord, 0, h.count)
	for i := 0; i < h.count; i++ {
		rec, err := parseRecord(r, h.count)
		if err != nil {
			return h, records, &StreamError{Phase: PhaseScanning, Index: i, TypeID: rec.typeID, Err: err}
		}
		records = append(records, rec)
	}
	if r.remaining() != 0 {
		return h, records, fmt.Errorf("%w: %d trailing bytes", ErrInvalidStream, r.remaining())
	}
	return h, records, nil
}

func parseRecord(r *reader, count int) (rawRecord, error) {
	var rec rawRecord
	var err error
	if rec.typeID, err = r.fixed32(); err != nil {
		return rec, err
	}
	if rec.typeID == 0 {
		return rec, fmt.Errorf("%w: record with type id 0", ErrInvalidStream)
	}
	if rec.version, err = r.u16("version"); err != nil {
		return rec, err
	}
	if rec.lineage, err = parseLineage(r); err != nil {
		return rec, err
	}
	body, err := r.bytes()
	if err != nil {
		return rec, err
	}
	if rec.body, err = parseBody(body, count, 0); err != nil {
		return rec, err
	}
	_, err = rec.lineage.owners(len(rec.body.fields))
	return rec, err
}

func parseBody(data []byte, count, depth int) (*rawBody, error) {
	if depth > maxValueDepth {
		return nil, fmt.Errorf("%w: values nested deeper than %d", ErrInvalidStream, maxValueDepth)
	}
	r := &reader{buf: data}
	// id + meta
	n, err := r.count(2)
	if err != nil {
		return nil, err
	}
	body := &rawBody{fields: make([]rawField, 0, n)}
	for i := 0; i < n; i++ {
		f, err := parseField(r, count, depth)
		if err != nil {
			return nil, err
		}
		body.fields = append(body.fields, f)
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes in record body", ErrInvalidStream, r.remaining())
	}
	return body, nil
}

func parseField(r *reader, count, depth int) (rawField, error) {
	var f rawField
	var err error
	if f.id, err = r.u16("field id"); err != nil {
		return f, err
	}
	b, err := r.u8()
	if err != nil {
		return f, err
	}
	if f.meta, err = parseMeta(b); err != nil {
		return f, err
	}

	if f.meta.fixedPlain() {
		sz, err := r.u8()
		if err != nil {
			return f, err
		}
		f.size = int(sz)
	}

	n := 1
	if f.meta.array {
		minElem := 1
		if f.meta.fixedPlain() {
			minElem = f.size
		}
		if n, err = r.count(minElem); err != nil {
			return f, err
		}
	}

	for i := 0; i < n; i++ {
		switch f.meta.category {
		case rtti.CategoryPlain, rtti.CategoryDataBlock:
			var elem []byte
			if f.meta.fixedPlain() {
				elem, err = r.raw(f.size)
			} else {
				elem, err = r.bytes()
			}
			if err != nil {
				return f, err
			}
			f.elems = append(f.elems, elem)

		case rtti.CategoryReference:
			v, err := r.varint()
			if err != nil {
				return f, err
			}
			idx := protowire.DecodeZigZag(v)
			if idx < -1 || idx >= int64(count) {
				return f, fmt.Errorf("%w: field %d references index %d of %d", ErrInvalidStream, f.id, idx, count)
			}
			f.refs = append(f.refs, int(idx))

		case rtti.CategoryValue:
			v, err := parseValue(r, count, depth+1)
			if err != nil {
				return f, err
			}
			f.values = append(f.values, v)
		}
	}
	return f, nil
}

func parseValue(r *reader, count, depth int) (*rawValue, error) {
	typeID, err := r.fixed32()
	if err != nil {
		return nil, err
	}
	if typeID == 0 {
		return nil, nil
	}
	v := &rawValue{typeID: typeID}
	if v.version, err = r.u16("version"); err != nil {
		return nil, err
	}
	if v.lineage, err = parseLineage(r); err != nil {
		return nil, err
	}
	body, err := r.bytes()
	if err != nil {
		return nil, err
	}
	if v.body, err = parseBody(body, count, depth); err != nil {
		return nil, err
	}
	if _, err := v.lineage.owners(len(v.body.fields)); err != nil {
		return nil, err
	}
	return v, nil
}

// writer appends stream primitives
type writer struct {
	buf []byte
}

func (w *writer) varint(v uint64)  { w.buf = protowire.AppendVarint(w.buf, v) }
func (w *writer) fixed32(v uint32) { w.buf = protowire.AppendFixed32(w.buf, v) }
func (w *writer) bytes(b []byte)   { w.buf = protowire.AppendBytes(w.buf, b) }
func (w *writer) u8(b byte)        { w.buf = append(w.buf, b) }
func (w *writer) zigzag(v int64)   { w.varint(protowire.EncodeZigZag(v)) }

// lineage writes the own field count and the ancestors of td
func (w *writer) lineage(td *rtti.TypeDescriptor) {
	ancestors := td.Ancestors()
	w.varint(uint64(len(td.Fields())))
	w.varint(uint64(len(ancestors)))
	for _, a := range ancestors {
		w.fixed32(a.Type.ID())
		w.varint(uint64(a.Type.Version()))
		w.varint(uint64(len(a.Type.Fields())))
	}
}

func (w *writer) header(count int) {
	w.buf = append(w.buf, Magic...)
	w.varint(FormatVersion)
	w.varint(uint64(count))
}
