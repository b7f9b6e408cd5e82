package serial

import (
	"fmt"

	"github.com/conduit-lang/rtti/pkg/rtti"
	"go.uber.org/zap"
)

// Encoder writes object graphs. An Encoder holds no per-graph state and may
// be used from several goroutines on distinct graphs.
type Encoder struct {
	opts *options
}

// NewEncoder creates an encoder
func NewEncoder(opts ...Option) *Encoder {
	return &Encoder{opts: newOptions(opts)}
}

// Marshal encodes the graph reachable from root with a one-off encoder
func Marshal(root rtti.Reflectable, opts ...Option) ([]byte, error) {
	return NewEncoder(opts...).Encode(root)
}

// encodeState is the per-call index table
type encodeState struct {
	opts  *options
	index map[rtti.Reflectable]int
	order []rtti.Reflectable
}

// Encode discovers every instance reachable from root through reference
// fields, assigns stream indexes in depth-first order starting with root at
// 0, and writes one record per instance in index order.
func (e *Encoder) Encode(root rtti.Reflectable) ([]byte, error) {
	if rtti.IsNil(root) {
		return nil, streamErr(PhaseDiscovering, -1, 0, fmt.Errorf("%w: nil root", ErrInvalidStream))
	}
	log := e.opts.logger

	s := &encodeState{
		opts:  e.opts,
		index: make(map[rtti.Reflectable]int),
	}

	log.Debug("discovering object graph", zap.String("root", root.RTTI().Name()))
	if err := s.visit(root); err != nil {
		return nil, err
	}

	log.Debug("emitting records", zap.Int("instances", len(s.order)))
	w := &writer{}
	w.header(len(s.order))
	for i, obj := range s.order {
		td := obj.RTTI()
		body, err := s.body(td, obj)
		if err != nil {
			return nil, streamErr(PhaseEmitting, i, td.ID(), err)
		}
		w.fixed32(td.ID())
		w.varint(uint64(td.Version()))
		w.lineage(td)
		w.bytes(body)
	}

	log.Debug("encoded object graph", zap.Int("instances", len(s.order)), zap.Int("bytes", len(w.buf)))
	return w.buf, nil
}

// visit assigns the next index to obj on first sight and walks its references
func (s *encodeState) visit(obj rtti.Reflectable) error {
	if _, seen := s.index[obj]; seen {
		return nil
	}
	td, err := s.resolve(obj)
	if err != nil {
		return streamErr(PhaseDiscovering, len(s.order), 0, err)
	}
	idx := len(s.order)
	s.index[obj] = idx
	s.order = append(s.order, obj)

	if err := s.opts.hooks.run(HookPreSerialize, obj); err != nil {
		return streamErr(PhaseDiscovering, idx, td.ID(), err)
	}
	if err := s.walk(td, obj, 0); err != nil {
		return streamErr(PhaseDiscovering, idx, td.ID(), err)
	}
	return nil
}

// walk visits the reference targets of obj, including those held by inline values
func (s *encodeState) walk(td *rtti.TypeDescriptor, obj rtti.Reflectable, depth int) error {
	if depth > maxValueDepth {
		return fmt.Errorf("%w: values nested deeper than %d", ErrInvalidStream, maxValueDepth)
	}
	for _, f := range td.AllFields() {
		switch f.Category() {
		case rtti.CategoryReference:
			targets, err := objects(f, obj)
			if err != nil {
				return err
			}
			for _, target := range targets {
				if target != nil {
					if err := s.visit(target); err != nil {
						return err
					}
				}
			}

		case rtti.CategoryValue:
			values, err := objects(f, obj)
			if err != nil {
				return err
			}
			for _, v := range values {
				if v == nil {
					continue
				}
				vtd, err := s.resolve(v)
				if err != nil {
					return err
				}
				if err := s.opts.hooks.run(HookPreSerialize, v); err != nil {
					return err
				}
				if err := s.walk(vtd, v, depth+1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// resolve returns the descriptor of obj and checks that the registry can read it back
func (s *encodeState) resolve(obj rtti.Reflectable) (*rtti.TypeDescriptor, error) {
	td := obj.RTTI()
	if td == nil {
		return nil, fmt.Errorf("%w: %T has no type descriptor", ErrUnknownTypeID, obj)
	}
	if registered, ok := s.opts.registry.ByID(td.ID()); !ok || registered != td {
		return nil, fmt.Errorf("%w: %s (id %d) is not registered", ErrUnknownTypeID, td.Name(), td.ID())
	}
	return td, nil
}

// body writes the field list of obj
func (s *encodeState) body(td *rtti.TypeDescriptor, obj rtti.Reflectable) ([]byte, error) {
	fields := td.AllFields()
	w := &writer{}
	w.varint(uint64(len(fields)))
	for _, f := range fields {
		w.varint(uint64(f.ID()))
		w.u8(metaFor(f))
		if err := s.payload(w, f, obj); err != nil {
			return nil, err
		}
	}
	return w.buf, nil
}

func (s *encodeState) payload(w *writer, f *rtti.FieldDescriptor, obj rtti.Reflectable) error {
	n := 1
	if f.IsArray() {
		var err error
		if n, err = f.ArraySize(obj); err != nil {
			return err
		}
	}
	fixed := f.Category() == rtti.CategoryPlain && !f.HasDynamicSize()
	if fixed {
		w.u8(byte(f.TypeSize()))
	}
	if f.IsArray() {
		w.varint(uint64(n))
	}

	for i := 0; i < n; i++ {
		switch f.Category() {
		case rtti.CategoryPlain:
			raw, err := f.MarshalPlain(obj, i)
			if err != nil {
				return err
			}
			if fixed {
				if len(raw) != f.TypeSize() {
					return fmt.Errorf("field %s: codec wrote %d bytes, declared %d", f.Name(), len(raw), f.TypeSize())
				}
				w.buf = append(w.buf, raw...)
			} else {
				w.bytes(raw)
			}

		case rtti.CategoryDataBlock:
			v, err := element(f, obj, i)
			if err != nil {
				return err
			}
			b, _ := v.([]byte)
			w.bytes(b)

		case rtti.CategoryValue:
			v, err := element(f, obj, i)
			if err != nil {
				return err
			}
			if err := s.value(w, v); err != nil {
				return err
			}

		case rtti.CategoryReference:
			v, err := element(f, obj, i)
			if err != nil {
				return err
			}
			idx := -1
			if v != nil {
				idx = s.index[v.(rtti.Reflectable)]
			}
			w.zigzag(int64(idx))
		}
	}
	return nil
}

// value writes an inline value; nil is type id 0 alone
func (s *encodeState) value(w *writer, v any) error {
	if v == nil {
		w.fixed32(0)
		return nil
	}
	obj := v.(rtti.Reflectable)
	td := obj.RTTI()
	body, err := s.body(td, obj)
	if err != nil {
		return err
	}
	w.fixed32(td.ID())
	w.varint(uint64(td.Version()))
	w.lineage(td)
	w.bytes(body)
	return nil
}

// element reads a scalar field or element i of an array field
func element(f *rtti.FieldDescriptor, obj rtti.Reflectable, i int) (any, error) {
	if f.IsArray() {
		return f.GetAt(obj, i)
	}
	return f.Get(obj)
}

// objects returns the non-nil and nil objects held by a value or reference field
func objects(f *rtti.FieldDescriptor, obj rtti.Reflectable) ([]rtti.Reflectable, error) {
	n := 1
	if f.IsArray() {
		var err error
		if n, err = f.ArraySize(obj); err != nil {
			return nil, err
		}
	}
	out := make([]rtti.Reflectable, 0, n)
	for i := 0; i < n; i++ {
		v, err := element(f, obj, i)
		if err != nil {
			return nil, err
		}
		if v == nil {
			out = append(out, nil)
			continue
		}
		r, ok := v.(rtti.Reflectable)
		if !ok {
			return nil, fmt.Errorf("%w: field %s holds %T", rtti.ErrFieldKindMismatch, f.Name(), v)
		}
		out = append(out, r)
	}
	return out, nil
}
