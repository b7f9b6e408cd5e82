package serial

import (
	"bytes"
	"fmt"

	"github.com/conduit-lang/rtti/pkg/rtti"
	"go.uber.org/zap"
)

// Phase names a step of encoding or decoding
type Phase int

const (
	// PhaseDiscovering walks the graph and assigns stream indexes
	PhaseDiscovering Phase = iota
	// PhaseEmitting writes one record per index
	PhaseEmitting
	// PhaseScanning reads record headers and collects reference edges
	PhaseScanning
	// PhaseAllocating creates one default instance per record
	PhaseAllocating
	// PhasePopulating assigns fields in dependency order
	PhasePopulating
	// PhaseDone runs post-deserialize hooks
	PhaseDone
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseDiscovering:
		return "discovering"
	case PhaseEmitting:
		return "emitting"
	case PhaseScanning:
		return "scanning"
	case PhaseAllocating:
		return "allocating"
	case PhasePopulating:
		return "populating"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Decoder reads object graphs written by an Encoder. A Decoder holds no
// per-stream state and may be used from several goroutines.
type Decoder struct {
	opts *options
}

// NewDecoder creates a decoder
func NewDecoder(opts ...Option) *Decoder {
	return &Decoder{opts: newOptions(opts)}
}

// Unmarshal decodes a stream with a one-off decoder
func Unmarshal(data []byte, opts ...Option) (rtti.Reflectable, error) {
	return NewDecoder(opts...).Decode(data)
}

// decodeState is the per-call record and instance table
type decodeState struct {
	opts      *options
	records   []rawRecord
	types     []*rtti.TypeDescriptor
	instances []rtti.Reflectable
	// finished lists instances and inline values in the order their
	// population completed
	finished []rtti.Reflectable
}

// Decode rebuilds the graph and returns the root instance (stream index 0).
// On any error every allocated instance is discarded.
func (d *Decoder) Decode(data []byte) (rtti.Reflectable, error) {
	log := d.opts.logger
	s := &decodeState{opts: d.opts}

	// Scanning
	log.Debug("scanning stream", zap.Int("bytes", len(data)))
	order, err := s.scan(data)
	if err != nil {
		return nil, err
	}

	// Allocating
	log.Debug("allocating instances", zap.Int("instances", len(s.records)))
	s.instances = make([]rtti.Reflectable, len(s.records))
	for i, td := range s.types {
		s.instances[i] = td.NewInstance()
		if rtti.IsNil(s.instances[i]) {
			return nil, streamErr(PhaseAllocating, i, td.ID(), fmt.Errorf("factory of %s returned nil", td.Name()))
		}
	}

	// Populating
	log.Debug("populating instances", zap.Ints("order", order))
	for _, i := range order {
		rec := s.records[i]
		if err := s.populate(s.instances[i], s.types[i], rec.version, rec.lineage, rec.body, 0); err != nil {
			return nil, streamErr(PhasePopulating, i, rec.typeID, err)
		}
		s.finished = append(s.finished, s.instances[i])
	}

	// Done
	for _, obj := range s.finished {
		if err := s.opts.hooks.run(HookPostDeserialize, obj); err != nil {
			return nil, streamErr(PhaseDone, -1, obj.RTTI().ID(), err)
		}
	}

	log.Debug("decoded object graph", zap.Int("instances", len(s.instances)))
	return s.instances[0], nil
}

// scan parses every record, resolves its type, checks versions and returns
// the population order
func (s *decodeState) scan(data []byte) ([]int, error) {
	h, records, err := parseStream(data)
	if err != nil {
		return nil, streamErr(PhaseScanning, -1, 0, err)
	}
	s.records = records
	s.types = make([]*rtti.TypeDescriptor, h.count)

	var edges []edge
	for i, rec := range records {
		td, err := s.resolve(rec.typeID, rec.version, rec.lineage)
		if err != nil {
			return nil, streamErr(PhaseScanning, i, rec.typeID, err)
		}
		s.types[i] = td
		if edges, err = s.collect(i, rec.body, edges); err != nil {
			return nil, streamErr(PhaseScanning, i, rec.typeID, err)
		}
	}

	g := newRefGraph(h.count, edges)
	if cycles := g.detectCycles(); len(cycles) > 0 {
		label := func(i int) string { return fmt.Sprintf("#%d %s", i, s.types[i].Name()) }
		return nil, streamErr(PhaseScanning, -1, 0,
			fmt.Errorf("%w:\n%s", ErrCircularStrongReference, formatCycles(cycles, label)))
	}
	order, err := g.topologicalSort()
	if err != nil {
		return nil, streamErr(PhaseScanning, -1, 0, err)
	}
	return order, nil
}

// resolve looks up a record type and rejects a record whose type or any
// ancestor was written by a newer schema than the registered one. Stored
// bases that the type no longer derives from are ignored.
func (s *decodeState) resolve(typeID uint32, version uint16, lin lineage) (*rtti.TypeDescriptor, error) {
	td, ok := s.opts.registry.ByID(typeID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTypeID, typeID)
	}
	if version > td.Version() {
		return nil, fmt.Errorf("%w: %s stored as v%d, registered v%d", ErrSchemaTooNew, td.Name(), version, td.Version())
	}
	for _, b := range lin.bases {
		a, ok := ancestor(td, b.typeID)
		if !ok {
			continue
		}
		if b.version > a.Type.Version() {
			return nil, fmt.Errorf("%w: base %s of %s stored as v%d, registered v%d",
				ErrSchemaTooNew, a.Type.Name(), td.Name(), b.version, a.Type.Version())
		}
	}
	return td, nil
}

// ancestor finds the base of td with the given type id
func ancestor(td *rtti.TypeDescriptor, typeID uint32) (rtti.Ancestor, bool) {
	for _, a := range td.Ancestors() {
		if a.Type.ID() == typeID {
			return a, true
		}
	}
	return rtti.Ancestor{}, false
}

// collect appends the reference edges of record from, including references
// held by inline values, and validates the types of those values
func (s *decodeState) collect(from int, body *rawBody, edges []edge) ([]edge, error) {
	for i := range body.fields {
		f := &body.fields[i]
		for _, to := range f.refs {
			if to >= 0 {
				edges = append(edges, edge{from: from, to: to, weak: f.meta.weak})
			}
		}
		for _, v := range f.values {
			if v == nil {
				continue
			}
			if _, err := s.resolve(v.typeID, v.version, v.lineage); err != nil {
				return nil, err
			}
			var err error
			if edges, err = s.collect(from, v.body, edges); err != nil {
				return nil, err
			}
		}
	}
	return edges, nil
}

// outdated is a type of the record hierarchy stored with an older version
type outdated struct {
	td      *rtti.TypeDescriptor
	project func(rtti.Reflectable) (rtti.Reflectable, error)
	legacy  *rtti.Legacy
}

// populate assigns the fields of a record to obj. Fields the current schema
// no longer declares are kept as legacy fields of the type that declared them
// when that type was stored with an older version. Migrations then run for
// every outdated type, deepest base first, each on its own part of obj.
func (s *decodeState) populate(obj rtti.Reflectable, td *rtti.TypeDescriptor, version uint16, lin lineage, body *rawBody, depth int) error {
	owners, err := lin.owners(len(body.fields))
	if err != nil {
		return err
	}

	// owner position to outdated type; nil when current or no longer a base
	stale := make([]*outdated, len(lin.bases)+1)
	if version < td.Version() {
		stale[0] = &outdated{td: td, legacy: rtti.NewLegacy(version)}
	}
	for j, b := range lin.bases {
		a, ok := ancestor(td, b.typeID)
		if !ok || b.version >= a.Type.Version() {
			continue
		}
		stale[j+1] = &outdated{td: a.Type, project: a.Project, legacy: rtti.NewLegacy(b.version)}
	}

	for i := range body.fields {
		raw := &body.fields[i]
		f, err := td.Field(raw.id)
		if err != nil || !raw.meta.matches(f, raw.size) {
			// removed or retyped field
			if o := stale[owners[i]]; o != nil {
				keepLegacy(o.legacy, raw)
			}
			continue
		}
		if err := s.assign(obj, f, raw, depth); err != nil {
			return err
		}
	}

	for j := len(stale) - 1; j >= 0; j-- {
		if stale[j] == nil {
			continue
		}
		if err := migrate(obj, stale[j]); err != nil {
			return err
		}
	}
	return nil
}

// migrate upgrades the part of obj described by o
func migrate(obj rtti.Reflectable, o *outdated) error {
	target := obj
	if o.project != nil {
		var err error
		if target, err = o.project(obj); err != nil {
			return fmt.Errorf("migrate %s: %w", o.td.Name(), err)
		}
	}
	for _, m := range o.td.MigrationsFrom(o.legacy.Version) {
		if err := m.Apply(target, o.legacy); err != nil {
			return fmt.Errorf("migrate %s from v%d: %w", o.td.Name(), m.From, err)
		}
	}
	return nil
}

func (s *decodeState) assign(obj rtti.Reflectable, f *rtti.FieldDescriptor, raw *rawField, depth int) error {
	n := raw.count()
	if f.IsArray() {
		if err := f.SetArraySize(obj, n); err != nil {
			return err
		}
	}

	for i := 0; i < n; i++ {
		var v any
		switch f.Category() {
		case rtti.CategoryPlain:
			if err := f.UnmarshalPlain(obj, i, raw.elems[i]); err != nil {
				return err
			}
			continue

		case rtti.CategoryDataBlock:
			v = rtti.Block(bytes.Clone(raw.elems[i]))

		case rtti.CategoryReference:
			if idx := raw.refs[i]; idx >= 0 {
				v = s.instances[idx]
			}

		case rtti.CategoryValue:
			if rv := raw.values[i]; rv != nil {
				inst, err := s.value(rv, depth+1)
				if err != nil {
					return fmt.Errorf("field %s: %w", f.Name(), err)
				}
				v = inst
			}
		}

		var err error
		if f.IsArray() {
			err = f.SetAt(obj, i, v)
		} else {
			err = f.Set(obj, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// value builds and populates an inline value
func (s *decodeState) value(rv *rawValue, depth int) (rtti.Reflectable, error) {
	td, err := s.resolve(rv.typeID, rv.version, rv.lineage)
	if err != nil {
		return nil, err
	}
	inst := td.NewInstance()
	if err := s.populate(inst, td, rv.version, rv.lineage, rv.body, depth); err != nil {
		return nil, err
	}
	s.finished = append(s.finished, inst)
	return inst, nil
}

// keepLegacy stores the plain and data block payloads of an undeclared field
func keepLegacy(legacy *rtti.Legacy, raw *rawField) {
	switch raw.meta.category {
	case rtti.CategoryPlain, rtti.CategoryDataBlock:
	default:
		return
	}
	lf := &rtti.LegacyField{
		ID:       raw.id,
		Category: raw.meta.category,
		Array:    raw.meta.array,
	}
	if raw.meta.array {
		for _, e := range raw.elems {
			lf.Elements = append(lf.Elements, bytes.Clone(e))
		}
	} else if len(raw.elems) == 1 {
		lf.Raw = bytes.Clone(raw.elems[0])
	}
	legacy.Add(lf)
}
