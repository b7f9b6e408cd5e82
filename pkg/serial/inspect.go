package serial

import (
	"github.com/conduit-lang/rtti/pkg/rtti"
	"go.uber.org/zap"
)

// StreamInfo describes a stream without building any instance
type StreamInfo struct {
	FormatVersion uint64       `json:"format_version"`
	Records       []RecordInfo `json:"records"`
}

// RecordInfo describes one record
type RecordInfo struct {
	Index    int         `json:"index"`
	TypeID   uint32      `json:"type_id"`
	TypeName string      `json:"type_name,omitempty"`
	Version  uint16      `json:"version"`
	Known    bool        `json:"known"`
	Bases    []BaseInfo  `json:"bases,omitempty"`
	Fields   []FieldInfo `json:"fields"`
}

// BaseInfo describes one ancestor as the record stored it
type BaseInfo struct {
	TypeID   uint32 `json:"type_id"`
	TypeName string `json:"type_name,omitempty"`
	Version  uint16 `json:"version"`
	Fields   int    `json:"fields"`
}

// FieldInfo describes one field record. Name is empty when the type is
// unknown or no longer declares the field.
type FieldInfo struct {
	ID       uint16        `json:"id"`
	Name     string        `json:"name,omitempty"`
	Category rtti.Category `json:"-"`
	Kind     string        `json:"category"`
	Array    bool          `json:"array"`
	Weak     bool          `json:"weak,omitempty"`
	Count    int           `json:"count"`
	Refs     []int         `json:"refs,omitempty"`
}

// Inspect parses a stream and reports its records. Types are resolved
// through the registry option when possible, but unknown types are not an
// error here.
func Inspect(data []byte, opts ...Option) (*StreamInfo, error) {
	o := newOptions(opts)
	h, records, err := parseStream(data)
	if err != nil {
		return nil, streamErr(PhaseScanning, -1, 0, err)
	}

	info := &StreamInfo{FormatVersion: h.version}
	for i, rec := range records {
		ri := RecordInfo{Index: i, TypeID: rec.typeID, Version: rec.version}
		td, known := o.registry.ByID(rec.typeID)
		if known {
			ri.TypeName = td.Name()
			ri.Known = true
		}
		for _, b := range rec.lineage.bases {
			bi := BaseInfo{TypeID: b.typeID, Version: b.version, Fields: b.fields}
			if btd, ok := o.registry.ByID(b.typeID); ok {
				bi.TypeName = btd.Name()
			}
			ri.Bases = append(ri.Bases, bi)
		}
		for j := range rec.body.fields {
			raw := &rec.body.fields[j]
			fi := FieldInfo{
				ID:       raw.id,
				Category: raw.meta.category,
				Kind:     raw.meta.category.String(),
				Array:    raw.meta.array,
				Weak:     raw.meta.weak,
				Count:    raw.count(),
				Refs:     raw.refs,
			}
			if known {
				if f, err := td.Field(raw.id); err == nil {
					fi.Name = f.Name()
				}
			}
			ri.Fields = append(ri.Fields, fi)
		}
		info.Records = append(info.Records, ri)
	}
	o.logger.Debug("inspected stream", zap.Int("records", len(info.Records)))
	return info, nil
}
