package serial

import (
	"errors"

	"github.com/conduit-lang/rtti/pkg/rtti"
)

type node struct {
	Value int32
	Next  *node
	Back  *node
}

func (n *node) RTTI() *rtti.TypeDescriptor { return nodeType }

type special struct {
	node
	Tag string
}

func (s *special) RTTI() *rtti.TypeDescriptor { return specialType }

type limits struct {
	Min, Max  int32
	finalized bool
}

func (l *limits) RTTI() *rtti.TypeDescriptor { return limitsType }

func (l *limits) PostDeserialize() error {
	l.finalized = true
	return nil
}

type bag struct {
	Name    string
	Count   int64
	Weights []float32
	Tags    []string
	Blob    []byte
	Chunks  [][]byte
	Limits  *limits
	Ranges  []*limits
	Items   []*node
	Owner   *node
}

func (b *bag) RTTI() *rtti.TypeDescriptor { return bagType }

// item is written by version 1 of the "item" type
type item struct {
	ID    int32
	Name  string
	Dirty bool
}

func (i *item) RTTI() *rtti.TypeDescriptor { return itemV1Type }

// itemNext is version 2 of the same type id: field 5 "dirty" was removed
type itemNext struct {
	ID       int32
	Name     string
	WasDirty bool
}

func (i *itemNext) RTTI() *rtti.TypeDescriptor { return itemV2Type }

// tagged derives from item and keeps its own version while item moves on
type tagged struct {
	item
	Label string
}

func (t *tagged) RTTI() *rtti.TypeDescriptor { return taggedV1Type }

type taggedNext struct {
	itemNext
	Label string
}

func (t *taggedNext) RTTI() *rtti.TypeDescriptor { return taggedV2Type }

// holder keeps a tagged inline
type holder struct {
	Tag *tagged
}

func (h *holder) RTTI() *rtti.TypeDescriptor { return holderV1Type }

type holderNext struct {
	Tag *taggedNext
}

func (h *holderNext) RTTI() *rtti.TypeDescriptor { return holderV2Type }

var errInvalidLimits = errors.New("max below min")

var (
	registry    = rtti.NewRegistry()
	nodeType    *rtti.TypeDescriptor
	specialType *rtti.TypeDescriptor
	limitsType  *rtti.TypeDescriptor
	bagType     *rtti.TypeDescriptor

	v1Registry = rtti.NewRegistry()
	v2Registry = rtti.NewRegistry()
	itemV1Type *rtti.TypeDescriptor
	itemV2Type *rtti.TypeDescriptor

	taggedV1Type *rtti.TypeDescriptor
	taggedV2Type *rtti.TypeDescriptor
	holderV1Type *rtti.TypeDescriptor
	holderV2Type *rtti.TypeDescriptor
)

func must(td *rtti.TypeDescriptor, err error) *rtti.TypeDescriptor {
	if err != nil {
		panic(err)
	}
	return td
}

func init() {
	nodeType = must(rtti.NewType[node](1, "node").
		Fields(
			rtti.Plain(1, "value", func(n *node) int32 { return n.Value }, func(n *node, v int32) { n.Value = v }),
			rtti.Reference(2, "next", func(n *node) *node { return n.Next }, func(n *node, v *node) { n.Next = v }),
			rtti.Reference(3, "back", func(n *node) *node { return n.Back }, func(n *node, v *node) { n.Back = v }, rtti.Weak()),
		).
		RegisterIn(registry))

	specialType = must(rtti.NewType[special](2, "special").
		Base(nodeType, func(s *special) any { return &s.node }).
		Fields(
			rtti.Plain(10, "tag", func(s *special) string { return s.Tag }, func(s *special, v string) { s.Tag = v }),
		).
		RegisterIn(registry))

	limitsType = must(rtti.NewType[limits](3, "limits").
		Fields(
			rtti.Plain(1, "min", func(l *limits) int32 { return l.Min }, func(l *limits, v int32) { l.Min = v }),
			rtti.Plain(2, "max", func(l *limits) int32 { return l.Max }, func(l *limits, v int32) { l.Max = v }),
		).
		OnDeserialized(func(obj rtti.Reflectable) error {
			l := obj.(*limits)
			if l.Max < l.Min {
				return errInvalidLimits
			}
			return nil
		}).
		RegisterIn(registry))

	bagType = must(rtti.NewType[bag](4, "bag").
		Fields(
			rtti.Plain(1, "name", func(b *bag) string { return b.Name }, func(b *bag, v string) { b.Name = v }),
			rtti.Plain(2, "count", func(b *bag) int64 { return b.Count }, func(b *bag, v int64) { b.Count = v }),
			rtti.PlainArray(3, "weights", func(b *bag) []float32 { return b.Weights }, func(b *bag, v []float32) { b.Weights = v }),
			rtti.PlainArray(4, "tags", func(b *bag) []string { return b.Tags }, func(b *bag, v []string) { b.Tags = v }),
			rtti.DataBlock(5, "blob", func(b *bag) []byte { return b.Blob }, func(b *bag, v []byte) { b.Blob = v }),
			rtti.DataBlockArray(6, "chunks", func(b *bag) [][]byte { return b.Chunks }, func(b *bag, v [][]byte) { b.Chunks = v }),
			rtti.Value(7, "limits", func(b *bag) *limits { return b.Limits }, func(b *bag, v *limits) { b.Limits = v }),
			rtti.ValueArray(8, "ranges", func(b *bag) []*limits { return b.Ranges }, func(b *bag, v []*limits) { b.Ranges = v }),
			rtti.ReferenceArray(9, "items", func(b *bag) []*node { return b.Items }, func(b *bag, v []*node) { b.Items = v }),
			rtti.Reference(10, "owner", func(b *bag) *node { return b.Owner }, func(b *bag, v *node) { b.Owner = v }, rtti.Weak()),
		).
		RegisterIn(registry))

	itemV1Type = must(rtti.NewType[item](300, "item").
		Fields(
			rtti.Plain(1, "id", func(i *item) int32 { return i.ID }, func(i *item, v int32) { i.ID = v }),
			rtti.Plain(2, "name", func(i *item) string { return i.Name }, func(i *item, v string) { i.Name = v }),
			rtti.Plain(5, "dirty", func(i *item) bool { return i.Dirty }, func(i *item, v bool) { i.Dirty = v }),
		).
		RegisterIn(v1Registry))

	itemV2Type = must(rtti.NewType[itemNext](300, "item").
		Version(2).
		Fields(
			rtti.Plain(1, "id", func(i *itemNext) int32 { return i.ID }, func(i *itemNext, v int32) { i.ID = v }),
			rtti.Plain(2, "name", func(i *itemNext) string { return i.Name }, func(i *itemNext, v string) { i.Name = v }),
		).
		Migrate(1, func(obj rtti.Reflectable, legacy *rtti.Legacy) error {
			dirty, ok, err := rtti.LegacyValue[bool](legacy, 5)
			if err != nil {
				return err
			}
			if ok {
				obj.(*itemNext).WasDirty = dirty
			}
			return nil
		}).
		RegisterIn(v2Registry))

	taggedV1Type = must(rtti.NewType[tagged](301, "tagged").
		Base(itemV1Type, func(t *tagged) any { return &t.item }).
		Fields(
			rtti.Plain(20, "label", func(t *tagged) string { return t.Label }, func(t *tagged, v string) { t.Label = v }),
		).
		RegisterIn(v1Registry))

	taggedV2Type = must(rtti.NewType[taggedNext](301, "tagged").
		Base(itemV2Type, func(t *taggedNext) any { return &t.itemNext }).
		Fields(
			rtti.Plain(20, "label", func(t *taggedNext) string { return t.Label }, func(t *taggedNext, v string) { t.Label = v }),
		).
		RegisterIn(v2Registry))

	holderV1Type = must(rtti.NewType[holder](302, "holder").
		Fields(
			rtti.Value(1, "tag", func(h *holder) *tagged { return h.Tag }, func(h *holder, v *tagged) { h.Tag = v }),
		).
		RegisterIn(v1Registry))

	holderV2Type = must(rtti.NewType[holderNext](302, "holder").
		Fields(
			rtti.Value(1, "tag", func(h *holderNext) *taggedNext { return h.Tag }, func(h *holderNext, v *taggedNext) { h.Tag = v }),
		).
		RegisterIn(v2Registry))
}
