package rtti

type point struct {
	X, Y float32
}

type options struct {
	Min, Max int32
}

func (o *options) RTTI() *TypeDescriptor { return optionsType }

type sample struct {
	Count  int32
	Name   string
	Scores []float64
	Pos    point
	Blob   []byte
	Chunks [][]byte
	Opts   *options
	Next   *sample
	Kids   []*sample
}

func (s *sample) RTTI() *TypeDescriptor { return sampleType }

type shape struct {
	Width  int32
	Height int32
}

func (s *shape) RTTI() *TypeDescriptor { return shapeType }

type box struct {
	shape
	Label string
}

func (b *box) RTTI() *TypeDescriptor { return boxType }

// notReflectable has no RTTI method
type notReflectable struct {
	A int32
}

var (
	testRegistry = NewRegistry()
	optionsType  *TypeDescriptor
	sampleType   *TypeDescriptor
	shapeType    *TypeDescriptor
	boxType      *TypeDescriptor
)

func mustRegister(td *TypeDescriptor, err error) *TypeDescriptor {
	if err != nil {
		panic(err)
	}
	return td
}

func init() {
	optionsType = mustRegister(NewType[options](100, "options").
		Fields(
			Plain(1, "min", func(o *options) int32 { return o.Min }, func(o *options, v int32) { o.Min = v }),
			Plain(2, "max", func(o *options) int32 { return o.Max }, func(o *options, v int32) { o.Max = v }),
		).
		RegisterIn(testRegistry))

	sampleType = mustRegister(NewType[sample](101, "sample").
		Version(3).
		Fields(
			Plain(1, "count", func(s *sample) int32 { return s.Count }, func(s *sample, v int32) { s.Count = v }),
			Plain(2, "name", func(s *sample) string { return s.Name }, func(s *sample, v string) { s.Name = v }),
			PlainArray(3, "scores", func(s *sample) []float64 { return s.Scores }, func(s *sample, v []float64) { s.Scores = v }),
			Plain(4, "pos", func(s *sample) point { return s.Pos }, func(s *sample, v point) { s.Pos = v }),
			DataBlock(5, "blob", func(s *sample) []byte { return s.Blob }, func(s *sample, v []byte) { s.Blob = v }),
			DataBlockArray(6, "chunks", func(s *sample) [][]byte { return s.Chunks }, func(s *sample, v [][]byte) { s.Chunks = v }),
			Value(7, "opts", func(s *sample) *options { return s.Opts }, func(s *sample, v *options) { s.Opts = v }),
			Reference(8, "next", func(s *sample) *sample { return s.Next }, func(s *sample, v *sample) { s.Next = v }, Weak()),
			ReferenceArray(9, "kids", func(s *sample) []*sample { return s.Kids }, func(s *sample, v []*sample) { s.Kids = v }),
		).
		Migrate(2, func(Reflectable, *Legacy) error { return nil }).
		Migrate(1, func(Reflectable, *Legacy) error { return nil }).
		RegisterIn(testRegistry))

	shapeType = mustRegister(NewType[shape](102, "shape").
		Fields(
			Plain(1, "width", func(s *shape) int32 { return s.Width }, func(s *shape, v int32) { s.Width = v }),
			Plain(2, "height", func(s *shape) int32 { return s.Height }, func(s *shape, v int32) { s.Height = v }),
		).
		OnDeserialized(func(obj Reflectable) error {
			s := obj.(*shape)
			if s.Width < 0 {
				s.Width = 0
			}
			return nil
		}).
		RegisterIn(testRegistry))

	boxType = mustRegister(NewType[box](103, "box").
		Base(shapeType, func(b *box) any { return &b.shape }).
		Fields(
			Plain(10, "label", func(b *box) string { return b.Label }, func(b *box, v string) { b.Label = v }),
		).
		Factory(func() *box { return &box{Label: "untitled"} }).
		RegisterIn(testRegistry))
}
