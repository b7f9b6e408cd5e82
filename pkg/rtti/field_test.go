package rtti

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func field(t *testing.T, td *TypeDescriptor, name string) *FieldDescriptor {
	t.Helper()
	f, err := td.FieldByName(name)
	require.NoError(t, err)
	return f
}

func TestFieldMetadata(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		array    bool
		dynamic  bool
		size     int
		weak     bool
	}{
		{"count", CategoryPlain, false, false, 4, false},
		{"name", CategoryPlain, false, true, 0, false},
		{"scores", CategoryPlain, true, false, 8, false},
		{"pos", CategoryPlain, false, false, 8, false},
		{"blob", CategoryDataBlock, false, true, 0, false},
		{"chunks", CategoryDataBlock, true, true, 0, false},
		{"opts", CategoryValue, false, true, 0, false},
		{"next", CategoryReference, false, false, 0, true},
		{"kids", CategoryReference, true, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := field(t, sampleType, tt.name)
			assert.Equal(t, tt.category, f.Category())
			assert.Equal(t, tt.array, f.IsArray())
			assert.Equal(t, tt.dynamic, f.HasDynamicSize())
			assert.Equal(t, tt.size, f.TypeSize())
			assert.Equal(t, tt.weak, f.IsWeakRef())
			assert.Same(t, sampleType, f.Owner())
		})
	}
}

func TestFieldGetSet(t *testing.T) {
	s := &sample{}

	require.NoError(t, field(t, sampleType, "count").Set(s, int32(42)))
	require.NoError(t, field(t, sampleType, "name").Set(s, "hello"))
	require.NoError(t, field(t, sampleType, "pos").Set(s, point{X: 1, Y: 2}))

	assert.Equal(t, int32(42), s.Count)
	assert.Equal(t, "hello", s.Name)
	assert.Equal(t, point{X: 1, Y: 2}, s.Pos)

	v, err := field(t, sampleType, "count").Get(s)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestFieldSetWrongValueType(t *testing.T) {
	s := &sample{}
	err := field(t, sampleType, "count").Set(s, "not a number")
	require.Error(t, err)
	assert.True(t, IsFieldKindMismatch(err))

	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "sample", fieldErr.Type)
	assert.Equal(t, "count", fieldErr.Field)
	assert.Equal(t, "Set", fieldErr.Op)
}

func TestFieldWrongOwner(t *testing.T) {
	_, err := field(t, sampleType, "count").Get(&options{})
	require.Error(t, err)
	assert.True(t, IsFieldKindMismatch(err))

	_, err = field(t, sampleType, "count").Get(nil)
	assert.True(t, IsFieldKindMismatch(err))
}

func TestArraySizeOnScalar(t *testing.T) {
	s := &sample{}
	_, err := field(t, sampleType, "count").ArraySize(s)
	require.Error(t, err)
	assert.True(t, IsNotAnArray(err))

	err = field(t, sampleType, "opts").SetArraySize(s, 3)
	assert.True(t, IsNotAnArray(err))

	_, err = field(t, sampleType, "name").GetAt(s, 0)
	assert.True(t, IsNotAnArray(err))
}

func TestDataBlockOnPlainField(t *testing.T) {
	s := &sample{}
	err := field(t, sampleType, "count").Set(s, Block{1, 2, 3})
	require.Error(t, err)
	assert.True(t, IsFieldKindMismatch(err))

	err = field(t, sampleType, "count").SetDataBlock(s, []byte{1})
	assert.True(t, IsFieldKindMismatch(err))

	require.NoError(t, field(t, sampleType, "blob").SetDataBlock(s, []byte{1, 2, 3}))
	assert.Equal(t, []byte{1, 2, 3}, s.Blob)
}

func TestArrayAccess(t *testing.T) {
	s := &sample{Scores: []float64{1.5}}
	scores := field(t, sampleType, "scores")

	require.NoError(t, scores.SetArraySize(s, 3))
	n, err := scores.ArraySize(s)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []float64{1.5, 0, 0}, s.Scores)

	require.NoError(t, scores.SetAt(s, 2, 9.0))
	v, err := scores.GetAt(s, 2)
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)

	_, err = scores.GetAt(s, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	err = scores.SetArraySize(s, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	require.NoError(t, scores.SetArraySize(s, 1))
	assert.Equal(t, []float64{1.5}, s.Scores)
}

func TestReferenceFields(t *testing.T) {
	a, b := &sample{Name: "a"}, &sample{Name: "b"}
	next := field(t, sampleType, "next")

	v, err := next.Get(a)
	require.NoError(t, err)
	assert.Nil(t, v, "typed nil pointer comes back as untyped nil")

	require.NoError(t, next.Set(a, b))
	assert.Same(t, b, a.Next)

	require.NoError(t, next.Set(a, nil))
	assert.Nil(t, a.Next)

	err = next.Set(a, &options{})
	assert.True(t, IsFieldKindMismatch(err))

	kids := field(t, sampleType, "kids")
	require.NoError(t, kids.SetArraySize(a, 2))
	require.NoError(t, kids.SetAt(a, 1, b))
	assert.Equal(t, []*sample{nil, b}, a.Kids)
}

func TestPlainMarshal(t *testing.T) {
	s := &sample{Count: 7, Scores: []float64{2}}

	b, err := field(t, sampleType, "count").MarshalPlain(s, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0, 0, 0}, b)

	require.NoError(t, field(t, sampleType, "count").UnmarshalPlain(s, 0, []byte{9, 0, 0, 0}))
	assert.Equal(t, int32(9), s.Count)

	b, err = field(t, sampleType, "scores").MarshalPlain(s, 0)
	require.NoError(t, err)
	assert.Len(t, b, 8)

	_, err = field(t, sampleType, "blob").MarshalPlain(s, 0)
	assert.True(t, IsFieldKindMismatch(err))
}

func TestCheckHelpers(t *testing.T) {
	assert.NoError(t, field(t, sampleType, "count").CheckIsPlain(false))
	assert.Error(t, field(t, sampleType, "count").CheckIsPlain(true))
	assert.NoError(t, field(t, sampleType, "opts").CheckIsComplex(false))
	assert.NoError(t, field(t, sampleType, "kids").CheckIsComplexPtr(true))
	assert.Error(t, field(t, sampleType, "kids").CheckIsComplex(true))
	assert.NoError(t, field(t, sampleType, "blob").CheckIsDataBlock())
	assert.Error(t, field(t, sampleType, "chunks").CheckIsDataBlock())
	assert.NoError(t, field(t, sampleType, "chunks").CheckIsArray(true))
	assert.True(t, IsFieldKindMismatch(field(t, sampleType, "name").CheckIsArray(true)))
}

func TestCustomCodec(t *testing.T) {
	type tagged struct {
		Level int32
	}
	f := Plain(1, "level", func(o *tagged) int32 { return o.Level }, func(o *tagged, v int32) { o.Level = v },
		WithCodec[int32](wordCodec[int32]{signed: true}))
	require.NoError(t, f.err)
	assert.Equal(t, 8, f.TypeSize())

	bad := Plain(2, "bad", func(o *tagged) int32 { return o.Level }, func(o *tagged, v int32) { o.Level = v },
		WithCodec[string](stringCodec[string]{}))
	assert.ErrorIs(t, bad.err, ErrFieldKindMismatch)
}
