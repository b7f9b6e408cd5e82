package rtti

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bigRecord struct {
	Data [300]byte
}

func TestDefaultCodecSizes(t *testing.T) {
	assert.Equal(t, 1, DefaultCodec[bool]().Size())
	assert.Equal(t, 2, DefaultCodec[uint16]().Size())
	assert.Equal(t, 8, DefaultCodec[int]().Size())
	assert.Equal(t, 8, DefaultCodec[uint]().Size())
	assert.Equal(t, 8, DefaultCodec[point]().Size())
	assert.Equal(t, -1, DefaultCodec[string]().Size())
	assert.Equal(t, -1, DefaultCodec[[]int32]().Size())
	assert.Equal(t, -1, DefaultCodec[map[string]int]().Size())
	assert.Equal(t, -1, DefaultCodec[bigRecord]().Size())
}

func TestDefaultCodecRoundTrip(t *testing.T) {
	t.Run("int", func(t *testing.T) {
		c := DefaultCodec[int]()
		b, err := c.Encode(-5)
		require.NoError(t, err)
		v, err := c.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, -5, v)
	})

	t.Run("string", func(t *testing.T) {
		type label string
		c := DefaultCodec[label]()
		b, err := c.Encode("héllo")
		require.NoError(t, err)
		assert.Equal(t, []byte("héllo"), b)
		v, err := c.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, label("héllo"), v)
	})

	t.Run("struct", func(t *testing.T) {
		c := DefaultCodec[point]()
		b, err := c.Encode(point{X: 1.5, Y: -2})
		require.NoError(t, err)
		v, err := c.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, point{X: 1.5, Y: -2}, v)
	})

	t.Run("map", func(t *testing.T) {
		c := DefaultCodec[map[string]int]()
		b, err := c.Encode(map[string]int{"a": 1})
		require.NoError(t, err)
		v, err := c.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"a": 1}, v)
	})
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, err := DefaultCodec[int]().Decode([]byte{1, 2})
	assert.Error(t, err)

	_, err = DefaultCodec[uint16]().Decode([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = DefaultCodec[uint32]().Decode([]byte{1})
	assert.Error(t, err)
}

func TestLegacyValue(t *testing.T) {
	l := NewLegacy(1)
	raw, err := DefaultCodec[bool]().Encode(true)
	require.NoError(t, err)
	l.Add(&LegacyField{ID: 5, Category: CategoryPlain, Raw: raw})
	l.Add(&LegacyField{ID: 2, Category: CategoryDataBlock, Raw: []byte{9}})

	assert.Equal(t, []uint16{2, 5}, l.IDs())
	assert.Equal(t, 2, l.Len())

	v, ok, err := LegacyValue[bool](l, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, v)

	_, ok, err = LegacyValue[bool](l, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = LegacyValue[int32](l, 2)
	assert.True(t, ok)
	assert.True(t, IsFieldKindMismatch(err))

	_, ok, err = LegacyValue[int32](nil, 2)
	assert.NoError(t, err)
	assert.False(t, ok)
}
