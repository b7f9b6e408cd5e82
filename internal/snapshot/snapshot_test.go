package snapshot

import (
	"context"
	"testing"

	"github.com/conduit-lang/rtti/pkg/rtti"
	"github.com/conduit-lang/rtti/pkg/serial"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain() *page {
	a := &page{Title: "a"}
	b := &page{Title: "b", Prev: a}
	a.Next = b
	return a
}

func TestCaptureRestore(t *testing.T) {
	snap, err := Capture(chain(), "chain", serial.WithRegistry(registry))
	require.NoError(t, err)

	assert.Equal(t, "chain", snap.Name)
	assert.Equal(t, "page", snap.RootType)
	assert.Equal(t, 2, snap.Records)
	assert.Len(t, snap.Checksum, 64)
	assert.NoError(t, snap.Verify())

	obj, err := Restore(snap, serial.WithRegistry(registry))
	require.NoError(t, err)

	root := obj.(*page)
	assert.Equal(t, "a", root.Title)
	require.NotNil(t, root.Next)
	assert.Equal(t, "b", root.Next.Title)
	assert.Same(t, root, root.Next.Prev)
}

func TestRestoreChecksumMismatch(t *testing.T) {
	snap, err := Capture(chain(), "chain", serial.WithRegistry(registry))
	require.NoError(t, err)

	snap.Payload[len(snap.Payload)-1] ^= 0xff
	_, err = Restore(snap, serial.WithRegistry(registry))
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestFromStream(t *testing.T) {
	t.Run("rejects garbage", func(t *testing.T) {
		_, err := FromStream([]byte("nope"), "bad", serial.WithRegistry(registry))
		assert.Error(t, err)
	})

	t.Run("unknown root type", func(t *testing.T) {
		data, err := serial.Marshal(chain(), serial.WithRegistry(registry))
		require.NoError(t, err)

		snap, err := FromStream(data, "foreign", serial.WithRegistry(rtti.NewRegistry()))
		require.NoError(t, err)
		assert.Equal(t, "#7", snap.RootType)
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	snap, err := Capture(chain(), "chain", serial.WithRegistry(registry))
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, snap))

	obj, err := Load(ctx, store, snap.ID, serial.WithRegistry(registry))
	require.NoError(t, err)
	assert.Equal(t, "a", obj.(*page).Title)
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, Checksum([]byte("x")), Checksum([]byte("x")))
	assert.NotEqual(t, Checksum([]byte("x")), Checksum([]byte("y")))
}

func TestUniqueIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Equal(t, []uuid.UUID{a, b}, uniqueIDs([]uuid.UUID{a, b, a, b, a}))
	assert.Empty(t, uniqueIDs(nil))
}
