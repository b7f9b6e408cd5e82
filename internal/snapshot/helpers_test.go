package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/conduit-lang/rtti/pkg/rtti"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	Title string
	Next  *page
	Prev  *page
}

func (p *page) RTTI() *rtti.TypeDescriptor { return pageType }

var (
	registry = rtti.NewRegistry()
	pageType *rtti.TypeDescriptor
)

func init() {
	var err error
	pageType, err = rtti.NewType[page](7, "page").
		Fields(
			rtti.Plain(1, "title", func(p *page) string { return p.Title }, func(p *page, v string) { p.Title = v }),
			rtti.Reference(2, "next", func(p *page) *page { return p.Next }, func(p *page, v *page) { p.Next = v }),
			rtti.Reference(3, "prev", func(p *page) *page { return p.Prev }, func(p *page, v *page) { p.Prev = v }, rtti.Weak()),
		).
		RegisterIn(registry)
	if err != nil {
		panic(err)
	}
}

func newSnapshot(name string, created time.Time, payload []byte) *Snapshot {
	return &Snapshot{
		ID:        uuid.New(),
		Name:      name,
		RootType:  "page",
		Records:   2,
		Checksum:  Checksum(payload),
		CreatedAt: created.UTC(),
		Payload:   payload,
	}
}

// testStore runs the behaviour every Store must share
func testStore(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := newSnapshot("first", base.Add(time.Minute), []byte{1, 2, 3})
	second := newSnapshot("second", base, []byte{4, 5})

	require.NoError(t, store.Put(ctx, first))
	require.NoError(t, store.Put(ctx, second))

	got, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, "page", got.RootType)
	assert.Equal(t, 2, got.Records)
	assert.Equal(t, first.Checksum, got.Checksum)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", first.CreatedAt, got.CreatedAt)
	assert.Equal(t, []byte{1, 2, 3}, got.Payload)
	assert.NoError(t, got.Verify())

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Name)
	assert.Equal(t, "first", list[1].Name)
	assert.Empty(t, list[0].Payload)

	// Put replaces
	first.Name = "renamed"
	require.NoError(t, store.Put(ctx, first))
	got, err = store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	// a repeated id counts once
	require.NoError(t, store.Delete(ctx, first.ID, first.ID))
	_, err = store.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, first.ID), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, second.ID, uuid.New()), ErrNotFound)

	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
