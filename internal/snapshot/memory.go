package snapshot

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps snapshots in process memory
type MemoryStore struct {
	data sync.Map // map[uuid.UUID]*Snapshot
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Put stores a copy of s
func (m *MemoryStore) Put(ctx context.Context, s *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data.Store(s.ID, s.clone())
	return nil
}

// Get retrieves a copy of the snapshot
func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := m.data.Load(id)
	if !ok {
		return nil, ErrNotFound
	}
	return v.(*Snapshot).clone(), nil
}

// List returns snapshot metadata ordered by creation time
func (m *MemoryStore) List(ctx context.Context) ([]*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*Snapshot
	m.data.Range(func(_, v any) bool {
		out = append(out, v.(*Snapshot).meta())
		return true
	})
	sortSnapshots(out)
	return out, nil
}

// Delete removes the given snapshots
func (m *MemoryStore) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ids = uniqueIDs(ids)
	missing := 0
	for _, id := range ids {
		if _, ok := m.data.LoadAndDelete(id); !ok {
			missing++
		}
	}
	return notFound(missing, len(ids))
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

func sortSnapshots(list []*Snapshot) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID.String() < list[j].ID.String()
	})
}
