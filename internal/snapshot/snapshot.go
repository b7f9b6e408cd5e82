// Package snapshot persists serialized object graphs together with the
// metadata needed to list and verify them.
package snapshot

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/conduit-lang/rtti/pkg/rtti"
	"github.com/conduit-lang/rtti/pkg/serial"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrNotFound is returned when a snapshot does not exist
	ErrNotFound = errors.New("snapshot not found")

	// ErrChecksumMismatch is returned when a payload does not match its checksum
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
)

// Snapshot is one stored stream. Payload is left empty by List.
type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	RootType  string    `json:"root_type"`
	Records   int       `json:"records"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	Payload   []byte    `json:"-"`
}

// Store persists snapshots
type Store interface {
	// Put stores a snapshot, replacing any snapshot with the same id
	Put(ctx context.Context, s *Snapshot) error

	// Get retrieves a snapshot including its payload
	Get(ctx context.Context, id uuid.UUID) (*Snapshot, error)

	// List returns every snapshot without payloads, oldest first
	List(ctx context.Context) ([]*Snapshot, error)

	// Delete removes snapshots. It returns ErrNotFound if any id was missing.
	Delete(ctx context.Context, ids ...uuid.UUID) error

	// Close releases the backend connection
	Close() error
}

// Checksum returns the hex blake2b-256 digest of data
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify checks the payload against the recorded checksum
func (s *Snapshot) Verify() error {
	if got := Checksum(s.Payload); got != s.Checksum {
		return fmt.Errorf("%w: %s: expected %s, got %s", ErrChecksumMismatch, s.ID, s.Checksum, got)
	}
	return nil
}

// Capture serializes root into a new snapshot
func Capture(root rtti.Reflectable, name string, opts ...serial.Option) (*Snapshot, error) {
	data, err := serial.Marshal(root, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %q: %w", name, err)
	}
	return FromStream(data, name, opts...)
}

// FromStream wraps an already serialized stream. The stream is inspected
// so that malformed input is rejected before it reaches a store.
func FromStream(data []byte, name string, opts ...serial.Option) (*Snapshot, error) {
	info, err := serial.Inspect(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %q: %w", name, err)
	}

	s := &Snapshot{
		ID:      uuid.New(),
		Name:    name,
		Records: len(info.Records),
		// Postgres keeps microseconds
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Checksum:  Checksum(data),
		Payload:   data,
	}
	if len(info.Records) > 0 {
		root := info.Records[0]
		s.RootType = root.TypeName
		if !root.Known {
			s.RootType = fmt.Sprintf("#%d", root.TypeID)
		}
	}
	return s, nil
}

// Restore verifies the payload and rebuilds the object graph
func Restore(s *Snapshot, opts ...serial.Option) (rtti.Reflectable, error) {
	if err := s.Verify(); err != nil {
		return nil, err
	}
	obj, err := serial.Unmarshal(s.Payload, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to restore snapshot %s: %w", s.ID, err)
	}
	return obj, nil
}

// Load fetches a snapshot and restores it
func Load(ctx context.Context, store Store, id uuid.UUID, opts ...serial.Option) (rtti.Reflectable, error) {
	s, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return Restore(s, opts...)
}

func (s *Snapshot) meta() *Snapshot {
	c := *s
	c.Payload = nil
	return &c
}

func (s *Snapshot) clone() *Snapshot {
	c := *s
	c.Payload = append([]byte(nil), s.Payload...)
	return &c
}

// uniqueIDs drops repeated ids, keeping the first occurrence
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func notFound(missing, total int) error {
	if missing == 0 {
		return nil
	}
	if total == 1 {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %d of %d snapshots", ErrNotFound, missing, total)
}
