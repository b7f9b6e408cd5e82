package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	// database/sql drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects the SQL flavour used by SQLStore
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// String returns the database/sql driver name for the dialect
func (d Dialect) String() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite3"
}

// SQLStore keeps snapshots in a single SQL table
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	table   string
	logger  *zap.Logger
}

// NewSQLStore creates a store over an open database. Call Init before use
// unless the table already exists.
func NewSQLStore(db *sql.DB, dialect Dialect, table string, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{db: db, dialect: dialect, table: table, logger: logger}
}

// OpenSQL opens the database with the dialect's driver and ensures the
// snapshot table exists
func OpenSQL(ctx context.Context, dialect Dialect, dsn, table string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open(dialect.String(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := NewSQLStore(db, dialect, table, logger)
	if err := store.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLStore) quotedTable() string {
	return pq.QuoteIdentifier(s.table)
}

// arg returns the n-th (1-based) placeholder
func (s *SQLStore) arg(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Init creates the snapshot table if it does not exist
func (s *SQLStore) Init(ctx context.Context) error {
	blob, stamp := "BLOB", "TIMESTAMP"
	if s.dialect == DialectPostgres {
		blob, stamp = "BYTEA", "TIMESTAMPTZ"
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			root_type TEXT NOT NULL,
			records INTEGER NOT NULL,
			checksum TEXT NOT NULL,
			created_at %s NOT NULL,
			payload %s NOT NULL
		)
	`, s.quotedTable(), stamp, blob)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return nil
}

// Put inserts or replaces a snapshot
func (s *SQLStore) Put(ctx context.Context, snap *Snapshot) error {
	args := make([]string, 7)
	for i := range args {
		args[i] = s.arg(i + 1)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, root_type, records, checksum, created_at, payload)
		VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			root_type = excluded.root_type,
			records = excluded.records,
			checksum = excluded.checksum,
			created_at = excluded.created_at,
			payload = excluded.payload
	`, s.quotedTable(), strings.Join(args, ", "))

	_, err := s.db.ExecContext(ctx, query,
		snap.ID.String(), snap.Name, snap.RootType, snap.Records,
		snap.Checksum, snap.CreatedAt, snap.Payload)
	if err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", snap.ID, err)
	}

	s.logger.Debug("snapshot stored",
		zap.String("id", snap.ID.String()),
		zap.String("name", snap.Name),
		zap.Int("bytes", len(snap.Payload)))
	return nil
}

// Get retrieves a snapshot by id
func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, name, root_type, records, checksum, created_at, payload
		FROM %s
		WHERE id = %s
	`, s.quotedTable(), s.arg(1))

	var snap Snapshot
	var rawID string
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&rawID, &snap.Name, &snap.RootType, &snap.Records,
		&snap.Checksum, &snap.CreatedAt, &snap.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}

	if snap.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("invalid snapshot id %q: %w", rawID, err)
	}
	snap.CreatedAt = snap.CreatedAt.UTC()
	return &snap, nil
}

// List returns snapshot metadata ordered by creation time
func (s *SQLStore) List(ctx context.Context) ([]*Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, name, root_type, records, checksum, created_at
		FROM %s
		ORDER BY created_at, id
	`, s.quotedTable())

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		var snap Snapshot
		var rawID string
		if err := rows.Scan(&rawID, &snap.Name, &snap.RootType, &snap.Records, &snap.Checksum, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if snap.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("invalid snapshot id %q: %w", rawID, err)
		}
		snap.CreatedAt = snap.CreatedAt.UTC()
		out = append(out, &snap)
	}
	return out, rows.Err()
}

// Delete removes snapshots by id
func (s *SQLStore) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	ids = uniqueIDs(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	var (
		query string
		args  []any
	)
	if s.dialect == DialectPostgres {
		query = fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", s.quotedTable())
		args = []any{pq.Array(keys)}
	} else {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
		query = fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", s.quotedTable(), marks)
		for _, k := range keys {
			args = append(args, k)
		}
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	return notFound(len(ids)-int(affected), len(ids))
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
