package snapshot

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Backend names accepted by Open
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options selects and configures the store created by Open. DSN and Table
// apply to the SQL backends, Redis to the redis backend.
type Options struct {
	Backend string
	DSN     string
	Table   string
	Redis   RedisConfig
}

// Open creates the store selected by opts
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("opening snapshot store", zap.String("backend", opts.Backend))

	var (
		store Store
		err   error
	)
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		store, err = OpenSQL(ctx, DialectSQLite, opts.DSN, opts.Table, logger)
	case BackendPostgres:
		store, err = OpenSQL(ctx, DialectPostgres, opts.DSN, opts.Table, logger)
	case BackendRedis:
		store, err = NewRedisStore(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
