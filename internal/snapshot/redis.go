package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each snapshot in a redis hash under Prefix+id
type RedisStore struct {
	client *redis.Client
	config RedisConfig
}

// RedisConfig holds redis store configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix is prepended to every key
	Prefix string
	// TTL expires snapshots; zero keeps them forever
	TTL time.Duration
}

// DefaultRedisConfig returns a default redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "rtti:snapshot:",
	}
}

var metaFields = []string{"name", "root_type", "records", "checksum", "created_at"}

// NewRedisStore connects to redis and checks the connection
func NewRedisStore(ctx context.Context, config RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}

	return NewRedisStoreWithClient(client, config), nil
}

// NewRedisStoreWithClient creates a store over an existing client
func NewRedisStoreWithClient(client *redis.Client, config RedisConfig) *RedisStore {
	return &RedisStore{client: client, config: config}
}

func (r *RedisStore) key(id uuid.UUID) string {
	return r.config.Prefix + id.String()
}

// Put stores a snapshot, replacing an existing one
func (r *RedisStore) Put(ctx context.Context, s *Snapshot) error {
	key := r.key(s.ID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"name", s.Name,
			"root_type", s.RootType,
			"records", s.Records,
			"checksum", s.Checksum,
			"created_at", s.CreatedAt.Format(time.RFC3339Nano),
			"payload", s.Payload,
		)
		if r.config.TTL > 0 {
			pipe.Expire(ctx, key, r.config.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", s.ID, err)
	}
	return nil
}

// Get retrieves a snapshot by id
func (r *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	values, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}

	s, err := decodeMeta(id, func(field string) (string, bool) {
		v, ok := values[field]
		return v, ok
	})
	if err != nil {
		return nil, err
	}
	s.Payload = []byte(values["payload"])
	return s, nil
}

// List scans the prefix and returns snapshot metadata
func (r *RedisStore) List(ctx context.Context) ([]*Snapshot, error) {
	var out []*Snapshot
	iter := r.client.Scan(ctx, 0, r.config.Prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id, err := uuid.Parse(strings.TrimPrefix(key, r.config.Prefix))
		if err != nil {
			continue
		}

		values, err := r.client.HMGet(ctx, key, metaFields...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot %s: %w", id, err)
		}
		// expired between SCAN and HMGET
		if values[0] == nil {
			continue
		}

		s, err := decodeMeta(id, func(field string) (string, bool) {
			for i, name := range metaFields {
				if name == field {
					v, ok := values[i].(string)
					return v, ok
				}
			}
			return "", false
		})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan snapshots: %w", err)
	}

	sortSnapshots(out)
	return out, nil
}

// Delete removes snapshots by id
func (r *RedisStore) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	ids = uniqueIDs(ids)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return notFound(len(ids)-int(n), len(ids))
}

// Close closes the redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func decodeMeta(id uuid.UUID, get func(string) (string, bool)) (*Snapshot, error) {
	s := &Snapshot{ID: id}
	s.Name, _ = get("name")
	s.RootType, _ = get("root_type")
	s.Checksum, _ = get("checksum")

	records, _ := get("records")
	n, err := strconv.Atoi(records)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: invalid record count %q", id, records)
	}
	s.Records = n

	created, _ := get("created_at")
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("snapshot %s: invalid created_at %q: %w", id, created, err)
	}
	return s, nil
}
