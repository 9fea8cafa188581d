package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/okian/paxstats/internal/domain/model"
)

// RedisStore keeps the snapshot in Redis so it survives restarts and is
// shared between replicas.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore stores the snapshot under "<prefix>:snapshot".
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "paxstats"
	}
	return &RedisStore{client: client, key: prefix + ":snapshot"}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (model.Snapshot, bool, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Snapshot{}, false, nil
	}
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("%w: get %s: %w", ErrStore, s.key, err)
	}
	var snap model.Snapshot
	if err := msgpack.Unmarshal(b, &snap); err != nil {
		return model.Snapshot{}, false, fmt.Errorf("%w: decode %s: %w", ErrStore, s.key, err)
	}
	return snap, true, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, snap model.Snapshot) error {
	b, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrStore, err)
	}
	if err := s.client.Set(ctx, s.key, b, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrStore, s.key, err)
	}
	return nil
}

// encodeSnapshot sorts map keys so equal snapshots encode to equal bytes.
func encodeSnapshot(snap model.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
