// Package repository caches ingested snapshots and coalesces fetches.
package repository

import (
	"context"

	"github.com/patrickmn/go-cache"

	"github.com/okian/paxstats/internal/domain/model"
)

// Store persists the current snapshot.
type Store interface {
	// Load returns the stored snapshot. ok is false when nothing is stored.
	Load(ctx context.Context) (snap model.Snapshot, ok bool, err error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap model.Snapshot) error
}

const memoryKey = "snapshot"

// MemoryStore keeps the snapshot in process for the lifetime of the service.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore creates an empty in-process store. Entries never expire.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (model.Snapshot, bool, error) {
	v, ok := s.c.Get(memoryKey)
	if !ok {
		return model.Snapshot{}, false, nil
	}
	return v.(model.Snapshot), true, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, snap model.Snapshot) error {
	s.c.Set(memoryKey, snap, cache.NoExpiration)
	return nil
}
