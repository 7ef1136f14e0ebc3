package localstore

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps slots in process memory. It is the fallback when no
// Redis instance is reachable (a single lone view still works, it just
// cannot share state with other views) and the backing store for tests.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates an in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, 0)}
}

// Get retrieves a slot value
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

// Set writes a slot value
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.cache.Set(key, value, gocache.NoExpiration)
	return nil
}

// Delete removes a slot
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
