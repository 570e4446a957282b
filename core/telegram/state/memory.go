package state

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryOptions tunes the in-process store. Zero values pick sane defaults.
type MemoryOptions struct {
	TTL      time.Duration // entry lifetime, default 24h
	Capacity int           // max tracked keys, default 65536
}

func (o *MemoryOptions) normalize() {
	if o.TTL <= 0 {
		o.TTL = 24 * time.Hour
	}
	if o.Capacity <= 0 {
		o.Capacity = 65536
	}
}

// MemoryStore keeps sessions in an expiring LRU. Every write re-inserts the
// whole hash, which resets the entry's TTL. A single mutex serializes
// read-modify-write cycles, which gives the per-key atomicity the Store
// contract asks for.
type MemoryStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, map[string]string]
}

// NewMemoryStore builds an in-process store with the given options.
func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	opts.normalize()
	return &MemoryStore{
		cache: expirable.NewLRU[string, map[string]string](opts.Capacity, nil, opts.TTL),
	}
}

// GetField returns the value stored under key/field. Reads do not refresh
// the TTL.
func (s *MemoryStore) GetField(_ context.Context, key, field string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, ok := s.cache.Get(key)
	if !ok {
		return "", ErrKeyNotFound
	}
	v, ok := hash[field]
	if !ok {
		return "", ErrFieldNotFound
	}
	return v, nil
}

// PutField sets key/field to value, creating the hash if needed and
// refreshing the whole key's TTL.
func (s *MemoryStore) PutField(_ context.Context, key, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, ok := s.cache.Get(key)
	if !ok {
		hash = make(map[string]string)
	}
	next := make(map[string]string, len(hash)+1)
	for k, v := range hash {
		next[k] = v
	}
	next[field] = value
	s.cache.Add(key, next)
	return nil
}

// RemoveField deletes a single field, refreshing the key's TTL. A missing
// key or field reports the matching sentinel.
func (s *MemoryStore) RemoveField(_ context.Context, key, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, ok := s.cache.Get(key)
	if !ok {
		return ErrKeyNotFound
	}
	if _, ok := hash[field]; !ok {
		return ErrFieldNotFound
	}
	next := make(map[string]string, len(hash))
	for k, v := range hash {
		if k != field {
			next[k] = v
		}
	}
	s.cache.Add(key, next)
	return nil
}

// RemoveKey drops the whole hash. Removing an absent key is a no-op.
func (s *MemoryStore) RemoveKey(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Remove(key)
	return nil
}

var _ Store = (*MemoryStore)(nil)
