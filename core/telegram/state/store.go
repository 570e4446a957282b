// Package state persists per-(bot, chat) conversational variables behind a
// hash-map-per-key store contract with time-based expiry.
package state

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound reports that the whole per-chat hash is absent or expired.
	ErrKeyNotFound = errors.New("state: key not found")
	// ErrFieldNotFound reports that the hash exists but the field is absent.
	ErrFieldNotFound = errors.New("state: field not found")
)

// Store is the session store contract. Implementations must provide per-key
// atomicity: a read-modify-write on one key must not interleave with another
// on the same key. Both not-found conditions are cache-misses for callers,
// never fatal.
type Store interface {
	GetField(ctx context.Context, key, field string) (string, error)
	PutField(ctx context.Context, key, field, value string) error
	RemoveField(ctx context.Context, key, field string) error
	RemoveKey(ctx context.Context, key string) error
}

// IsMiss reports whether the error is one of the store's cache-miss
// conditions.
func IsMiss(err error) bool {
	return errors.Is(err, ErrKeyNotFound) || errors.Is(err, ErrFieldNotFound)
}
