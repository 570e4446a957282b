package state

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreFieldLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(MemoryOptions{})

	if _, err := s.GetField(ctx, "k", "f"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := s.PutField(ctx, "k", "f", "v"); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.GetField(ctx, "k", "f")
	if err != nil || got != "v" {
		t.Fatalf("get = %q, %v", got, err)
	}

	if _, err := s.GetField(ctx, "k", "other"); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("expected ErrFieldNotFound, got %v", err)
	}

	if err := s.RemoveField(ctx, "k", "f"); err != nil {
		t.Fatalf("remove field: %v", err)
	}
	if _, err := s.GetField(ctx, "k", "f"); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("expected ErrFieldNotFound after removal, got %v", err)
	}

	if err := s.RemoveField(ctx, "k", "f"); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("expected ErrFieldNotFound on double removal, got %v", err)
	}
}

func TestMemoryStoreRemoveKeyIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(MemoryOptions{})

	if err := s.PutField(ctx, "k", "a", "1"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.RemoveKey(ctx, "k"); err != nil {
		t.Fatalf("remove key: %v", err)
	}
	if _, err := s.GetField(ctx, "k", "a"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := s.RemoveKey(ctx, "k"); err != nil {
		t.Fatalf("remove absent key should succeed: %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(MemoryOptions{TTL: 20 * time.Millisecond})

	if err := s.PutField(ctx, "k", "f", "v"); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, err := s.GetField(ctx, "k", "f"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after expiry, got %v", err)
	}
}

func TestMemoryStoreWriteRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(MemoryOptions{TTL: 80 * time.Millisecond})

	if err := s.PutField(ctx, "k", "a", "1"); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := s.PutField(ctx, "k", "b", "2"); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	// The second write renewed the whole hash, so the first field survives
	// past its original deadline.
	got, err := s.GetField(ctx, "k", "a")
	if err != nil || got != "1" {
		t.Fatalf("get = %q, %v", got, err)
	}
}
