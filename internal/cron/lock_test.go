package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeLockStore struct {
	values map[string]string
	setErr error
	getErr error
	delErr error
	dels   int
}

func (f *fakeLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, held := f.values[key]; held {
		return false, nil
	}
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLockStore) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeLockStore) Del(_ context.Context, keys ...string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.dels++
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func mustLock(t *testing.T, store redisStore) *RedisLock {
	t.Helper()
	lock, err := NewRedisLock(store, "bt:lock:sweep", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	return lock
}

func TestRedisLockExcludesSecondHolder(t *testing.T) {
	store := &fakeLockStore{}
	first := mustLock(t, store)
	second := mustLock(t, store)

	won, err := first.Acquire(context.Background())
	if err != nil || !won {
		t.Fatalf("first acquire = (%v, %v), want held", won, err)
	}
	won, err = second.Acquire(context.Background())
	if err != nil || won {
		t.Fatalf("second acquire = (%v, %v), want blocked", won, err)
	}

	if err := first.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	won, err = second.Acquire(context.Background())
	if err != nil || !won {
		t.Fatalf("acquire after release = (%v, %v), want held", won, err)
	}
}

func TestRedisLockReleaseWithoutAcquireIsNoop(t *testing.T) {
	store := &fakeLockStore{}
	lock := mustLock(t, store)

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.dels != 0 {
		t.Fatalf("release deleted %d keys without holding the lock", store.dels)
	}
}

func TestRedisLockNeverFreesTakenOverLock(t *testing.T) {
	store := &fakeLockStore{}
	lock := mustLock(t, store)

	if _, err := lock.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// The TTL lapsed and another replica now owns the key.
	store.values["bt:lock:sweep"] = "other-token"

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.dels != 0 {
		t.Fatal("released a lock owned by another replica")
	}
	if store.values["bt:lock:sweep"] != "other-token" {
		t.Fatal("other replica's token was overwritten")
	}
}

func TestRedisLockReleaseAfterExpiryIsNoop(t *testing.T) {
	store := &fakeLockStore{}
	lock := mustLock(t, store)

	if _, err := lock.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	delete(store.values, "bt:lock:sweep")

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release after expiry: %v", err)
	}
	if store.dels != 0 {
		t.Fatalf("expected no delete, got %d", store.dels)
	}
}

func TestRedisLockSurfacesStoreErrors(t *testing.T) {
	down := errors.New("connection refused")

	lock := mustLock(t, &fakeLockStore{setErr: down})
	if _, err := lock.Acquire(context.Background()); !errors.Is(err, down) {
		t.Fatalf("acquire error = %v", err)
	}

	store := &fakeLockStore{}
	lock = mustLock(t, store)
	if _, err := lock.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	store.getErr = down
	if err := lock.Release(context.Background()); !errors.Is(err, down) {
		t.Fatalf("release error = %v", err)
	}
}

func TestNewRedisLockValidatesInput(t *testing.T) {
	if _, err := NewRedisLock(nil, "key", time.Minute); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewRedisLock(&fakeLockStore{}, "", time.Minute); err == nil {
		t.Fatal("expected error for empty key")
	}

	lock, err := NewRedisLock(&fakeLockStore{}, "key", 0)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	if lock.ttl != defaultLockTTL {
		t.Fatalf("ttl = %v, want default %v", lock.ttl, defaultLockTTL)
	}
}
