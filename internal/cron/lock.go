package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// A crashed holder must not stall the sweep for long, so the fallback TTL
// stays in the same order of magnitude as the sweep interval.
const defaultLockTTL = 30 * time.Minute

// Lock serializes sweep cycles across API replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// redisStore is the slice of the redis client the lock needs.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock implements Lock with SETNX plus a TTL. Every acquisition writes
// a fresh random token; Release compares it first, so a lock that expired
// and was taken over by another replica is never freed from here.
type RedisLock struct {
	store redisStore
	key   string
	ttl   time.Duration
	token string
}

func NewRedisLock(store redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis store is required")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	lock := &RedisLock{store: store, key: key, ttl: ttl}
	if lock.ttl <= 0 {
		lock.ttl = defaultLockTTL
	}
	return lock, nil
}

// Acquire claims the lock for the configured TTL when nobody else holds it.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquiring lock: %w", err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release frees the lock while this instance still owns it. Releasing a lock
// that was never acquired, already expired, or taken over is a no-op.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}

	current, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return fmt.Errorf("reading lock owner: %w", err)
	case current != l.token:
		return nil
	}

	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	l.token = ""
	return nil
}
