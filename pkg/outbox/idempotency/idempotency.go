// Package idempotency deduplicates event deliveries on the consumer side.
// Pub/Sub delivery is at-least-once, so each consumer records processed
// event IDs in Redis and skips any redelivery that lands inside the
// retention TTL.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the slice of the redis client the manager uses.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager marks events processed with SETNX so exactly one delivery of an
// event ID wins per consumer. Markers live under
// bt:idempotency:evt:processed:<consumer>:<event_id> and expire after the
// configured TTL, which bounds how stale a redelivery can be and still be
// recognized as a duplicate.
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency manager needs a redis store")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("idempotency ttl must not be negative, got %v", ttl)
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// CheckAndMarkProcessed records the event as processed and reports whether an
// earlier delivery had already recorded it. Check and mark are one SETNX, so
// two concurrent deliveries of the same event cannot both observe "first".
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	won, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, fmt.Errorf("marking event processed: %w", err)
	}
	return !won, nil
}

// Delete drops the processed marker so the next delivery of the event runs
// the handler again. Consumers call this when handling fails, otherwise the
// failed attempt would be remembered as done.
func (m *Manager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is empty")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is nil")
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
