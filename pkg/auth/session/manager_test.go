package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/bitetrack/bitetrack-backend/pkg/config"
	redisclient "github.com/bitetrack/bitetrack-backend/pkg/redis"
)

type fakeSessionStore struct {
	mu   sync.Mutex
	rows map[string]string
	ttls map[string]time.Duration
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		rows: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (f *fakeSessionStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, found := f.rows[key]
	if !found {
		return "", redislib.Nil
	}
	return stored, nil
}

func (f *fakeSessionStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.rows, k)
		delete(f.ttls, k)
	}
	return nil
}

func (f *fakeSessionStore) AccessSessionKey(accessID string) string {
	return "session:access:" + accessID
}

func newTestManager(store *fakeSessionStore, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl}
}

func TestManagerGenerateStoresTokenWithTTL(t *testing.T) {
	store := newFakeSessionStore()
	manager := newTestManager(store, 2*time.Hour)

	jti := NewAccessID()
	token, err := manager.Generate(context.Background(), jti)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	key := store.AccessSessionKey(jti)
	if stored := store.rows[key]; stored != token {
		t.Fatalf("stored token = %q, want %q", stored, token)
	}
	if ttl := store.ttls[key]; ttl != 2*time.Hour {
		t.Fatalf("refresh ttl = %s, want 2h", ttl)
	}

	if _, err := manager.Generate(context.Background(), "  "); err == nil {
		t.Fatal("blank access id accepted")
	}
}

func TestManagerRotateSwapsSession(t *testing.T) {
	store := newFakeSessionStore()
	manager := newTestManager(store, time.Hour)
	ctx := context.Background()

	jti := NewAccessID()
	token, err := manager.Generate(ctx, jti)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, _, err := manager.Rotate(ctx, jti, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("rotate with wrong token: err = %v, want ErrInvalidRefreshToken", err)
	}

	nextID, nextToken, err := manager.Rotate(ctx, jti, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, exists := store.rows[store.AccessSessionKey(jti)]; exists {
		t.Fatal("old session survived rotation")
	}
	if stored := store.rows[store.AccessSessionKey(nextID)]; stored != nextToken {
		t.Fatalf("stored token = %q, want the rotated one", stored)
	}

	// The consumed token must not rotate a second time.
	if _, _, err := manager.Rotate(ctx, jti, token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("replayed token: err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestManagerRevokeEndsSession(t *testing.T) {
	store := newFakeSessionStore()
	manager := newTestManager(store, time.Hour)
	ctx := context.Background()

	jti := NewAccessID()
	if _, err := manager.Generate(ctx, jti); err != nil {
		t.Fatalf("generate: %v", err)
	}

	active, err := manager.HasSession(ctx, jti)
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if !active {
		t.Fatal("session inactive right after generate")
	}

	if err := manager.Revoke(ctx, jti); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	active, err = manager.HasSession(ctx, jti)
	if err != nil {
		t.Fatalf("has session after revoke: %v", err)
	}
	if active {
		t.Fatal("session still active after revoke")
	}
}

func TestNewManagerRejectsBadTTLs(t *testing.T) {
	client := &redisclient.Client{}

	if _, err := NewManager(nil, config.JWTConfig{RefreshTTL: time.Hour}); err == nil {
		t.Fatal("nil redis client accepted")
	}
	if _, err := NewManager(client, config.JWTConfig{}); err == nil {
		t.Fatal("zero refresh ttl accepted")
	}
	if _, err := NewManager(client, config.JWTConfig{AccessTTL: time.Hour, RefreshTTL: time.Hour}); err == nil {
		t.Fatal("refresh ttl equal to access ttl accepted")
	}
}
