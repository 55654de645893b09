// Package session tracks refresh-token sessions in Redis. Each access token
// ID maps to exactly one opaque refresh token; rotating consumes the old
// mapping, so a replayed refresh token always fails.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/bitetrack/bitetrack-backend/pkg/config"
	redisclient "github.com/bitetrack/bitetrack-backend/pkg/redis"
)

// Refresh tokens carry 32 bytes of entropy, base64url encoded.
const refreshTokenSize = 32

// ErrInvalidRefreshToken covers every rejection a client may see: unknown
// access ID, expired session, or a token that does not match.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

var errEmptyAccessID = errors.New("access id is empty")

// tokenStore is the slice of the redis client sessions live in. Get reports
// redislib.Nil for a missing key.
type tokenStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is the read-only view the auth middleware needs to
// confirm a bearer token's session has not been revoked.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager issues, rotates, and revokes refresh sessions.
type Manager struct {
	store tokenStore
	ttl   time.Duration
}

// NewManager wires the manager to Redis. The refresh TTL must outlive the
// access token TTL or every refresh would arrive after its session expired.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("session manager needs a redis client")
	}

	switch {
	case cfg.RefreshTTL <= 0:
		return nil, fmt.Errorf("refresh token ttl must be positive, got %s", cfg.RefreshTTL)
	case cfg.RefreshTTL <= cfg.AccessTTL:
		return nil, fmt.Errorf("refresh token ttl %s must outlive the access token ttl %s", cfg.RefreshTTL, cfg.AccessTTL)
	}

	return &Manager{store: client, ttl: cfg.RefreshTTL}, nil
}

// Generate mints a refresh token for accessID and stores it under the
// session key with the refresh TTL.
func (m *Manager) Generate(ctx context.Context, accessID string) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errEmptyAccessID
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), refresh, m.ttl); err != nil {
		return "", fmt.Errorf("storing refresh session: %w", err)
	}
	return refresh, nil
}

// Rotate exchanges a valid (accessID, refresh token) pair for a fresh pair
// and deletes the old session. The new session is written before the old one
// is removed so a crash between the two never strands the client.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", ErrInvalidRefreshToken
	}

	stored, found, err := m.lookup(ctx, oldAccessID)
	if err != nil {
		return "", "", err
	}
	if !found || subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	nextID := NewAccessID()
	nextToken, err := newRefreshToken()
	if err != nil {
		return "", "", err
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(nextID), nextToken, m.ttl); err != nil {
		return "", "", fmt.Errorf("storing rotated session: %w", err)
	}
	if err := m.store.Del(ctx, m.store.AccessSessionKey(oldAccessID)); err != nil {
		return "", "", fmt.Errorf("consuming rotated session: %w", err)
	}

	return nextID, nextToken, nil
}

// Revoke ends the session for accessID. Deleting an absent key is a no-op.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errEmptyAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

// HasSession reports whether accessID still has a live refresh session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errEmptyAccessID
	}
	_, found, err := m.lookup(ctx, accessID)
	if err != nil {
		return false, err
	}
	return found, nil
}

// lookup fetches the refresh token stored for accessID, mapping a missing
// key to found=false.
func (m *Manager) lookup(ctx context.Context, accessID string) (string, bool, error) {
	stored, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("reading refresh session: %w", err)
	}
	return stored, true, nil
}

// NewAccessID produces the identifier shared by the JWT jti claim and the
// Redis session key.
func NewAccessID() string {
	return uuid.NewString()
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
