package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
)

// memoryStore keeps replay entries in a plain map, honoring the same SETNX
// semantics the redis-backed store provides.
type memoryStore struct {
	entries map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.entries[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, taken := m.entries[key]; taken {
		return false, nil
	}
	m.entries[key], _ = value.(string)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "mem:" + scope + ":" + id
}

// routedRequest builds a request whose chi route context already carries the
// matched pattern, the way the middleware sees it inside a router group.
func routedRequest(t *testing.T, method, target, pattern, body string) *http.Request {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rctx := chi.NewRouteContext()
	rctx.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func countingHandler(status int, calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*calls++
		w.WriteHeader(status)
	})
}

func TestGuardedRouteSelection(t *testing.T) {
	cases := []struct {
		label   string
		method  string
		path    string
		ttl     time.Duration
		guarded bool
	}{
		{"record sale", http.MethodPost, "/api/v1/sales", writeReplayTTL, true},
		{"record drop", http.MethodPost, "/api/v1/drops", writeReplayTTL, true},
		{"reverse drop", http.MethodPost, "/api/v1/drops/{dropId}/reversal", writeReplayTTL, true},
		{"settle sale", http.MethodPatch, "/api/v1/sales/{saleId}/settlement", settlementReplayTTL, true},
		{"list sales", http.MethodGet, "/api/v1/sales", 0, false},
		{"login", http.MethodPost, "/api/v1/auth/login", 0, false},
	}

	for _, tc := range cases {
		rule, guarded := matchGuardedRoute(tc.method, tc.path)
		if guarded != tc.guarded {
			t.Fatalf("%s: guarded=%v, want %v", tc.label, guarded, tc.guarded)
		}
		if guarded && rule.ttl != tc.ttl {
			t.Fatalf("%s: replay ttl %v, want %v", tc.label, rule.ttl, tc.ttl)
		}
	}
}

func TestIdempotencyRejectsMissingKey(t *testing.T) {
	guard := Idempotency(newMemoryStore(), nil)
	calls := 0

	req := routedRequest(t, http.MethodPost, "/api/v1/sales", "/api/v1/sales", `{"customer_id":"abc"}`)
	resp := serve(guard(countingHandler(http.StatusCreated, &calls)), req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("want 400 when the key header is absent, got %d", resp.Code)
	}
	if calls != 0 {
		t.Fatalf("handler ran %d times before key validation", calls)
	}
}

func TestIdempotencyServesStoredReplay(t *testing.T) {
	guard := Idempotency(newMemoryStore(), nil)
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"sale_id":"11"}`))
	})

	req := routedRequest(t, http.MethodPost, "/api/v1/sales", "/api/v1/sales", `{"customer_id":"abc"}`)
	req.Header.Set("Idempotency-Key", "checkout-640")
	first := serve(guard(handler), req)
	if first.Code != http.StatusAccepted {
		t.Fatalf("first request: want 202, got %d", first.Code)
	}

	retry := routedRequest(t, http.MethodPost, "/api/v1/sales", "/api/v1/sales", `{"customer_id":"abc"}`)
	retry.Header.Set("Idempotency-Key", "checkout-640")
	replayed := serve(guard(handler), retry)
	if replayed.Code != http.StatusAccepted {
		t.Fatalf("replay: want the stored 202, got %d", replayed.Code)
	}
	if replayed.Header().Get("Content-Type") != "application/json" {
		t.Fatal("replay lost the Content-Type header")
	}
	if replayed.Header().Get(ReplayedHeader) != "true" {
		t.Fatal("replay is not marked as served from the store")
	}
	if strings.TrimSpace(replayed.Body.String()) != `{"sale_id":"11"}` {
		t.Fatalf("replay body = %s, want the stored payload", replayed.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, a replay must not re-execute it", calls)
	}
}

func TestIdempotencyRejectsReusedKeyWithNewBody(t *testing.T) {
	guard := Idempotency(newMemoryStore(), nil)
	calls := 0
	handler := countingHandler(http.StatusOK, &calls)

	req := routedRequest(t, http.MethodPost, "/api/v1/drops", "/api/v1/drops", `{"quantity":4}`)
	req.Header.Set("Idempotency-Key", "drop-77")
	serve(guard(handler), req)

	retry := routedRequest(t, http.MethodPost, "/api/v1/drops", "/api/v1/drops", `{"quantity":9}`)
	retry.Header.Set("Idempotency-Key", "drop-77")
	resp := serve(guard(handler), retry)

	if resp.Code != http.StatusConflict {
		t.Fatalf("want 409 for a reused key with a new body, got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp.Body.Bytes()); code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("unexpected error code %s", code)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, the mismatched retry must not reach it", calls)
	}
}

func TestIdempotencyScopesKeysPerSeller(t *testing.T) {
	guard := Idempotency(newMemoryStore(), nil)
	calls := 0
	handler := countingHandler(http.StatusCreated, &calls)

	first := routedRequest(t, http.MethodPost, "/api/v1/sales", "/api/v1/sales", `{"customer_id":"abc"}`)
	first.Header.Set("Idempotency-Key", "shared")
	first = first.WithContext(WithSellerID(first.Context(), "seller-a"))
	serve(guard(handler), first)

	second := routedRequest(t, http.MethodPost, "/api/v1/sales", "/api/v1/sales", `{"customer_id":"abc"}`)
	second.Header.Set("Idempotency-Key", "shared")
	second = second.WithContext(WithSellerID(second.Context(), "seller-b"))
	serve(guard(handler), second)

	if calls != 2 {
		t.Fatalf("same key from different sellers should not collide, handler ran %d times", calls)
	}
}

func TestIdempotencyMatchesThroughGroupPattern(t *testing.T) {
	guard := Idempotency(newMemoryStore(), nil)
	calls := 0

	// Group middleware observes the mount pattern, not the leaf route.
	req := routedRequest(t, http.MethodPost, "/api/v1/sales", "/api/v1/*", `{"customer_id":"abc"}`)
	resp := serve(guard(countingHandler(http.StatusCreated, &calls)), req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("want the guarded route to demand a key through the group mount, got %d", resp.Code)
	}
	if calls != 0 {
		t.Fatalf("handler ran %d times before key validation", calls)
	}
}
