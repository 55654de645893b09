package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/bitetrack/bitetrack-backend/api/responses"
	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
)

const (
	settlementReplayTTL = 24 * time.Hour
	writeReplayTTL      = 7 * 24 * time.Hour

	// ReplayedHeader marks responses served from a stored idempotency record.
	ReplayedHeader = "X-Idempotent-Replayed"
)

// guardedRoute marks one write endpoint whose response is stored for replay.
// Settlement overwrites the amount rather than accumulating it, so a day of
// coverage is enough; sale and drop creation plus reversal keep a week.
type guardedRoute struct {
	method string
	match  func(path string) bool
	ttl    time.Duration
}

var guardedRoutes = []guardedRoute{
	{method: http.MethodPost, match: exactPath("/api/v1/sales"), ttl: writeReplayTTL},
	{method: http.MethodPost, match: exactPath("/api/v1/drops"), ttl: writeReplayTTL},
	{method: http.MethodPost, match: nestedPath("/api/v1/drops/", "/reversal"), ttl: writeReplayTTL},
	{method: http.MethodPatch, match: nestedPath("/api/v1/sales/", "/settlement"), ttl: settlementReplayTTL},
}

func exactPath(want string) func(string) bool {
	return func(path string) bool { return path == want }
}

func nestedPath(prefix, suffix string) func(string) bool {
	return func(path string) bool {
		return strings.HasPrefix(path, prefix) && strings.HasSuffix(path, suffix)
	}
}

// storedResponse is the JSON record kept in Redis for each idempotency key.
// RequestHash pins the key to the exact request body it first answered.
type storedResponse struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// replayStore is the slice of the redis client the middleware needs. Get
// reports redis.Nil for a missing key.
type replayStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

// Idempotency makes the stock- and money-moving writes safe to retry. The
// first request under a key runs normally and its response is stored; any
// retry with the same key and body gets the stored response back, and a
// retry with a different body is rejected outright.
func Idempotency(store replayStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return &idempotencyHandler{store: store, logg: logg, next: next}
	}
}

type idempotencyHandler struct {
	store replayStore
	logg  *logger.Logger
	next  http.Handler
}

func (h *idempotencyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rule, guarded := matchGuardedRoute(r.Method, servedPath(r))
	if !guarded || h.store == nil {
		h.next.ServeHTTP(w, r)
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	requestHash := bodyDigest(body)
	storeKey := h.store.IdempotencyKey(requestScope(r), key)

	stored, err := h.store.Get(r.Context(), storeKey)
	if err != nil && !errors.Is(err, redis.Nil) {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	if stored != "" {
		h.replay(w, r, stored, requestHash)
		return
	}

	recorder := &bufferingWriter{ResponseWriter: w}
	h.next.ServeHTTP(recorder, r)
	h.persist(r, storeKey, recorder, requestHash, rule.ttl)
}

// replay serves the recorded response for a repeated key, refusing keys that
// arrive with a different request body.
func (h *idempotencyHandler) replay(w http.ResponseWriter, r *http.Request, stored, requestHash string) {
	var record storedResponse
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}

	if mime := record.Headers["Content-Type"]; mime != "" {
		w.Header().Set("Content-Type", mime)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(record.Status)
	if raw, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(raw)
	}
}

// persist stores the just-served response. Failures are logged, not
// surfaced: the client already has its answer.
func (h *idempotencyHandler) persist(r *http.Request, storeKey string, recorder *bufferingWriter, requestHash string, ttl time.Duration) {
	record := storedResponse{
		Status:      recorder.statusOr(http.StatusOK),
		Body:        base64.StdEncoding.EncodeToString(recorder.buf.Bytes()),
		RequestHash: requestHash,
	}
	if mime := recorder.Header().Get("Content-Type"); mime != "" {
		record.Headers = map[string]string{"Content-Type": mime}
	}

	payload, err := json.Marshal(record)
	if err != nil {
		if h.logg != nil {
			h.logg.Error(r.Context(), "marshal idempotency record", err)
		}
		return
	}
	if _, err := h.store.SetNX(r.Context(), storeKey, string(payload), ttl); err != nil && h.logg != nil {
		h.logg.Error(r.Context(), "persist idempotency record", err)
	}
}

// requestScope namespaces keys per seller, method, and path so one seller's
// key cannot replay another's response.
func requestScope(r *http.Request) string {
	return strings.Join([]string{
		SellerIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}, "|")
}

func bodyDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// servedPath resolves the route being served. Group-level middleware runs
// before the subrouter has matched the leaf, so chi reports a pattern ending
// in "/*"; the raw URL path is the usable value in that case.
func servedPath(r *http.Request) string {
	if r == nil {
		return ""
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if matched := rctx.RoutePattern(); matched != "" && !strings.HasSuffix(matched, "/*") {
			return matched
		}
	}
	return r.URL.Path
}

func matchGuardedRoute(method, path string) (guardedRoute, bool) {
	if path == "" {
		return guardedRoute{}, false
	}
	for _, rule := range guardedRoutes {
		if rule.method == method && rule.match(path) {
			return rule, true
		}
	}
	return guardedRoute{}, false
}

// bufferingWriter tees the response body so it can be stored after the
// handler finishes.
type bufferingWriter struct {
	http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (b *bufferingWriter) WriteHeader(code int) {
	b.code = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bufferingWriter) Write(p []byte) (int, error) {
	if b.code == 0 {
		b.code = http.StatusOK
	}
	b.buf.Write(p)
	return b.ResponseWriter.Write(p)
}

func (b *bufferingWriter) statusOr(fallback int) int {
	if b.code == 0 {
		return fallback
	}
	return b.code
}
