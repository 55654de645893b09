package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bitetrack/bitetrack-backend/api/responses"
	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
)

// windowLimiter is the slice of the redis client the limiter uses.
type windowLimiter interface {
	AllowInWindow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy describes one throttled surface: a fixed window plus
// independent per-IP and per-email caps. A zero window or two zero caps
// disables the policy entirely.
type AuthRateLimitPolicy struct {
	name     string
	window   time.Duration
	perIP    int
	perEmail int
}

// NewAuthRateLimitPolicy builds a policy. The name scopes the redis counters
// so different surfaces never share a window.
func NewAuthRateLimitPolicy(name string, window time.Duration, perIP, perEmail int) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		name:     strings.ToLower(strings.TrimSpace(name)),
		window:   window,
		perIP:    perIP,
		perEmail: perEmail,
	}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.perIP > 0 || p.perEmail > 0)
}

func (p AuthRateLimitPolicy) surface() string {
	if p.name != "" {
		return p.name
	}
	return "auth"
}

// AuthRateLimit throttles credential endpoints with fixed-window counters.
// The IP counter runs first so address floods are cut off before the body is
// read; the email counter hashes the normalized address so raw credentials
// never reach redis or the logs.
func AuthRateLimit(policy AuthRateLimitPolicy, store windowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if policy.enabled() && store != nil {
			return &authRateLimiter{policy: policy, store: store, logg: logg, next: next}
		}
		return next
	}
}

type authRateLimiter struct {
	policy AuthRateLimitPolicy
	store  windowLimiter
	logg   *logger.Logger
	next   http.Handler
}

func (l *authRateLimiter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !l.checkIP(ctx, w, r) {
		return
	}
	if !l.checkEmail(ctx, w, r) {
		return
	}
	l.next.ServeHTTP(w, r)
}

func (l *authRateLimiter) checkIP(ctx context.Context, w http.ResponseWriter, r *http.Request) bool {
	if l.policy.perIP <= 0 {
		return true
	}
	ip := clientIP(r)
	if ip == "" {
		return true
	}
	scope := fmt.Sprintf("ip:%s:%s", l.policy.surface(), ip)
	return l.allow(ctx, w, scope, l.policy.perIP, map[string]any{"ip": ip})
}

// checkEmail counts the request against the submitted email address. The
// body is consumed to extract the address and restored for the handler.
func (l *authRateLimiter) checkEmail(ctx context.Context, w http.ResponseWriter, r *http.Request) bool {
	if l.policy.perEmail <= 0 {
		return true
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
		return false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	digest := emailDigest(body)
	if digest == "" {
		return true
	}
	scope := fmt.Sprintf("email:%s:%s", l.policy.surface(), digest)
	return l.allow(ctx, w, scope, l.policy.perEmail, map[string]any{"email_hash": digest})
}

// allow charges one hit against the scope. A false return means a response
// has already been written, either the throttle reply or a dependency error.
func (l *authRateLimiter) allow(ctx context.Context, w http.ResponseWriter, scope string, limit int, extra map[string]any) bool {
	ok, count, err := l.store.AllowInWindow(ctx, scope, int64(limit), l.policy.window)
	if err != nil {
		responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if ok {
		return true
	}

	if l.logg != nil {
		fields := map[string]any{
			"policy":         l.policy.surface(),
			"window_seconds": int(l.policy.window.Seconds()),
			"limit":          limit,
			"attempts":       count,
		}
		for k, v := range extra {
			fields[k] = v
		}
		l.logg.Warn(l.logg.WithFields(ctx, fields), "login rate limit exceeded")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	return false
}

// clientIP resolves the originating address, trusting proxy headers before
// falling back to the socket peer.
func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := strings.TrimSpace(part); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}

// emailDigest pulls the email field out of a login payload and returns the
// hex SHA-256 of its lowercased, trimmed form. Returns "" when the payload
// has no usable address.
func emailDigest(payload []byte) string {
	var creds struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &creds); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" {
		return ""
	}
	digest := sha256.Sum256([]byte(email))
	return hex.EncodeToString(digest[:])
}
