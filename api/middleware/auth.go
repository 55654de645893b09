package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/bitetrack/bitetrack-backend/api/responses"
	pkgAuth "github.com/bitetrack/bitetrack-backend/pkg/auth"
	"github.com/bitetrack/bitetrack-backend/pkg/auth/session"
	"github.com/bitetrack/bitetrack-backend/pkg/config"
	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// caller's identity. With a session checker wired, a token whose session was
// revoked in redis is rejected even while the JWT itself is still inside its
// ttl.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return &authenticator{cfg: cfg, verifier: verifier, logg: logg, next: next}
	}
}

type authenticator struct {
	cfg      config.JWTConfig
	verifier session.AccessSessionChecker
	logg     *logger.Logger
	next     http.Handler
}

func (a *authenticator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := a.authenticate(r)
	if err != nil {
		responses.WriteError(r.Context(), a.logg, w, err)
		return
	}

	ctx := context.WithValue(r.Context(), ctxSellerID, claims.SellerID.String())
	ctx = context.WithValue(ctx, ctxRole, string(claims.Role))
	if a.logg != nil {
		ctx = a.logg.WithFields(ctx, map[string]any{
			"seller_id":  claims.SellerID.String(),
			"actor_role": string(claims.Role),
		})
	}
	a.next.ServeHTTP(w, r.WithContext(ctx))
}

// authenticate turns the Authorization header into verified claims. Every
// failure comes back as a coded error ready for WriteError.
func (a *authenticator) authenticate(r *http.Request) (*pkgAuth.AccessTokenClaims, error) {
	token := bearerValue(r.Header.Get("Authorization"))
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessToken(a.cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	if a.verifier != nil {
		live, err := a.verifier.HasSession(r.Context(), claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}
	return claims, nil
}

// bearerValue strips an optional Bearer prefix from an Authorization header.
// Raw tokens without the scheme are accepted as well.
func bearerValue(header string) string {
	value := strings.TrimSpace(header)
	if strings.HasPrefix(strings.ToLower(value), "bearer ") {
		value = strings.TrimSpace(value[len("bearer "):])
	}
	return value
}
