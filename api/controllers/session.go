package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bitetrack/bitetrack-backend/api/responses"
	"github.com/bitetrack/bitetrack-backend/api/validators"
	pkgAuth "github.com/bitetrack/bitetrack-backend/pkg/auth"
	"github.com/bitetrack/bitetrack-backend/pkg/auth/session"
	"github.com/bitetrack/bitetrack-backend/pkg/config"
	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
)

// sessionRotator is the slice of the session manager the session endpoints
// need: rotation backs refresh, revocation backs logout.
type sessionRotator interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// AuthLogout revokes the refresh session named by the presented access
// token's jti claim.
func AuthLogout(manager sessionRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		claims, err := sessionClaims(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := manager.Revoke(r.Context(), claims.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh exchanges a valid refresh token for a new access/refresh pair.
// The old session is consumed by the rotation, so a replayed refresh token
// comes back unauthorized.
func AuthRefresh(manager sessionRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		claims, err := sessionClaims(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body refreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		jti, refreshToken, err := manager.Rotate(r.Context(), claims.ID, body.RefreshToken)
		if err != nil {
			if errors.Is(err, session.ErrInvalidRefreshToken) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session"))
			return
		}

		accessToken, err := issueAccessToken(cfg, claims, jti)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token"))
			return
		}

		w.Header().Set("X-BT-Token", accessToken)
		responses.WriteSuccess(w, tokenPair{AccessToken: accessToken, RefreshToken: refreshToken})
	}
}

// issueAccessToken mints the replacement access token for a rotated session,
// carrying the same seller identity under the new session id.
func issueAccessToken(cfg config.JWTConfig, claims *pkgAuth.AccessTokenClaims, jti string) (string, error) {
	return pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		SellerID: claims.SellerID,
		Role:     claims.Role,
		JTI:      jti,
	})
}

// sessionClaims identifies the session behind a request: a bearer token must
// be present, parse under our signing key, and carry a session id. Expiry is
// deliberately ignored, an expired access token is exactly what logout and
// refresh are for.
func sessionClaims(r *http.Request, cfg config.JWTConfig) (*pkgAuth.AccessTokenClaims, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

// bearerToken extracts the raw token from the Authorization header. The
// "Bearer" scheme prefix is matched case-insensitively without altering the
// token itself.
func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// tokenPair is the refresh endpoint's response body. The access token also
// rides the X-BT-Token header so clients can read it without parsing JSON.
type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
