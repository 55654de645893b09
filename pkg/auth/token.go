// Package auth mints and validates the HS256 access tokens carried on every
// API request. The jti claim doubles as the Redis session key, which is how
// logout revokes a token before its natural expiry.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bitetrack/bitetrack-backend/pkg/config"
)

var signingMethod = jwt.SigningMethodHS256

// MintAccessToken signs a JWT for payload, expiring after the configured
// lifetime. A blank JTI gets a fresh UUID so every token maps to a session.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", fmt.Errorf("jwt secret is not configured")
	case cfg.Issuer == "":
		return "", fmt.Errorf("jwt issuer is not configured")
	case cfg.AccessTTL <= 0:
		return "", fmt.Errorf("jwt access ttl must be positive")
	case !payload.Role.IsValid():
		return "", fmt.Errorf("invalid seller role %q", payload.Role)
	}

	sessionID := strings.TrimSpace(payload.JTI)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	claims := AccessTokenClaims{
		SellerID: payload.SellerID,
		Role:     payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTTL)),
			ID:        sessionID,
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken fully validates a token, time claims included.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	return parseClaims(cfg, tokenString, jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	))
}

// ParseAccessTokenAllowExpired checks signature and issuer but skips the
// time claims. Logout and refresh need the jti out of tokens that have
// already expired.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	return parseClaims(cfg, tokenString, jwt.NewParser(
		jwt.WithoutClaimsValidation(),
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	))
}

func parseClaims(cfg config.JWTConfig, tokenString string, parser *jwt.Parser) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is not configured")
	}

	claims := new(AccessTokenClaims)
	if _, err := parser.ParseWithClaims(tokenString, claims, hmacKeyfunc(cfg.Secret)); err != nil {
		return nil, err
	}
	return claims, nil
}

// hmacKeyfunc rejects any token not signed with our HS256 method.
func hmacKeyfunc(secret string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if token.Method != signingMethod {
			return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
		}
		return []byte(secret), nil
	}
}
