// Package auth implements seller login. A successful login mints a
// short-lived access token and pairs it with an opaque refresh token whose
// session entry lives in Redis.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/internal/sellers"
	pkgAuth "github.com/bitetrack/bitetrack-backend/pkg/auth"
	"github.com/bitetrack/bitetrack-backend/pkg/auth/session"
	"github.com/bitetrack/bitetrack-backend/pkg/config"
	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service owns the login path: credential verification and first issue of
// the token pair. Rotation and revocation live in pkg/auth/session.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type sellerRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Seller, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
}

// ServiceParams carries the collaborators an auth service is built from.
type ServiceParams struct {
	SellerRepo     sellerRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
}

type service struct {
	sellers sellerRepository
	session sessionManager
	jwtCfg  config.JWTConfig
}

func NewService(params ServiceParams) (Service, error) {
	if params.SellerRepo == nil {
		return nil, fmt.Errorf("seller repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		sellers: params.SellerRepo,
		session: params.SessionManager,
		jwtCfg:  params.JWTConfig,
	}, nil
}

// Login verifies the credentials, stamps the login time, and issues a fresh
// token pair. Unknown email, wrong password, and a deactivated account all
// produce the same unauthorized error so the endpoint cannot be used to
// probe which emails exist.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, unauthorized()
	}

	seller, err := s.sellers.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, unauthorized()
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup seller")
	}

	ok, err := security.VerifyPassword(req.Password, seller.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok || !seller.IsActive {
		return nil, unauthorized()
	}

	now := time.Now().UTC()
	if err := s.sellers.UpdateLastLogin(ctx, seller.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	seller.LastLoginAt = &now

	return s.issueTokens(ctx, seller, now)
}

// issueTokens mints the access token and registers its session. The jti ties
// the two together: revoking the session invalidates the token at the auth
// middleware even before it expires.
func (s *service) issueTokens(ctx context.Context, seller *models.Seller, issuedAt time.Time) (*LoginResponse, error) {
	accessID := session.NewAccessID()
	access, err := pkgAuth.MintAccessToken(s.jwtCfg, issuedAt, pkgAuth.AccessTokenPayload{
		SellerID: seller.ID,
		Role:     seller.Role,
		JTI:      accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	refresh, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register session")
	}

	return &LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Seller:       sellers.NewSellerDTO(seller),
	}, nil
}

func unauthorized() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
}
