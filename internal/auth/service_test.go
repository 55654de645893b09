package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/bitetrack/bitetrack-backend/pkg/auth"
	"github.com/bitetrack/bitetrack-backend/pkg/config"
	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:    "secret",
		Issuer:    "bitetrack",
		AccessTTL: 30 * time.Minute,
	}
}

// activeSeller builds an active seller whose stored argon2 hash matches the
// given plaintext. Tests flip Role or IsActive on the result as needed.
func activeSeller(t *testing.T, email, password string) *models.Seller {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("argon2 hash: %v", err)
	}
	return &models.Seller{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Marta",
		LastName:     "Reyes",
		Role:         enums.SellerRoleSeller,
		IsActive:     true,
	}
}

// loginFixture wires a service around stubbed seller and session stores so
// each test can reach into both sides after calling Login.
type loginFixture struct {
	svc      Service
	sellers  *sellerRepoStub
	sessions *sessionStub
}

func newLoginFixture(t *testing.T, seller *models.Seller, cfg config.JWTConfig) *loginFixture {
	t.Helper()
	sellers := &sellerRepoStub{seller: seller}
	sessions := &sessionStub{token: "refresh-token"}
	service, err := NewService(ServiceParams{
		SellerRepo:     sellers,
		SessionManager: sessions,
		JWTConfig:      cfg,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &loginFixture{svc: service, sellers: sellers, sessions: sessions}
}

func TestServiceLoginIssuesTokenPair(t *testing.T) {
	cfg := testJWTConfig()
	seller := activeSeller(t, "marta@bitetrack.test", "seller-secret")
	fix := newLoginFixture(t, seller, cfg)

	resp, err := fix.svc.Login(context.Background(), LoginRequest{
		Email:    seller.Email,
		Password: "seller-secret",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.SellerID != seller.ID {
		t.Fatalf("seller claim = %s, want %s", claims.SellerID, seller.ID)
	}
	if claims.Role != enums.SellerRoleSeller {
		t.Fatalf("role claim = %s, want %s", claims.Role, enums.SellerRoleSeller)
	}
	if claims.ID == "" || claims.ID != fix.sessions.mintedJTI {
		t.Fatalf("jti = %q, want the session access id %q", claims.ID, fix.sessions.mintedJTI)
	}
	if resp.RefreshToken != fix.sessions.token {
		t.Fatalf("refresh token = %q, want %q", resp.RefreshToken, fix.sessions.token)
	}
	if resp.Seller == nil || resp.Seller.ID != seller.ID {
		t.Fatal("response must carry the seller profile")
	}
	if seller.LastLoginAt == nil {
		t.Fatal("login must stamp last_login_at")
	}
}

func TestServiceLoginAdminRoleClaim(t *testing.T) {
	cfg := testJWTConfig()
	seller := activeSeller(t, "admin@bitetrack.test", "admin-secret")
	seller.Role = enums.SellerRoleAdmin
	fix := newLoginFixture(t, seller, cfg)

	resp, err := fix.svc.Login(context.Background(), LoginRequest{
		Email:    seller.Email,
		Password: "admin-secret",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.Role != enums.SellerRoleAdmin {
		t.Fatalf("role claim = %s, want %s", claims.Role, enums.SellerRoleAdmin)
	}
}

func TestServiceLoginNormalizesEmail(t *testing.T) {
	seller := activeSeller(t, "marta@bitetrack.test", "seller-secret")
	fix := newLoginFixture(t, seller, testJWTConfig())

	if _, err := fix.svc.Login(context.Background(), LoginRequest{
		Email:    "  MARTA@BiteTrack.Test ",
		Password: "seller-secret",
	}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if fix.sellers.lookedUp != "marta@bitetrack.test" {
		t.Fatalf("repo lookup = %q, want the normalized email", fix.sellers.lookedUp)
	}
}

func TestServiceLoginWrongPassword(t *testing.T) {
	seller := activeSeller(t, "marta@bitetrack.test", "right password")
	fix := newLoginFixture(t, seller, testJWTConfig())

	_, err := fix.svc.Login(context.Background(), LoginRequest{
		Email:    seller.Email,
		Password: "wrong password",
	})
	wantCredentialsRejected(t, err)
}

func TestServiceLoginUnknownEmail(t *testing.T) {
	fix := newLoginFixture(t, nil, testJWTConfig())

	_, err := fix.svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@bitetrack.test",
		Password: "whatever",
	})
	wantCredentialsRejected(t, err)
}

func TestServiceLoginInactiveSeller(t *testing.T) {
	seller := activeSeller(t, "retired@bitetrack.test", "seller-secret")
	seller.IsActive = false
	fix := newLoginFixture(t, seller, testJWTConfig())

	_, err := fix.svc.Login(context.Background(), LoginRequest{
		Email:    seller.Email,
		Password: "seller-secret",
	})
	wantCredentialsRejected(t, err)
}

func TestServiceLoginRepoFailureIsInternal(t *testing.T) {
	fix := newLoginFixture(t, nil, testJWTConfig())
	fix.sellers.err = errors.New("connection reset")

	_, err := fix.svc.Login(context.Background(), LoginRequest{
		Email:    "marta@bitetrack.test",
		Password: "seller-secret",
	})

	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeInternal {
		t.Fatalf("Login error = %v, want internal", err)
	}
	if coded.Message() == invalidCredentialsMessage {
		t.Fatal("a storage failure must not read as bad credentials")
	}
}

// wantCredentialsRejected asserts the login failed with the one generic
// unauthorized message, whatever the underlying cause was.
func wantCredentialsRejected(t *testing.T, err error) {
	t.Helper()
	coded := pkgerrors.As(err)
	if coded == nil {
		t.Fatalf("Login error = %v, want a coded unauthorized", err)
	}
	if coded.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("code = %s, want %s", coded.Code(), pkgerrors.CodeUnauthorized)
	}
	if coded.Message() != invalidCredentialsMessage {
		t.Fatalf("message = %q, want %q", coded.Message(), invalidCredentialsMessage)
	}
}

type sellerRepoStub struct {
	seller   *models.Seller
	err      error
	lookedUp string
}

func (s *sellerRepoStub) FindByEmail(ctx context.Context, email string) (*models.Seller, error) {
	s.lookedUp = email
	switch {
	case s.err != nil:
		return nil, s.err
	case s.seller == nil:
		return nil, gorm.ErrRecordNotFound
	}
	return s.seller, nil
}

func (s *sellerRepoStub) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.seller != nil && s.seller.ID == id {
		s.seller.LastLoginAt = &at
	}
	return nil
}

type sessionStub struct {
	token     string
	mintedJTI string
}

func (s *sessionStub) Generate(ctx context.Context, accessID string) (string, error) {
	s.mintedJTI = accessID
	return s.token, nil
}
