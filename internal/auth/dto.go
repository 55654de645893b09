package auth

import (
	"github.com/bitetrack/bitetrack-backend/internal/sellers"
)

// LoginRequest captures the seller credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the token pair and seller profile produced by a
// successful login.
type LoginResponse struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	Seller       *sellers.SellerDTO `json:"seller"`
}
