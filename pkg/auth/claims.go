package auth

import (
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload holds the fields stamped into a freshly minted token.
type AccessTokenPayload struct {
	SellerID uuid.UUID
	Role     enums.SellerRole
	JTI      string
}

// AccessTokenClaims is the decoded form of an access JWT.
type AccessTokenClaims struct {
	SellerID uuid.UUID        `json:"seller_id"`
	Role     enums.SellerRole `json:"role"`
	jwt.RegisteredClaims
}
