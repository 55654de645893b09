package sellers

import (
	"time"

	"github.com/google/uuid"

	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
)

// SellerDTO is the account payload returned to clients. The password hash
// never leaves this package.
type SellerDTO struct {
	ID          uuid.UUID        `json:"id"`
	Email       string           `json:"email"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	Role        enums.SellerRole `json:"role"`
	IsActive    bool             `json:"is_active"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewSellerDTO builds a DTO from the persisted model.
func NewSellerDTO(seller *models.Seller) *SellerDTO {
	return &SellerDTO{
		ID:          seller.ID,
		Email:       seller.Email,
		FirstName:   seller.FirstName,
		LastName:    seller.LastName,
		Role:        seller.Role,
		IsActive:    seller.IsActive,
		LastLoginAt: seller.LastLoginAt,
		CreatedAt:   seller.CreatedAt,
		UpdatedAt:   seller.UpdatedAt,
	}
}
