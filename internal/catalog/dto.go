package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Description    *string         `json:"description,omitempty"`
	PriceAmount    decimal.Decimal `json:"price_amount"`
	QuantityOnHand int             `json:"quantity_on_hand"`
	DietaryFlags   []string        `json:"dietary_flags"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:             product.ID,
		Name:           product.Name,
		Category:       string(product.Category),
		Description:    product.Description,
		PriceAmount:    product.PriceAmount,
		QuantityOnHand: product.QuantityOnHand,
		DietaryFlags:   append([]string{}, product.DietaryFlags...),
		IsActive:       product.IsActive,
		CreatedAt:      product.CreatedAt,
		UpdatedAt:      product.UpdatedAt,
	}
}
