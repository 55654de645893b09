package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/bitetrack/bitetrack-backend/pkg/enums"
)

// Product is the authoritative ledger row for one sellable item: current unit
// price plus live on-hand quantity. Quantity is mutated only through the sale,
// drop, and reversal paths.
type Product struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string                `gorm:"column:name;not null"`
	Category       enums.ProductCategory `gorm:"column:category;type:product_category_enum;not null"`
	Description    *string               `gorm:"column:description"`
	PriceAmount    decimal.Decimal       `gorm:"column:price_amount;type:numeric(12,2);not null"`
	QuantityOnHand int                   `gorm:"column:quantity_on_hand;not null;default:0"`
	DietaryFlags   pq.StringArray        `gorm:"column:dietary_flags;type:text[]"`
	IsActive       bool                  `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
