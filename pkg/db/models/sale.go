package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is the historical record of one transaction. Total amount is computed
// server-side from the line items at creation time; amount_paid and settled are
// the only fields mutated afterwards.
type Sale struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID  uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index"`
	SellerID    uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	AmountPaid  decimal.Decimal `gorm:"column:amount_paid;type:numeric(12,2);not null;default:0"`
	Settled     bool            `gorm:"column:settled;not null;default:false"`
	SettledAt   *time.Time      `gorm:"column:settled_at"`
	Items       []SaleItem      `gorm:"foreignKey:SaleID"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// SaleItem captures one (product, quantity) line with the unit price snapshotted
// at sale time. The snapshot never changes, even when the product's live price
// does. Position preserves the request's line order.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID      uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	PriceAtSale decimal.Decimal `gorm:"column:price_at_sale;type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	Position    int             `gorm:"column:position;not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
