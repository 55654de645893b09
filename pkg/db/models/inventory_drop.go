package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitetrack/bitetrack-backend/pkg/enums"
)

// InventoryDrop records a write-off of on-hand quantity. Product name, category,
// unit price, and the surrounding counts are snapshotted so the record stays
// meaningful after the product is edited or retired. The reversal fields are
// written exactly once, by the undo path. Whether the window is still open is
// always derived from undo_deadline against the current time, never stored;
// expiry_notified_at only marks that the lapse event was emitted.
type InventoryDrop struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index"`
	ProductName      string                `gorm:"column:product_name;not null"`
	ProductCategory  enums.ProductCategory `gorm:"column:product_category;type:product_category_enum;not null"`
	Quantity         int                   `gorm:"column:quantity;not null"`
	QuantityBefore   int                   `gorm:"column:quantity_before;not null"`
	QuantityAfter    int                   `gorm:"column:quantity_after;not null"`
	UnitPrice        decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalValueLost   decimal.Decimal       `gorm:"column:total_value_lost;type:numeric(12,2);not null"`
	Reason           enums.DropReason      `gorm:"column:reason;type:drop_reason_enum;not null"`
	Notes            *string               `gorm:"column:notes"`
	ProductionDate   *time.Time            `gorm:"column:production_date;type:date"`
	ExpirationDate   *time.Time            `gorm:"column:expiration_date;type:date"`
	BatchCode        *string               `gorm:"column:batch_code"`
	SellerID         uuid.UUID             `gorm:"column:seller_id;type:uuid;not null;index"`
	DroppedAt        time.Time             `gorm:"column:dropped_at;not null"`
	Undoable         bool                  `gorm:"column:undoable;not null;default:true"`
	UndoDeadline     time.Time             `gorm:"column:undo_deadline;not null"`
	Reversed         bool                  `gorm:"column:reversed;not null;default:false"`
	ReversedByID     *uuid.UUID            `gorm:"column:reversed_by_id;type:uuid"`
	ReversedAt       *time.Time            `gorm:"column:reversed_at"`
	ReversalReason   *string               `gorm:"column:reversal_reason"`
	ExpiryNotifiedAt *time.Time            `gorm:"column:expiry_notified_at"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
