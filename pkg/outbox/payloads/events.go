package payloads

import (
	"time"

	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleLineItem mirrors one priced line of a recorded sale. QuantityAfter is
// the product's on-hand count once the decrement committed.
type SaleLineItem struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	PriceAtSale   decimal.Decimal `json:"price_at_sale"`
	LineTotal     decimal.Decimal `json:"line_total"`
	QuantityAfter int             `json:"quantity_after"`
}

// SaleRecordedEvent signals an atomically committed sale.
type SaleRecordedEvent struct {
	SaleID      uuid.UUID       `json:"sale_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Settled     bool            `json:"settled"`
	Items       []SaleLineItem  `json:"items"`
}

// SaleSettledEvent is emitted when a sale transitions to fully paid.
type SaleSettledEvent struct {
	SaleID      uuid.UUID       `json:"sale_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	SettledAt   time.Time       `json:"settled_at"`
}

// DropRecordedEvent captures an inventory write-off and its value impact.
type DropRecordedEvent struct {
	DropID         uuid.UUID        `json:"drop_id"`
	ProductID      uuid.UUID        `json:"product_id"`
	ProductName    string           `json:"product_name"`
	SellerID       uuid.UUID        `json:"seller_id"`
	Quantity       int              `json:"quantity"`
	QuantityBefore int              `json:"quantity_before"`
	QuantityAfter  int              `json:"quantity_after"`
	Reason         enums.DropReason `json:"reason"`
	TotalValueLost decimal.Decimal  `json:"total_value_lost"`
	DroppedAt      time.Time        `json:"dropped_at"`
}

// DropReversedEvent reports that a drop was undone and stock re-credited.
type DropReversedEvent struct {
	DropID         uuid.UUID       `json:"drop_id"`
	ProductID      uuid.UUID       `json:"product_id"`
	ProductName    string          `json:"product_name"`
	ReversedByID   uuid.UUID       `json:"reversed_by_id"`
	Quantity       int             `json:"quantity"`
	QuantityAfter  int             `json:"quantity_after"`
	RestoredAmount decimal.Decimal `json:"restored_amount"`
	ReversedAt     time.Time       `json:"reversed_at"`
	Reason         string          `json:"reason,omitempty"`
}

// DropUndoWindowExpiredEvent marks a drop whose undo deadline has passed.
type DropUndoWindowExpiredEvent struct {
	DropID       uuid.UUID `json:"drop_id"`
	ProductID    uuid.UUID `json:"product_id"`
	UndoDeadline time.Time `json:"undo_deadline"`
	ExpiredAt    time.Time `json:"expired_at"`
}

// ProductCreatedEvent describes a newly cataloged product.
type ProductCreatedEvent struct {
	ProductID      uuid.UUID             `json:"product_id"`
	Name           string                `json:"name"`
	Category       enums.ProductCategory `json:"category"`
	PriceAmount    decimal.Decimal       `json:"price_amount"`
	QuantityOnHand int                   `json:"quantity_on_hand"`
}

// ProductUpdatedEvent carries the fields after a catalog update.
type ProductUpdatedEvent struct {
	ProductID      uuid.UUID             `json:"product_id"`
	Name           string                `json:"name"`
	Category       enums.ProductCategory `json:"category"`
	PriceAmount    decimal.Decimal       `json:"price_amount"`
	QuantityOnHand int                   `json:"quantity_on_hand"`
	IsActive       bool                  `json:"is_active"`
}

// SellerCreatedEvent announces a provisioned seller account.
type SellerCreatedEvent struct {
	SellerID uuid.UUID        `json:"seller_id"`
	Email    string           `json:"email"`
	Role     enums.SellerRole `json:"role"`
}
