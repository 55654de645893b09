package drops

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
)

// DropDTO is the write-off payload returned to clients. CanUndo and
// UndoTimeRemainingMinutes are derived against the service clock at read
// time; the stored row only carries the deadline.
type DropDTO struct {
	ID                       uuid.UUID             `json:"id"`
	ProductID                uuid.UUID             `json:"product_id"`
	ProductName              string                `json:"product_name"`
	ProductCategory          enums.ProductCategory `json:"product_category"`
	Quantity                 int                   `json:"quantity"`
	QuantityBefore           int                   `json:"quantity_before"`
	QuantityAfter            int                   `json:"quantity_after"`
	UnitPrice                decimal.Decimal       `json:"unit_price"`
	TotalValueLost           decimal.Decimal       `json:"total_value_lost"`
	Reason                   enums.DropReason      `json:"reason"`
	Notes                    *string               `json:"notes,omitempty"`
	ProductionDate           *time.Time            `json:"production_date,omitempty"`
	ExpirationDate           *time.Time            `json:"expiration_date,omitempty"`
	BatchCode                *string               `json:"batch_code,omitempty"`
	SellerID                 uuid.UUID             `json:"seller_id"`
	DroppedAt                time.Time             `json:"dropped_at"`
	UndoDeadline             time.Time             `json:"undo_deadline"`
	CanUndo                  bool                  `json:"can_undo"`
	UndoTimeRemainingMinutes int                   `json:"undo_time_remaining_minutes"`
	Reversed                 bool                  `json:"reversed"`
	ReversedByID             *uuid.UUID            `json:"reversed_by_id,omitempty"`
	ReversedAt               *time.Time            `json:"reversed_at,omitempty"`
	ReversalReason           *string               `json:"reversal_reason,omitempty"`
	CreatedAt                time.Time             `json:"created_at"`
	UpdatedAt                time.Time             `json:"updated_at"`
}

// NewDropDTO builds a DTO from the persisted model, deriving the undo fields
// from the deadline and the provided instant.
func NewDropDTO(drop *models.InventoryDrop, now time.Time) *DropDTO {
	remaining := 0
	canUndo := false
	if !drop.Reversed && drop.Undoable && drop.UndoDeadline.After(now) {
		canUndo = true
		remaining = int(drop.UndoDeadline.Sub(now).Minutes())
	}

	return &DropDTO{
		ID:                       drop.ID,
		ProductID:                drop.ProductID,
		ProductName:              drop.ProductName,
		ProductCategory:          drop.ProductCategory,
		Quantity:                 drop.Quantity,
		QuantityBefore:           drop.QuantityBefore,
		QuantityAfter:            drop.QuantityAfter,
		UnitPrice:                drop.UnitPrice,
		TotalValueLost:           drop.TotalValueLost,
		Reason:                   drop.Reason,
		Notes:                    drop.Notes,
		ProductionDate:           drop.ProductionDate,
		ExpirationDate:           drop.ExpirationDate,
		BatchCode:                drop.BatchCode,
		SellerID:                 drop.SellerID,
		DroppedAt:                drop.DroppedAt,
		UndoDeadline:             drop.UndoDeadline,
		CanUndo:                  canUndo,
		UndoTimeRemainingMinutes: remaining,
		Reversed:                 drop.Reversed,
		ReversedByID:             drop.ReversedByID,
		ReversedAt:               drop.ReversedAt,
		ReversalReason:           drop.ReversalReason,
		CreatedAt:                drop.CreatedAt,
		UpdatedAt:                drop.UpdatedAt,
	}
}
