package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	apperrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
)

// Ledger mutates products.quantity_on_hand through guarded single-statement
// updates. The guard carries the invariant: a decrement only lands when the
// current count covers it, so concurrent writers can never take the count
// negative regardless of interleaving.
type Ledger interface {
	// DecrementActive debits stock for a sale. The product must be active.
	DecrementActive(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (*Adjustment, error)
	// Decrement debits stock for a write-off. Inactive products are allowed so
	// leftover stock of retired items can still be dropped.
	Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (*Adjustment, error)
	// Credit restores stock, e.g. when a drop is reversed.
	Credit(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (*Adjustment, error)
}

// Adjustment reports the ledger row around a completed quantity change. Product
// is re-read inside the same transaction, so QuantityAfter is the authoritative
// post-adjustment count and the price/name fields are safe to snapshot.
type Adjustment struct {
	Product        models.Product
	QuantityBefore int
	QuantityAfter  int
}

// InsufficientStock is attached as details when a decrement is rejected.
type InsufficientStock struct {
	ProductID uuid.UUID `json:"productId"`
	Available int       `json:"available"`
	Requested int       `json:"requested"`
}

// NewLedger returns the database-backed ledger.
func NewLedger() Ledger {
	return ledgerImpl{}
}

type ledgerImpl struct{}

func (ledgerImpl) DecrementActive(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (*Adjustment, error) {
	return decrement(ctx, tx, productID, qty, true)
}

func (ledgerImpl) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (*Adjustment, error) {
	return decrement(ctx, tx, productID, qty, false)
}

func (ledgerImpl) Credit(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (*Adjustment, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if qty <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidQuantity, "quantity must be a positive integer")
	}
	result := tx.WithContext(ctx).Exec(
		"UPDATE products SET quantity_on_hand = quantity_on_hand + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		qty, productID,
	)
	if result.Error != nil {
		return nil, fmt.Errorf("credit inventory: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
	}
	product, err := reload(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	return &Adjustment{
		Product:        *product,
		QuantityBefore: product.QuantityOnHand - qty,
		QuantityAfter:  product.QuantityOnHand,
	}, nil
}

func decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, requireActive bool) (*Adjustment, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if qty <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidQuantity, "quantity must be a positive integer")
	}
	query := "UPDATE products SET quantity_on_hand = quantity_on_hand - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND quantity_on_hand >= ?"
	if requireActive {
		query += " AND is_active = TRUE"
	}
	result := tx.WithContext(ctx).Exec(query, qty, productID, qty)
	if result.Error != nil {
		return nil, fmt.Errorf("decrement inventory: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, classifyDecrementFailure(ctx, tx, productID, qty, requireActive)
	}
	product, err := reload(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	return &Adjustment{
		Product:        *product,
		QuantityBefore: product.QuantityOnHand + qty,
		QuantityAfter:  product.QuantityOnHand,
	}, nil
}

// classifyDecrementFailure re-reads the row to explain why the guarded update
// matched nothing: the product is missing, retired, or short on stock.
func classifyDecrementFailure(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, requireActive bool) error {
	var product models.Product
	err := tx.WithContext(ctx).First(&product, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
	}
	if err != nil {
		return fmt.Errorf("classify decrement failure: %w", err)
	}
	if requireActive && !product.IsActive {
		return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("product %s is no longer active", productID))
	}
	return apperrors.New(apperrors.CodeInsufficientInventory, "insufficient inventory").
		WithDetails(InsufficientStock{
			ProductID: productID,
			Available: product.QuantityOnHand,
			Requested: qty,
		})
}

func reload(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := tx.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		return nil, fmt.Errorf("reload product: %w", err)
	}
	return &product, nil
}
