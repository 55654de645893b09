package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	apperrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:ledger_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
		CREATE TABLE products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			description TEXT,
			price_amount NUMERIC NOT NULL,
			quantity_on_hand INTEGER NOT NULL DEFAULT 0,
			dietary_flags TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`).Error)

	return db
}

func seedLedgerProduct(t *testing.T, db *gorm.DB, qty int) models.Product {
	t.Helper()
	product := models.Product{
		ID:             uuid.New(),
		Name:           "Sourdough Loaf",
		Category:       enums.ProductCategoryBread,
		PriceAmount:    decimal.RequireFromString("5.00"),
		QuantityOnHand: qty,
		IsActive:       true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func currentCount(t *testing.T, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, db.First(&product, "id = ?", productID).Error)
	return product.QuantityOnHand
}

func TestLedgerDecrementActive_DebitsStock(t *testing.T) {
	db := setupLedgerTestDB(t)
	product := seedLedgerProduct(t, db, 10)
	ledger := NewLedger()

	adj, err := ledger.DecrementActive(context.Background(), db, product.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, 10, adj.QuantityBefore)
	assert.Equal(t, 7, adj.QuantityAfter)
	assert.Equal(t, product.ID, adj.Product.ID)
	assert.True(t, adj.Product.PriceAmount.Equal(decimal.RequireFromString("5.00")))
	assert.Equal(t, 7, currentCount(t, db, product.ID))
}

func TestLedgerDecrementActive_AllowsExactDrainToZero(t *testing.T) {
	db := setupLedgerTestDB(t)
	product := seedLedgerProduct(t, db, 5)
	ledger := NewLedger()

	adj, err := ledger.DecrementActive(context.Background(), db, product.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, adj.QuantityAfter)

	_, err = ledger.DecrementActive(context.Background(), db, product.ID, 1)
	appErr := apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeInsufficientInventory, appErr.Code())
	details, ok := appErr.Details().(InsufficientStock)
	require.True(t, ok)
	assert.Equal(t, 0, details.Available)
	assert.Equal(t, 1, details.Requested)
}

func TestLedgerDecrementActive_RejectsInsufficientStock(t *testing.T) {
	db := setupLedgerTestDB(t)
	product := seedLedgerProduct(t, db, 2)
	ledger := NewLedger()

	_, err := ledger.DecrementActive(context.Background(), db, product.ID, 5)
	appErr := apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeInsufficientInventory, appErr.Code())

	details, ok := appErr.Details().(InsufficientStock)
	require.True(t, ok)
	assert.Equal(t, product.ID, details.ProductID)
	assert.Equal(t, 2, details.Available)
	assert.Equal(t, 5, details.Requested)

	assert.Equal(t, 2, currentCount(t, db, product.ID), "count must be untouched on rejection")
}

func TestLedgerDecrementActive_UnknownProduct(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := NewLedger()

	_, err := ledger.DecrementActive(context.Background(), db, uuid.New(), 1)
	appErr := apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code())
}

func TestLedgerDecrementActive_RetiredProduct(t *testing.T) {
	db := setupLedgerTestDB(t)
	product := seedLedgerProduct(t, db, 10)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error)
	ledger := NewLedger()

	_, err := ledger.DecrementActive(context.Background(), db, product.ID, 1)
	appErr := apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code())

	// the write-off path still reaches retired stock
	adj, err := ledger.Decrement(context.Background(), db, product.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, adj.QuantityAfter)
}

func TestLedgerDecrement_RejectsNonPositiveQuantity(t *testing.T) {
	db := setupLedgerTestDB(t)
	product := seedLedgerProduct(t, db, 10)
	ledger := NewLedger()

	for _, qty := range []int{0, -2} {
		_, err := ledger.Decrement(context.Background(), db, product.ID, qty)
		appErr := apperrors.As(err)
		require.NotNil(t, appErr, "qty %d", qty)
		assert.Equal(t, apperrors.CodeInvalidQuantity, appErr.Code())
	}
	assert.Equal(t, 10, currentCount(t, db, product.ID))
}

func TestLedgerCredit_RestoresStock(t *testing.T) {
	db := setupLedgerTestDB(t)
	product := seedLedgerProduct(t, db, 2)
	ledger := NewLedger()

	adj, err := ledger.Credit(context.Background(), db, product.ID, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, adj.QuantityBefore)
	assert.Equal(t, 7, adj.QuantityAfter)
	assert.Equal(t, 7, currentCount(t, db, product.ID))
}

func TestLedgerCredit_UnknownProduct(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := NewLedger()

	_, err := ledger.Credit(context.Background(), db, uuid.New(), 3)
	appErr := apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code())
}
