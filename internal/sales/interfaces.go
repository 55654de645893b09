package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	"github.com/bitetrack/bitetrack-backend/pkg/pagination"
)

// Repository defines persistence operations for sales and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSale(ctx context.Context, sale *models.Sale) (*models.Sale, error)
	CreateSaleItems(ctx context.Context, items []models.SaleItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	UpdateSettlement(ctx context.Context, saleID uuid.UUID, updates map[string]any) error
	List(ctx context.Context, query ListQuery) (*ListResult, error)
}

// ListFilters narrow the sale listing.
type ListFilters struct {
	Settled    *bool
	CustomerID *uuid.UUID
}

// ListQuery bundles pagination and filters for the sale listing.
type ListQuery struct {
	Pagination pagination.Params
	Filters    ListFilters
}

// ListResult carries one page of sales plus the cursor for the next page.
type ListResult struct {
	Sales      []models.Sale
	NextCursor string
}

// CustomerDirectory is the slice of the customer repository the sale path
// needs inside its transaction.
type CustomerDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	TouchLastTransaction(ctx context.Context, id uuid.UUID, at time.Time) error
}
