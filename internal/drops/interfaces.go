package drops

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	"github.com/bitetrack/bitetrack-backend/pkg/pagination"
)

// Repository defines persistence operations for inventory drops.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, drop *models.InventoryDrop) (*models.InventoryDrop, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryDrop, error)
	// MarkReversed flips the drop into its terminal reversed state with one
	// guarded UPDATE. It reports false when the guard matched nothing, i.e.
	// the drop was already reversed, not undoable, or past its deadline.
	MarkReversed(ctx context.Context, params ReversalParams) (bool, error)
	// FindLapsedUnnotified returns unreversed drops whose deadline has passed
	// and whose lapse has not been flagged yet, oldest deadline first.
	FindLapsedUnnotified(ctx context.Context, cutoff time.Time, limit int) ([]models.InventoryDrop, error)
	MarkExpiryNotified(ctx context.Context, dropID uuid.UUID, at time.Time) error
	List(ctx context.Context, query ListQuery) (*ListResult, error)
}

// ReversalParams carries the terminal-state columns for MarkReversed.
type ReversalParams struct {
	DropID     uuid.UUID
	ReversedBy uuid.UUID
	ReversedAt time.Time
	Reason     *string
}

// ListFilters narrow the drop listing.
type ListFilters struct {
	Reason    *enums.DropReason
	Reversed  *bool
	ProductID *uuid.UUID
}

// ListQuery bundles pagination and filters for the drop listing.
type ListQuery struct {
	Pagination pagination.Params
	Filters    ListFilters
}

// ListResult carries one page of drops plus the cursor for the next page.
type ListResult struct {
	Drops      []models.InventoryDrop
	NextCursor string
}
