package drops

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	apperrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a drops repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, drop *models.InventoryDrop) (*models.InventoryDrop, error) {
	if err := r.db.WithContext(ctx).Create(drop).Error; err != nil {
		return nil, err
	}
	return drop, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryDrop, error) {
	var drop models.InventoryDrop
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&drop).Error; err != nil {
		return nil, err
	}
	return &drop, nil
}

// MarkReversed races other reversers through the WHERE guard: only the one
// transaction whose UPDATE matches the still-active row wins, so the re-credit
// that follows a true result can never run twice for the same drop.
func (r *repository) MarkReversed(ctx context.Context, params ReversalParams) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE inventory_drops
		 SET reversed = TRUE, undoable = FALSE, reversed_by_id = ?, reversed_at = ?, reversal_reason = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND reversed = FALSE AND undoable = TRUE AND undo_deadline > ?`,
		params.ReversedBy, params.ReversedAt, params.Reason, params.DropID, params.ReversedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindLapsedUnnotified(ctx context.Context, cutoff time.Time, limit int) ([]models.InventoryDrop, error) {
	var rows []models.InventoryDrop
	err := r.db.WithContext(ctx).
		Where("reversed = FALSE AND undoable = TRUE AND expiry_notified_at IS NULL AND undo_deadline <= ?", cutoff).
		Order("undo_deadline ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) MarkExpiryNotified(ctx context.Context, dropID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryDrop{}).
		Where("id = ?", dropID).
		UpdateColumn("expiry_notified_at", at).Error
}

func (r *repository) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	fetchLimit := pagination.FetchLimit(query.Pagination.Limit)

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "invalid pagination cursor")
	}

	qb := r.db.WithContext(ctx).Model(&models.InventoryDrop{})

	filters := query.Filters
	if filters.Reason != nil {
		qb = qb.Where("reason = ?", *filters.Reason)
	}
	if filters.Reversed != nil {
		qb = qb.Where("reversed = ?", *filters.Reversed)
	}
	if filters.ProductID != nil {
		qb = qb.Where("product_id = ?", *filters.ProductID)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.InventoryDrop
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(fetchLimit).Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ListResult{Drops: rows, NextCursor: nextCursor}, nil
}
