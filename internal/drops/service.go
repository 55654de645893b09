package drops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/internal/inventory"
	"github.com/bitetrack/bitetrack-backend/pkg/clock"
	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	apperrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/metrics"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox/payloads"
	"github.com/bitetrack/bitetrack-backend/pkg/pagination"
)

// undoWindow is how long a recorded drop stays reversible, measured from the
// drop timestamp. The deadline is persisted; whether it has passed is always
// judged against the clock at decision time.
const undoWindow = 8 * time.Hour

const (
	opRecordDrop  = "drop_record"
	opReverseDrop = "drop_reverse"
)

const (
	outcomeReversed        = "reversed"
	outcomeAlreadyReversed = "already_reversed"
	outcomeWindowExpired   = "window_expired"
)

// Service runs the write-off paths: atomic drop recording, the reversal state
// machine, and the derived reads.
type Service interface {
	Record(ctx context.Context, input RecordDropInput) (*DropDTO, error)
	Reverse(ctx context.Context, input ReverseDropInput) (*DropDTO, error)
	Get(ctx context.Context, dropID uuid.UUID) (*DropDTO, error)
	List(ctx context.Context, input ListDropsInput) (*DropListResult, error)
}

// RecordDropInput carries the validated payload for writing off stock.
type RecordDropInput struct {
	ProductID      uuid.UUID
	SellerID       uuid.UUID
	Quantity       int
	Reason         enums.DropReason
	Notes          *string
	ProductionDate *time.Time
	ExpirationDate *time.Time
	BatchCode      *string
}

// ReverseDropInput identifies the drop to undo and who is undoing it.
type ReverseDropInput struct {
	DropID   uuid.UUID
	SellerID uuid.UUID
	Reason   *string
}

// ListDropsInput carries listing filters and pagination.
type ListDropsInput struct {
	Pagination pagination.Params
	Reason     *enums.DropReason
	Reversed   *bool
	ProductID  *uuid.UUID
}

// DropListResult is one page of drops.
type DropListResult struct {
	Drops      []DropDTO `json:"drops"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// AlreadyReversedDetails is attached when a second undo hits a reversed drop.
type AlreadyReversedDetails struct {
	DropID     uuid.UUID  `json:"dropId"`
	ReversedAt *time.Time `json:"reversedAt,omitempty"`
	ReversedBy *uuid.UUID `json:"reversedBy,omitempty"`
}

// WindowExpiredDetails is attached when the undo deadline has lapsed.
type WindowExpiredDetails struct {
	DropID       uuid.UUID `json:"dropId"`
	UndoDeadline time.Time `json:"undoDeadline"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams carries the collaborators a drop service is built from.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Ledger  inventory.Ledger
	Metrics *metrics.EngineMetrics
	Clock   clock.Clock
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	ledger  inventory.Ledger
	metrics *metrics.EngineMetrics
	clock   clock.Clock
}

// NewService builds a drop service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("drops repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Clock == nil {
		params.Clock = clock.NewSystem()
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		ledger:  params.Ledger,
		metrics: params.Metrics,
		clock:   params.Clock,
	}, nil
}

func (s *service) Record(ctx context.Context, input RecordDropInput) (*DropDTO, error) {
	if input.ProductID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "product id required")
	}
	if input.SellerID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "seller identity missing")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidQuantity, "quantity must be a positive integer")
	}
	if !input.Reason.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid drop reason %q", input.Reason))
	}

	start := time.Now()
	var drop *models.InventoryDrop
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// Inactive products are still droppable: leftover stock of a retired
		// item has to come off the ledger somehow.
		adjustment, err := s.ledger.Decrement(ctx, tx, input.ProductID, input.Quantity)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		row := &models.InventoryDrop{
			ID:              uuid.New(),
			ProductID:       input.ProductID,
			ProductName:     adjustment.Product.Name,
			ProductCategory: adjustment.Product.Category,
			Quantity:        input.Quantity,
			QuantityBefore:  adjustment.QuantityBefore,
			QuantityAfter:   adjustment.QuantityAfter,
			UnitPrice:       adjustment.Product.PriceAmount,
			TotalValueLost:  adjustment.Product.PriceAmount.Mul(decimal.NewFromInt(int64(input.Quantity))),
			Reason:          input.Reason,
			Notes:           input.Notes,
			ProductionDate:  input.ProductionDate,
			ExpirationDate:  input.ExpirationDate,
			BatchCode:       input.BatchCode,
			SellerID:        input.SellerID,
			DroppedAt:       now,
			Undoable:        true,
			UndoDeadline:    now.Add(undoWindow),
		}

		if _, err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: insert drop")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDropRecorded,
			AggregateType: enums.AggregateInventoryDrop,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{SellerID: input.SellerID},
			Version:       1,
			Data: payloads.DropRecordedEvent{
				DropID:         row.ID,
				ProductID:      row.ProductID,
				ProductName:    row.ProductName,
				SellerID:       row.SellerID,
				Quantity:       row.Quantity,
				QuantityBefore: row.QuantityBefore,
				QuantityAfter:  row.QuantityAfter,
				Reason:         row.Reason,
				TotalValueLost: row.TotalValueLost,
				DroppedAt:      row.DroppedAt,
			},
		}); err != nil {
			return err
		}

		drop = row
		return nil
	})
	if err != nil {
		if typed := apperrors.As(err); typed != nil {
			if typed.Code() == apperrors.CodeInsufficientInventory {
				s.metrics.IncInventoryRejection(opRecordDrop)
			}
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "record drop")
	}

	s.metrics.IncDropRecorded(input.Reason.String())
	s.metrics.ObserveDuration(opRecordDrop, time.Since(start))
	return NewDropDTO(drop, s.clock.Now()), nil
}

func (s *service) Reverse(ctx context.Context, input ReverseDropInput) (*DropDTO, error) {
	if input.DropID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "drop id required")
	}
	if input.SellerID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "seller identity missing")
	}

	start := time.Now()
	var drop *models.InventoryDrop
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		row, err := repo.FindByID(ctx, input.DropID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("drop %s not found", input.DropID))
			}
			return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: load drop")
		}

		now := s.clock.Now()
		flipped, err := repo.MarkReversed(ctx, ReversalParams{
			DropID:     row.ID,
			ReversedBy: input.SellerID,
			ReversedAt: now,
			Reason:     input.Reason,
		})
		if err != nil {
			return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: mark drop reversed")
		}
		if !flipped {
			return s.classifyReversalFailure(ctx, repo, row.ID, now)
		}

		// The flip won the guard, so this credit runs at most once per drop.
		adjustment, err := s.ledger.Credit(ctx, tx, row.ProductID, row.Quantity)
		if err != nil {
			return err
		}

		row.Reversed = true
		row.Undoable = false
		row.ReversedByID = &input.SellerID
		row.ReversedAt = &now
		row.ReversalReason = input.Reason

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDropReversed,
			AggregateType: enums.AggregateInventoryDrop,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{SellerID: input.SellerID},
			Version:       1,
			Data: payloads.DropReversedEvent{
				DropID:         row.ID,
				ProductID:      row.ProductID,
				ProductName:    row.ProductName,
				ReversedByID:   input.SellerID,
				Quantity:       row.Quantity,
				QuantityAfter:  adjustment.QuantityAfter,
				RestoredAmount: row.TotalValueLost,
				ReversedAt:     now,
				Reason:         stringValue(input.Reason),
			},
		}); err != nil {
			return err
		}

		drop = row
		return nil
	})
	if err != nil {
		if typed := apperrors.As(err); typed != nil {
			switch typed.Code() {
			case apperrors.CodeAlreadyReversed:
				s.metrics.IncReversal(outcomeAlreadyReversed)
			case apperrors.CodeUndoWindowExpired:
				s.metrics.IncReversal(outcomeWindowExpired)
			}
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "reverse drop")
	}

	s.metrics.IncReversal(outcomeReversed)
	s.metrics.ObserveDuration(opReverseDrop, time.Since(start))
	return NewDropDTO(drop, s.clock.Now()), nil
}

// classifyReversalFailure re-reads the row to explain why the guarded flip
// matched nothing. The re-read sees any concurrently committed reversal, so a
// raced second undo comes back ALREADY_REVERSED rather than a generic miss.
func (s *service) classifyReversalFailure(ctx context.Context, repo Repository, dropID uuid.UUID, now time.Time) error {
	row, err := repo.FindByID(ctx, dropID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("drop %s not found", dropID))
		}
		return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: reload drop")
	}
	switch {
	case row.Reversed:
		return apperrors.New(apperrors.CodeAlreadyReversed, fmt.Sprintf("drop %s has already been reversed", dropID)).
			WithDetails(AlreadyReversedDetails{
				DropID:     dropID,
				ReversedAt: row.ReversedAt,
				ReversedBy: row.ReversedByID,
			})
	case !row.UndoDeadline.After(now):
		return apperrors.New(apperrors.CodeUndoWindowExpired, fmt.Sprintf("undo window for drop %s has expired", dropID)).
			WithDetails(WindowExpiredDetails{
				DropID:       dropID,
				UndoDeadline: row.UndoDeadline,
			})
	case !row.Undoable:
		return apperrors.New(apperrors.CodeConflict, fmt.Sprintf("drop %s can no longer be reversed", dropID))
	default:
		return apperrors.New(apperrors.CodeConflict, fmt.Sprintf("drop %s could not be reversed", dropID))
	}
}

func (s *service) Get(ctx context.Context, dropID uuid.UUID) (*DropDTO, error) {
	drop, err := s.repo.FindByID(ctx, dropID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("drop %s not found", dropID))
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: load drop")
	}
	return NewDropDTO(drop, s.clock.Now()), nil
}

func (s *service) List(ctx context.Context, input ListDropsInput) (*DropListResult, error) {
	result, err := s.repo.List(ctx, ListQuery{
		Pagination: input.Pagination,
		Filters: ListFilters{
			Reason:    input.Reason,
			Reversed:  input.Reversed,
			ProductID: input.ProductID,
		},
	})
	if err != nil {
		if apperrors.As(err) != nil {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: list drops")
	}

	now := s.clock.Now()
	dtos := make([]DropDTO, 0, len(result.Drops))
	for i := range result.Drops {
		dtos = append(dtos, *NewDropDTO(&result.Drops[i], now))
	}
	return &DropListResult{Drops: dtos, NextCursor: result.NextCursor}, nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
