package sales

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

const (
	opRecordSale = "sale_record"
	opSettleSale = "sale_settle"
)

// Service runs the transactional sale paths: atomic multi-line recording and
// settlement updates, plus the derived reads.
type Service interface {
	Record(ctx context.Context, input RecordSaleInput) (*SaleDTO, error)
	Settle(ctx context.Context, input SettleSaleInput) (*SaleDTO, error)
	Get(ctx context.Context, saleID uuid.UUID) (*SaleDTO, error)
	List(ctx context.Context, input ListSalesInput) (*SaleListResult, error)
}

// SaleLineInput is one requested (product, quantity) pair.
type SaleLineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// RecordSaleInput carries the validated payload for recording a sale.
type RecordSaleInput struct {
	CustomerID uuid.UUID
	SellerID   uuid.UUID
	Lines      []SaleLineInput
	AmountPaid decimal.Decimal
}

// SettleSaleInput replaces a sale's amount paid.
type SettleSaleInput struct {
	SaleID     uuid.UUID
	SellerID   uuid.UUID
	AmountPaid decimal.Decimal
}

// ListSalesInput carries listing filters and pagination.
type ListSalesInput struct {
	Pagination pagination.Params
	Settled    *bool
	CustomerID *uuid.UUID
}

// SaleListResult is one page of sales.
type SaleListResult struct {
	Sales      []SaleDTO `json:"sales"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams carries the collaborators a sale service is built from.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Outbox    outboxPublisher
	Ledger    inventory.Ledger
	Customers func(tx *gorm.DB) CustomerDirectory
	Metrics   *metrics.EngineMetrics
	Clock     clock.Clock
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	ledger    inventory.Ledger
	customers func(tx *gorm.DB) CustomerDirectory
	metrics   *metrics.EngineMetrics
	clock     clock.Clock
}

// NewService builds a sale service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("sales repository required")
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
	if params.Customers == nil {
		return nil, fmt.Errorf("customer directory required")
	}
	if params.Clock == nil {
		params.Clock = clock.NewSystem()
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		outbox:    params.Outbox,
		ledger:    params.Ledger,
		customers: params.Customers,
		metrics:   params.Metrics,
		clock:     params.Clock,
	}, nil
}

func (s *service) Record(ctx context.Context, input RecordSaleInput) (*SaleDTO, error) {
	if input.CustomerID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "customer id required")
	}
	if input.SellerID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "seller identity missing")
	}
	if len(input.Lines) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "at least one line item is required")
	}
	if input.AmountPaid.IsNegative() {
		return nil, apperrors.New(apperrors.CodeInvalidQuantity, "amount paid cannot be negative")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.Lines))
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return nil, apperrors.New(apperrors.CodeValidation, "product id required on every line")
		}
		if line.Quantity <= 0 {
			return nil, apperrors.New(apperrors.CodeInvalidQuantity, "quantity must be a positive integer")
		}
		if _, dup := seen[line.ProductID]; dup {
			return nil, apperrors.New(apperrors.CodeInvalidQuantity, fmt.Sprintf("product %s appears on more than one line", line.ProductID))
		}
		seen[line.ProductID] = struct{}{}
	}

	start := time.Now()
	var sale *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		directory := s.customers(tx)

		if _, err := directory.FindByID(ctx, input.CustomerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("customer %s not found", input.CustomerID))
			}
			return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: load customer")
		}

		saleID := uuid.New()
		items := make([]models.SaleItem, 0, len(input.Lines))
		eventItems := make([]payloads.SaleLineItem, 0, len(input.Lines))
		total := decimal.Zero

		for position, line := range input.Lines {
			adjustment, err := s.ledger.DecrementActive(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}

			priceAtSale := adjustment.Product.PriceAmount
			lineTotal := priceAtSale.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(lineTotal)

			items = append(items, models.SaleItem{
				ID:          uuid.New(),
				SaleID:      saleID,
				ProductID:   line.ProductID,
				ProductName: adjustment.Product.Name,
				Quantity:    line.Quantity,
				PriceAtSale: priceAtSale,
				LineTotal:   lineTotal,
				Position:    position,
			})
			eventItems = append(eventItems, payloads.SaleLineItem{
				ProductID:     line.ProductID,
				ProductName:   adjustment.Product.Name,
				Quantity:      line.Quantity,
				PriceAtSale:   priceAtSale,
				LineTotal:     lineTotal,
				QuantityAfter: adjustment.QuantityAfter,
			})
		}

		now := s.clock.Now()
		settled := input.AmountPaid.GreaterThanOrEqual(total)
		row := &models.Sale{
			ID:          saleID,
			CustomerID:  input.CustomerID,
			SellerID:    input.SellerID,
			TotalAmount: total,
			AmountPaid:  input.AmountPaid,
			Settled:     settled,
		}
		if settled {
			row.SettledAt = &now
		}

		if _, err := repo.CreateSale(ctx, row); err != nil {
			return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: insert sale")
		}
		if err := repo.CreateSaleItems(ctx, items); err != nil {
			return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: insert sale items")
		}
		if err := directory.TouchLastTransaction(ctx, input.CustomerID, now); err != nil {
			return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: touch customer")
		}

		actor := &outbox.ActorRef{SellerID: input.SellerID}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleRecorded,
			AggregateType: enums.AggregateSale,
			AggregateID:   saleID,
			Actor:         actor,
			Version:       1,
			Data: payloads.SaleRecordedEvent{
				SaleID:      saleID,
				CustomerID:  input.CustomerID,
				SellerID:    input.SellerID,
				TotalAmount: total,
				AmountPaid:  input.AmountPaid,
				Settled:     settled,
				Items:       eventItems,
			},
		}); err != nil {
			return err
		}
		if settled {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSaleSettled,
				AggregateType: enums.AggregateSale,
				AggregateID:   saleID,
				Actor:         actor,
				Version:       1,
				Data: payloads.SaleSettledEvent{
					SaleID:      saleID,
					CustomerID:  input.CustomerID,
					TotalAmount: total,
					AmountPaid:  input.AmountPaid,
					SettledAt:   now,
				},
			}); err != nil {
				return err
			}
		}

		row.Items = items
		sale = row
		return nil
	})
	if err != nil {
		if typed := apperrors.As(err); typed != nil {
			if typed.Code() == apperrors.CodeInsufficientInventory {
				s.metrics.IncInventoryRejection(opRecordSale)
			}
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "record sale")
	}

	s.metrics.IncSaleRecorded()
	s.metrics.ObserveDuration(opRecordSale, time.Since(start))
	return NewSaleDTO(sale), nil
}

func (s *service) Settle(ctx context.Context, input SettleSaleInput) (*SaleDTO, error) {
	if input.SaleID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "sale id required")
	}
	if input.SellerID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "seller identity missing")
	}
	if input.AmountPaid.IsNegative() {
		return nil, apperrors.New(apperrors.CodeInvalidQuantity, "amount paid cannot be negative")
	}

	start := time.Now()
	var sale *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		row, err := repo.FindByID(ctx, input.SaleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("sale %s not found", input.SaleID))
			}
			return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: load sale")
		}

		wasSettled := row.Settled
		settled := input.AmountPaid.GreaterThanOrEqual(row.TotalAmount)
		now := s.clock.Now()

		updates := map[string]any{
			"amount_paid": input.AmountPaid,
			"settled":     settled,
		}
		switch {
		case settled && !wasSettled:
			updates["settled_at"] = now
		case !settled:
			updates["settled_at"] = nil
		}

		if err := repo.UpdateSettlement(ctx, row.ID, updates); err != nil {
			return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: update settlement")
		}

		row.AmountPaid = input.AmountPaid
		row.Settled = settled
		switch {
		case settled && !wasSettled:
			row.SettledAt = &now
		case !settled:
			row.SettledAt = nil
		}

		if settled && !wasSettled {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSaleSettled,
				AggregateType: enums.AggregateSale,
				AggregateID:   row.ID,
				Actor:         &outbox.ActorRef{SellerID: input.SellerID},
				Version:       1,
				Data: payloads.SaleSettledEvent{
					SaleID:      row.ID,
					CustomerID:  row.CustomerID,
					TotalAmount: row.TotalAmount,
					AmountPaid:  row.AmountPaid,
					SettledAt:   now,
				},
			}); err != nil {
				return err
			}
		}

		sale = row
		return nil
	})
	if err != nil {
		if apperrors.As(err) != nil {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "settle sale")
	}

	s.metrics.ObserveDuration(opSettleSale, time.Since(start))
	return NewSaleDTO(sale), nil
}

func (s *service) Get(ctx context.Context, saleID uuid.UUID) (*SaleDTO, error) {
	sale, err := s.repo.FindByID(ctx, saleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("sale %s not found", saleID))
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: load sale")
	}
	return NewSaleDTO(sale), nil
}

func (s *service) List(ctx context.Context, input ListSalesInput) (*SaleListResult, error) {
	result, err := s.repo.List(ctx, ListQuery{
		Pagination: input.Pagination,
		Filters: ListFilters{
			Settled:    input.Settled,
			CustomerID: input.CustomerID,
		},
	})
	if err != nil {
		if apperrors.As(err) != nil {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: list sales")
	}

	dtos := make([]SaleDTO, 0, len(result.Sales))
	for i := range result.Sales {
		dtos = append(dtos, *NewSaleDTO(&result.Sales[i]))
	}
	return &SaleListResult{Sales: dtos, NextCursor: result.NextCursor}, nil
}
