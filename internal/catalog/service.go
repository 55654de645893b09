package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	apperrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox/payloads"
	"github.com/bitetrack/bitetrack-backend/pkg/pagination"
)

// Service exposes product catalog management. Price and metadata edits land
// here; on-hand counts otherwise move only through the sale, drop, and
// reversal paths.
type Service interface {
	Create(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, sellerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
}

// CreateProductInput holds the validated payload to catalog a product.
// Products are born active; retirement happens through Update.
type CreateProductInput struct {
	Name            string
	Category        enums.ProductCategory
	Description     *string
	PriceAmount     decimal.Decimal
	InitialQuantity int
	DietaryFlags    []string
}

// UpdateProductInput holds optional mutation values. QuantityOnHand is an
// absolute restock/correction set; historical sale and drop snapshots are
// never touched by catalog edits.
type UpdateProductInput struct {
	Name           *string
	Category       *enums.ProductCategory
	Description    *string
	PriceAmount    *decimal.Decimal
	QuantityOnHand *int
	DietaryFlags   *[]string
	IsActive       *bool
}

// ListProductsInput carries listing filters and pagination.
type ListProductsInput struct {
	Pagination pagination.Params
	Category   *enums.ProductCategory
	IsActive   *bool
	Query      string
}

// ProductListResult is one page of catalog entries.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   *Repository
	db     txRunner
	outbox outboxEmitter
}

// NewService constructs the catalog service.
func NewService(repo *Repository, db txRunner, outboxSvc outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{repo: repo, db: db, outbox: outboxSvc}, nil
}

func (s *service) Create(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "product name is required")
	}
	if !input.Category.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown product category")
	}
	if input.PriceAmount.IsNegative() {
		return nil, apperrors.New(apperrors.CodeValidation, "price cannot be negative")
	}
	if input.InitialQuantity < 0 {
		return nil, apperrors.New(apperrors.CodeInvalidQuantity, "initial quantity cannot be negative")
	}

	var created *models.Product
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product := &models.Product{
			Name:           name,
			Category:       input.Category,
			Description:    input.Description,
			PriceAmount:    input.PriceAmount,
			QuantityOnHand: input.InitialQuantity,
			DietaryFlags:   input.DietaryFlags,
			IsActive:       true,
		}
		row, err := txRepo.Create(ctx, product)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: insert product")
		}
		created = row

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductCreated,
			AggregateType: enums.AggregateProduct,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{SellerID: sellerID},
			Version:       1,
			Data: payloads.ProductCreatedEvent{
				ProductID:      row.ID,
				Name:           row.Name,
				Category:       row.Category,
				PriceAmount:    row.PriceAmount,
				QuantityOnHand: row.QuantityOnHand,
			},
		})
	}); err != nil {
		if apperrors.As(err) != nil {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "create product")
	}

	return NewProductDTO(created), nil
}

func (s *service) Update(ctx context.Context, sellerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "product name cannot be empty")
	}
	if input.Category != nil && !input.Category.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown product category")
	}
	if input.PriceAmount != nil && input.PriceAmount.IsNegative() {
		return nil, apperrors.New(apperrors.CodeValidation, "price cannot be negative")
	}
	if input.QuantityOnHand != nil && *input.QuantityOnHand < 0 {
		return nil, apperrors.New(apperrors.CodeInvalidQuantity, "on-hand quantity cannot be negative")
	}

	var updated *models.Product
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.FindByID(ctx, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "product not found")
		}
		if err != nil {
			return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: load product")
		}

		if input.Name != nil {
			product.Name = strings.TrimSpace(*input.Name)
		}
		if input.Category != nil {
			product.Category = *input.Category
		}
		if input.Description != nil {
			product.Description = input.Description
		}
		if input.PriceAmount != nil {
			product.PriceAmount = *input.PriceAmount
		}
		if input.QuantityOnHand != nil {
			product.QuantityOnHand = *input.QuantityOnHand
		}
		if input.DietaryFlags != nil {
			product.DietaryFlags = *input.DietaryFlags
		}
		if input.IsActive != nil {
			product.IsActive = *input.IsActive
		}

		if err := txRepo.Save(ctx, product); err != nil {
			return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: update product")
		}
		updated = product

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductUpdated,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Actor:         &outbox.ActorRef{SellerID: sellerID},
			Version:       1,
			Data: payloads.ProductUpdatedEvent{
				ProductID:      product.ID,
				Name:           product.Name,
				Category:       product.Category,
				PriceAmount:    product.PriceAmount,
				QuantityOnHand: product.QuantityOnHand,
				IsActive:       product.IsActive,
			},
		})
	}); err != nil {
		if apperrors.As(err) != nil {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "update product")
	}

	return NewProductDTO(updated), nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: load product")
	}
	return NewProductDTO(product), nil
}

func (s *service) List(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if input.Category != nil && !input.Category.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown product category")
	}

	result, err := s.repo.List(ctx, ListQuery{
		Pagination: input.Pagination,
		Filters: ListFilters{
			Category: input.Category,
			IsActive: input.IsActive,
			Query:    input.Query,
		},
	})
	if err != nil {
		if apperrors.As(err) != nil {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: list products")
	}

	dtos := make([]ProductDTO, 0, len(result.Products))
	for i := range result.Products {
		dtos = append(dtos, *NewProductDTO(&result.Products[i]))
	}
	return &ProductListResult{Products: dtos, NextCursor: result.NextCursor}, nil
}
