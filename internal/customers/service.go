package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/pkg/db"
	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	apperrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/pagination"
)

// Service exposes the customer directory. Customers are append-and-read;
// last_transaction_at is maintained by the sale path, never directly here.
type Service interface {
	Create(ctx context.Context, input CreateCustomerInput) (*CustomerDTO, error)
	Get(ctx context.Context, customerID uuid.UUID) (*CustomerDTO, error)
	List(ctx context.Context, input ListCustomersInput) (*CustomerListResult, error)
}

// CreateCustomerInput holds the validated payload to register a customer.
type CreateCustomerInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
}

// ListCustomersInput carries the search filter and pagination.
type ListCustomersInput struct {
	Pagination pagination.Params
	Search     string
}

// CustomerListResult is one page of directory entries.
type CustomerListResult struct {
	Customers  []CustomerDTO `json:"customers"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type service struct {
	repo *Repository
}

// NewService constructs the customer directory service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateCustomerInput) (*CustomerDTO, error) {
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if firstName == "" || lastName == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "first and last name are required")
	}
	if email == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "email is required")
	}

	customer := &models.Customer{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     input.Phone,
	}
	row, err := s.repo.Create(ctx, customer)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, apperrors.New(apperrors.CodeConflict, "email already registered")
		}
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: insert customer")
	}

	return NewCustomerDTO(row), nil
}

func (s *service) Get(ctx context.Context, customerID uuid.UUID) (*CustomerDTO, error) {
	customer, err := s.repo.FindByID(ctx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("customer %s not found", customerID))
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: load customer")
	}
	return NewCustomerDTO(customer), nil
}

func (s *service) List(ctx context.Context, input ListCustomersInput) (*CustomerListResult, error) {
	result, err := s.repo.List(ctx, ListQuery{
		Pagination: input.Pagination,
		Search:     input.Search,
	})
	if err != nil {
		if apperrors.As(err) != nil {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: list customers")
	}

	dtos := make([]CustomerDTO, 0, len(result.Customers))
	for i := range result.Customers {
		dtos = append(dtos, *NewCustomerDTO(&result.Customers[i]))
	}
	return &CustomerListResult{Customers: dtos, NextCursor: result.NextCursor}, nil
}
