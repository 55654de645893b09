package sellers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/pkg/config"
	"github.com/bitetrack/bitetrack-backend/pkg/db"
	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	apperrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox/payloads"
	"github.com/bitetrack/bitetrack-backend/pkg/security"
)

const minPasswordLength = 8

// Service exposes seller account provisioning and profile reads. Login itself
// lives in internal/auth; this service owns the accounts it authenticates.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateSellerInput) (*SellerDTO, error)
	Profile(ctx context.Context, sellerID uuid.UUID) (*SellerDTO, error)
}

// CreateSellerInput holds the validated payload to provision a seller account.
// An empty Role defaults to the base seller tier.
type CreateSellerInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      enums.SellerRole
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo        *Repository
	db          txRunner
	outbox      outboxEmitter
	passwordCfg config.PasswordConfig
}

// NewService constructs the seller account service.
func NewService(repo *Repository, db txRunner, outboxSvc outboxEmitter, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("seller repository required")
	}
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{repo: repo, db: db, outbox: outboxSvc, passwordCfg: passwordCfg}, nil
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateSellerInput) (*SellerDTO, error) {
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	role := input.Role
	if role == "" {
		role = enums.SellerRoleSeller
	}

	if firstName == "" || lastName == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "first and last name are required")
	}
	if email == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "email is required")
	}
	if !role.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown seller role")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "hash password")
	}

	var created *models.Seller
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		seller := &models.Seller{
			Email:        email,
			PasswordHash: hash,
			FirstName:    firstName,
			LastName:     lastName,
			Role:         role,
			IsActive:     true,
		}
		row, err := txRepo.Create(ctx, seller)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return apperrors.New(apperrors.CodeConflict, "email already registered")
			}
			return apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: insert seller")
		}
		created = row

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellerCreated,
			AggregateType: enums.AggregateSeller,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{SellerID: actorID},
			Version:       1,
			Data: payloads.SellerCreatedEvent{
				SellerID: row.ID,
				Email:    row.Email,
				Role:     row.Role,
			},
		})
	}); err != nil {
		if apperrors.As(err) != nil {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "create seller")
	}

	return NewSellerDTO(created), nil
}

func (s *service) Profile(ctx context.Context, sellerID uuid.UUID) (*SellerDTO, error) {
	seller, err := s.repo.FindByID(ctx, sellerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "seller not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTransientStorage, err, "db: load seller")
	}
	return NewSellerDTO(seller), nil
}
