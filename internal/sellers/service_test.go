package sellers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/pkg/config"
	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	apperrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox"
	"github.com/bitetrack/bitetrack-backend/pkg/security"
)

func setupSellersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:sellers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
		CREATE TABLE sellers (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'seller',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_login_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`).Error)

	return db
}

// sqliteTxRunner mirrors db.Client.WithTx for service-level tests.
type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

type capturingOutbox struct {
	events  []outbox.DomainEvent
	failErr error
}

func (c *capturingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if c.failErr != nil {
		return c.failErr
	}
	c.events = append(c.events, event)
	return nil
}

func newSellersTestService(t *testing.T, db *gorm.DB, sink *capturingOutbox) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), sqliteTxRunner{db: db}, sink, config.PasswordConfig{})
	require.NoError(t, err)
	return svc
}

func TestServiceCreate_HashesAndEmits(t *testing.T) {
	db := setupSellersTestDB(t)
	sink := &capturingOutbox{}
	svc := newSellersTestService(t, db, sink)
	actorID := uuid.New()

	dto, err := svc.Create(context.Background(), actorID, CreateSellerInput{
		FirstName: " Marta ",
		LastName:  "Reyes",
		Email:     " Marta@BiteTrack.Test ",
		Password:  "correct horse battery",
	})
	require.NoError(t, err)

	assert.Equal(t, "Marta", dto.FirstName)
	assert.Equal(t, "marta@bitetrack.test", dto.Email)
	assert.Equal(t, enums.SellerRoleSeller, dto.Role)
	assert.True(t, dto.IsActive)

	var row models.Seller
	require.NoError(t, db.First(&row, "id = ?", dto.ID).Error)
	ok, err := security.VerifyPassword("correct horse battery", row.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok, "stored hash must verify against the original password")

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, enums.EventSellerCreated, event.EventType)
	assert.Equal(t, enums.AggregateSeller, event.AggregateType)
	assert.Equal(t, dto.ID, event.AggregateID)
	require.NotNil(t, event.Actor)
	assert.Equal(t, actorID, event.Actor.SellerID)
}

func TestServiceCreate_AdminRole(t *testing.T) {
	db := setupSellersTestDB(t)
	svc := newSellersTestService(t, db, &capturingOutbox{})

	dto, err := svc.Create(context.Background(), uuid.New(), CreateSellerInput{
		FirstName: "Root",
		LastName:  "Admin",
		Email:     "admin@bitetrack.test",
		Password:  "super secret pw",
		Role:      enums.SellerRoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.SellerRoleAdmin, dto.Role)
}

func TestServiceCreate_RejectsInvalidInput(t *testing.T) {
	svc := newSellersTestService(t, setupSellersTestDB(t), &capturingOutbox{})

	cases := []struct {
		name  string
		input CreateSellerInput
	}{
		{name: "missingNames", input: CreateSellerInput{Email: "a@b.test", Password: "long enough pw"}},
		{name: "missingEmail", input: CreateSellerInput{FirstName: "A", LastName: "B", Password: "long enough pw"}},
		{name: "unknownRole", input: CreateSellerInput{FirstName: "A", LastName: "B", Email: "a@b.test", Password: "long enough pw", Role: "superuser"}},
		{name: "shortPassword", input: CreateSellerInput{FirstName: "A", LastName: "B", Email: "a@b.test", Password: "short"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), uuid.New(), tc.input)
			typed := apperrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, apperrors.CodeValidation, typed.Code())
		})
	}
}

func TestServiceCreate_DuplicateEmailConflicts(t *testing.T) {
	db := setupSellersTestDB(t)
	svc := newSellersTestService(t, db, &capturingOutbox{})

	_, err := svc.Create(context.Background(), uuid.New(), CreateSellerInput{
		FirstName: "Marta", LastName: "Reyes", Email: "marta@bitetrack.test", Password: "long enough pw",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), uuid.New(), CreateSellerInput{
		FirstName: "Marta", LastName: "Imposter", Email: "MARTA@bitetrack.test", Password: "another long pw",
	})
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeConflict, typed.Code())
}

func TestServiceCreate_RollsBackWhenEmitFails(t *testing.T) {
	db := setupSellersTestDB(t)
	sink := &capturingOutbox{failErr: fmt.Errorf("outbox insert failed")}
	svc := newSellersTestService(t, db, sink)

	_, err := svc.Create(context.Background(), uuid.New(), CreateSellerInput{
		FirstName: "Marta", LastName: "Reyes", Email: "marta@bitetrack.test", Password: "long enough pw",
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Seller{}).Count(&count).Error)
	assert.Zero(t, count, "failed event append must roll the seller insert back")
}

func TestServiceProfile_UnknownSeller(t *testing.T) {
	svc := newSellersTestService(t, setupSellersTestDB(t), &capturingOutbox{})

	_, err := svc.Profile(context.Background(), uuid.New())
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeNotFound, typed.Code())
}

func TestRepositoryFindByEmailAndLastLogin(t *testing.T) {
	db := setupSellersTestDB(t)
	repo := NewRepository(db)

	seller := models.Seller{
		ID:           uuid.New(),
		Email:        "marta@bitetrack.test",
		PasswordHash: "$argon2id$stub",
		FirstName:    "Marta",
		LastName:     "Reyes",
		Role:         enums.SellerRoleSeller,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&seller).Error)

	loaded, err := repo.FindByEmail(context.Background(), "marta@bitetrack.test")
	require.NoError(t, err)
	assert.Equal(t, seller.ID, loaded.ID)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(context.Background(), seller.ID, at))

	reloaded, err := repo.FindByID(context.Background(), seller.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.True(t, reloaded.LastLoginAt.Equal(at))
}
