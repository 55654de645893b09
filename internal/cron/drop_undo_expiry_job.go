package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/internal/drops"
	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox/payloads"
)

const dropExpiryBatchSize = 200

// DropUndoExpiryJobParams configure the undo-window sweep.
type DropUndoExpiryJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	LapsedReader lapsedDropReader
	Outbox       idempotentOutboxEmitter
	RepoFactory  dropRepoFactory
	BatchSize    int
}

type lapsedDropReader interface {
	FindLapsedUnnotified(ctx context.Context, cutoff time.Time, limit int) ([]models.InventoryDrop, error)
}

type transactionalDropRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryDrop, error)
	MarkExpiryNotified(ctx context.Context, dropID uuid.UUID, at time.Time) error
}

type dropRepoFactory func(tx *gorm.DB) transactionalDropRepo

func defaultDropRepo(tx *gorm.DB) transactionalDropRepo {
	return drops.NewRepository(tx)
}

type idempotentOutboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// NewDropUndoExpiryJob builds the sweep that flags drops whose undo window
// lapsed without a reversal. The sweep changes no inventory: the window is
// enforced at reversal time, this only emits the lapse event once per drop.
func NewDropUndoExpiryJob(params DropUndoExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.LapsedReader == nil {
		return nil, fmt.Errorf("lapsed drops reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultDropRepo
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = dropExpiryBatchSize
	}
	return &dropUndoExpiryJob{
		logg:         params.Logger,
		db:           params.DB,
		lapsedReader: params.LapsedReader,
		outbox:       params.Outbox,
		repoFactory:  repoFactory,
		batch:        batch,
		now:          time.Now,
	}, nil
}

type dropUndoExpiryJob struct {
	logg         *logger.Logger
	db           txRunner
	lapsedReader lapsedDropReader
	outbox       idempotentOutboxEmitter
	repoFactory  dropRepoFactory
	batch        int
	now          func() time.Time
}

func (j *dropUndoExpiryJob) Name() string { return "drop-undo-expiry" }

func (j *dropUndoExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	lapsed, err := j.lapsedReader.FindLapsedUnnotified(ctx, now, j.batch)
	if err != nil {
		return fmt.Errorf("query lapsed drops: %w", err)
	}
	var errs []error
	count := 0
	for _, drop := range lapsed {
		if err := j.flagExpired(ctx, drop, now); err != nil {
			errs = append(errs, fmt.Errorf("drop %s: %w", drop.ID, err))
			continue
		}
		count++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "undo window sweep complete")
	return multierr.Combine(errs...)
}

func (j *dropUndoExpiryJob) flagExpired(ctx context.Context, drop models.InventoryDrop, now time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		current, err := repo.FindByID(ctx, drop.ID)
		if err != nil {
			return err
		}
		// A reversal may have landed between the scan and this transaction.
		if current.Reversed || current.ExpiryNotifiedAt != nil || current.UndoDeadline.After(now) {
			return nil
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventDropUndoWindowExpired,
			AggregateType: enums.AggregateInventoryDrop,
			AggregateID:   current.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.DropUndoWindowExpiredEvent{
				DropID:       current.ID,
				ProductID:    current.ProductID,
				UndoDeadline: current.UndoDeadline,
				ExpiredAt:    now,
			},
		}
		if err := j.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return err
		}
		return repo.MarkExpiryNotified(ctx, current.ID, now)
	})
}
