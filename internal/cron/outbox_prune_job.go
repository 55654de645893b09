package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/pkg/logger"
)

// Delivered outbox rows are kept for a month of audit trail before the prune
// sweep removes them. Undelivered rows are spared until they sit at or past
// the publisher's attempt ceiling, no matter how old they are.
const (
	outboxPruneAfterDays      = 30
	outboxPruneAttemptCeiling = 10
)

// outboxPruner is the slice of the outbox repository the sweep needs.
type outboxPruner interface {
	PruneBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, attemptCeiling int) (int64, error)
}

type outboxPruneJob struct {
	logg           *logger.Logger
	db             txRunner
	outbox         outboxPruner
	keepDays       int
	attemptCeiling int
	now            func() time.Time
}

// OutboxPruneJobParams configure the prune sweep. AttemptCeiling should carry
// the publisher's max-attempt setting; zero bounds fall back to the package
// defaults.
type OutboxPruneJobParams struct {
	Logger         *logger.Logger
	DB             txRunner
	Outbox         outboxPruner
	KeepDays       int
	AttemptCeiling int
}

func NewOutboxPruneJob(params OutboxPruneJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox repository required")
	}
	return &outboxPruneJob{
		logg:           params.Logger,
		db:             params.DB,
		outbox:         params.Outbox,
		keepDays:       positiveOr(params.KeepDays, outboxPruneAfterDays),
		attemptCeiling: positiveOr(params.AttemptCeiling, outboxPruneAttemptCeiling),
		now:            time.Now,
	}, nil
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func (j *outboxPruneJob) Name() string { return "outbox-prune" }

func (j *outboxPruneJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.keepDays)

	var pruned int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.outbox.PruneBefore(ctx, tx, cutoff, j.attemptCeiling)
		pruned = n
		return err
	})
	if err != nil {
		return fmt.Errorf("pruning outbox: %w", err)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"keep_days":       j.keepDays,
		"attempt_ceiling": j.attemptCeiling,
		"rows_deleted":    pruned,
	}), "pruned aged outbox rows")
	return nil
}
