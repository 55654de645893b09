package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/pkg/logger"
)

type fakeOutboxPruner struct {
	cutoffs []time.Time
	ceiling int
	err     error
}

func (f *fakeOutboxPruner) PruneBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, attemptCeiling int) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	f.ceiling = attemptCeiling
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func buildPruneJob(t *testing.T, pruner *fakeOutboxPruner, params OutboxPruneJobParams) *outboxPruneJob {
	t.Helper()
	params.Logger = logger.New(logger.Options{ServiceName: "test"})
	params.DB = passthroughTxRunner{}
	params.Outbox = pruner

	built, err := NewOutboxPruneJob(params)
	if err != nil {
		t.Fatalf("NewOutboxPruneJob: %v", err)
	}
	job, ok := built.(*outboxPruneJob)
	if !ok {
		t.Fatalf("unexpected job type %T", built)
	}
	return job
}

func TestOutboxPruneUsesDefaultBounds(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	pruner := &fakeOutboxPruner{}
	job := buildPruneJob(t, pruner, OutboxPruneJobParams{})
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(pruner.cutoffs) != 1 {
		t.Fatalf("pruner called %d times, want 1", len(pruner.cutoffs))
	}
	wantCutoff := now.AddDate(0, 0, -outboxPruneAfterDays)
	if !pruner.cutoffs[0].Equal(wantCutoff) {
		t.Fatalf("cutoff = %s, want %s", pruner.cutoffs[0], wantCutoff)
	}
	if pruner.ceiling != outboxPruneAttemptCeiling {
		t.Fatalf("attempt ceiling = %d, want %d", pruner.ceiling, outboxPruneAttemptCeiling)
	}
}

func TestOutboxPruneHonorsConfiguredBounds(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	pruner := &fakeOutboxPruner{}
	job := buildPruneJob(t, pruner, OutboxPruneJobParams{KeepDays: 7, AttemptCeiling: 3})
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantCutoff := now.AddDate(0, 0, -7)
	if !pruner.cutoffs[0].Equal(wantCutoff) {
		t.Fatalf("cutoff = %s, want %s", pruner.cutoffs[0], wantCutoff)
	}
	if pruner.ceiling != 3 {
		t.Fatalf("attempt ceiling = %d, want 3", pruner.ceiling)
	}
}

func TestOutboxPrunePropagatesRepoError(t *testing.T) {
	pruner := &fakeOutboxPruner{err: errors.New("deadlock detected")}
	job := buildPruneJob(t, pruner, OutboxPruneJobParams{})

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, pruner.err) {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestNewOutboxPruneJobValidatesDeps(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})

	if _, err := NewOutboxPruneJob(OutboxPruneJobParams{DB: passthroughTxRunner{}, Outbox: &fakeOutboxPruner{}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewOutboxPruneJob(OutboxPruneJobParams{Logger: logg, Outbox: &fakeOutboxPruner{}}); err == nil {
		t.Fatal("expected error without tx runner")
	}
	if _, err := NewOutboxPruneJob(OutboxPruneJobParams{Logger: logg, DB: passthroughTxRunner{}}); err == nil {
		t.Fatal("expected error without outbox repository")
	}
}
