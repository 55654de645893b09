package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/bitetrack/bitetrack-backend/pkg/logger"
)

type fakeLock struct {
	heldByOther bool
	acquireErr  error
	releases    int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	return !f.heldByOther, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	return nil
}

type recordingSweep struct {
	name string
	err  error
	log  *[]string
}

func (r *recordingSweep) Name() string { return r.name }

func (r *recordingSweep) Run(context.Context) error {
	*r.log = append(*r.log, r.name)
	return r.err
}

func newSweepService(t *testing.T, registry *Registry, lock Lock) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "sweep-test"}),
		Registry: registry,
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestRunCycleRunsEverySweepDespiteFailure(t *testing.T) {
	var ran []string
	registry := NewRegistry(
		&recordingSweep{name: "undo_expiry", err: errors.New("boom"), log: &ran},
		&recordingSweep{name: "outbox_retention", log: &ran},
	)
	lock := &fakeLock{}
	service := newSweepService(t, registry, lock)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}

	// A failing sweep must not stop the ones after it.
	if len(ran) != 2 || ran[0] != "undo_expiry" || ran[1] != "outbox_retention" {
		t.Fatalf("unexpected sweep order %v", ran)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	var ran []string
	registry := NewRegistry(&recordingSweep{name: "undo_expiry", log: &ran})
	lock := &fakeLock{heldByOther: true}
	service := newSweepService(t, registry, lock)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if len(ran) != 0 {
		t.Fatalf("no sweep should run without the lock, ran %v", ran)
	}
	if lock.releases != 0 {
		t.Fatal("must not release a lock it never acquired")
	}
}

func TestRunCyclePropagatesLockError(t *testing.T) {
	cause := errors.New("redis down")
	service := newSweepService(t, NewRegistry(), &fakeLock{acquireErr: cause})

	if err := service.runCycle(context.Background()); !errors.Is(err, cause) {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestNewServiceDefaults(t *testing.T) {
	service := newSweepService(t, nil, &fakeLock{})
	if service.registry == nil {
		t.Fatal("nil registry should default to an empty one")
	}
	if service.interval != defaultInterval {
		t.Fatalf("expected default interval, got %s", service.interval)
	}

	if _, err := NewService(ServiceParams{Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewService(ServiceParams{Logger: logger.New(logger.Options{})}); err == nil {
		t.Fatal("expected error without lock")
	}
}
