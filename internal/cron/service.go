// Package cron runs the background sweeps: expiring drop undo windows and
// pruning published outbox rows. One scheduler instance runs the sweeps at a
// time; a distributed lock lets extra replicas idle safely.
package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/metrics"
)

const defaultInterval = 10 * time.Minute

// ServiceParams configure the sweep scheduler.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.SweepMetrics
	Interval time.Duration
}

func (p ServiceParams) validate() error {
	switch {
	case p.Logger == nil:
		return errors.New("logger required")
	case p.Lock == nil:
		return errors.New("lock required")
	}
	return nil
}

// Service cycles through the registered sweeps on a fixed cadence.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.SweepMetrics
	interval time.Duration
}

// NewService validates params and builds the scheduler. A nil registry gets
// an empty one; a non-positive interval falls back to the default cadence.
func NewService(params ServiceParams) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	svc := &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
	}
	if svc.registry == nil {
		svc.registry = NewRegistry()
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	return svc, nil
}

// Run repeats sweep cycles on the interval until the context is canceled.
// Undo windows must lapse close to their deadline, so the first cycle runs
// immediately instead of waiting out a full interval.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "sweep cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "sweep scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle takes the scheduler lock and runs every sweep in registration
// order. A sweep failure is logged and counted but never stops the cycle.
func (s *Service) runCycle(ctx context.Context) error {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring sweep lock: %w", err)
	}
	if !held {
		s.logg.Info(ctx, "another scheduler holds the sweep lock, skipping cycle")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "releasing sweep lock", err)
		}
	}()

	s.logg.Info(ctx, "sweep cycle starting")
	for _, sweep := range s.registry.Jobs() {
		s.runSweep(ctx, sweep)
	}
	s.logg.Info(ctx, "sweep cycle complete")
	return nil
}

func (s *Service) runSweep(ctx context.Context, sweep Job) {
	sweepCtx := s.logg.WithField(ctx, "sweep", sweep.Name())
	s.logg.Info(sweepCtx, "sweep started")

	began := time.Now()
	err := sweep.Run(sweepCtx)
	elapsed := time.Since(began)
	s.metrics.ObserveDuration(sweep.Name(), elapsed)

	sweepCtx = s.logg.WithField(sweepCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(sweepCtx, "sweep failed", err)
		s.metrics.IncFailure(sweep.Name())
		return
	}
	s.logg.Info(sweepCtx, "sweep completed")
	s.metrics.IncSuccess(sweep.Name())
}
