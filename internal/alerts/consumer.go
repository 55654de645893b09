package alerts

import (
	"context"
	"fmt"

	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox/payloads"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox/registry"
	"github.com/google/uuid"
)

const alertConsumerName = "stock-alerts"

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// stockObservation is one product's on-hand count as reported by an event
// payload. Every stock-moving event carries the post-commit count, so the
// consumer never has to read the ledger.
type stockObservation struct {
	ProductID      uuid.UUID
	ProductName    string
	QuantityOnHand int
}

// Consumer watches stock-moving domain events and warns when a product's
// on-hand count lands at or below the configured threshold. Alerts are
// log-based and advisory: nothing here writes back to the ledger.
type Consumer struct {
	manager     idempotencyChecker
	threshold   int
	logg        *logger.Logger
	eventFilter map[enums.OutboxEventType]struct{}
	decoders    *registry.DecoderRegistry
}

// NewConsumer builds a low-stock alert consumer.
func NewConsumer(manager idempotencyChecker, threshold int, logg *logger.Logger) (*Consumer, error) {
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("low stock threshold must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventSaleRecorded, 1, registry.DecodeInto[payloads.SaleRecordedEvent]())
	decoders.Register(enums.EventDropRecorded, 1, registry.DecodeInto[payloads.DropRecordedEvent]())
	decoders.Register(enums.EventDropReversed, 1, registry.DecodeInto[payloads.DropReversedEvent]())

	return &Consumer{
		manager:   manager,
		threshold: threshold,
		logg:      logg,
		eventFilter: map[enums.OutboxEventType]struct{}{
			enums.EventSaleRecorded: {},
			enums.EventDropRecorded: {},
			enums.EventDropReversed: {},
		},
		decoders: decoders,
	}, nil
}

// Process inspects the envelope and emits a low-stock warning for every
// product the event left at or below the threshold.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if _, ok := c.eventFilter[eventType]; !ok {
		c.logg.Info(logCtx, "event not handled by stock alert consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, alertConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	version := envelope.Version
	if version == 0 {
		version = 1
	}
	decoded, err := c.decoders.Decode(eventType, version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode stock event payload", err)
		_ = c.manager.Delete(ctx, alertConsumerName, eventID)
		return err
	}

	for _, obs := range observations(decoded) {
		if obs.QuantityOnHand > c.threshold {
			continue
		}
		alertCtx := c.logg.WithFields(logCtx, map[string]any{
			"product_id":       obs.ProductID,
			"product_name":     obs.ProductName,
			"quantity_on_hand": obs.QuantityOnHand,
			"threshold":        c.threshold,
		})
		c.logg.Warn(alertCtx, "low stock alert")
	}

	return nil
}

// observations pulls per-product on-hand counts out of a decoded payload.
// A reversal raises the count, but the restored level can still sit below
// the threshold, so it is checked the same way.
func observations(decoded any) []stockObservation {
	switch evt := decoded.(type) {
	case payloads.SaleRecordedEvent:
		result := make([]stockObservation, 0, len(evt.Items))
		for _, item := range evt.Items {
			result = append(result, stockObservation{
				ProductID:      item.ProductID,
				ProductName:    item.ProductName,
				QuantityOnHand: item.QuantityAfter,
			})
		}
		return result
	case payloads.DropRecordedEvent:
		return []stockObservation{{
			ProductID:      evt.ProductID,
			ProductName:    evt.ProductName,
			QuantityOnHand: evt.QuantityAfter,
		}}
	case payloads.DropReversedEvent:
		return []stockObservation{{
			ProductID:      evt.ProductID,
			ProductName:    evt.ProductName,
			QuantityOnHand: evt.QuantityAfter,
		}}
	default:
		return nil
	}
}
