// Package registry is the schema authority for outbox events. The publisher
// resolves each row against it before publishing, so rows that cannot ever
// publish cleanly (unknown type, wrong aggregate, undecodable payload) are
// diverted to the dead letter queue instead of retrying forever.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bitetrack/bitetrack-backend/pkg/config"
	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox/payloads"
)

// EventDescriptor binds an event type to the aggregate it belongs to, the
// topic it publishes on, and the payload schema it decodes into.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a fully decoded outbox row, ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry maps every supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry builds the registry. All domain events currently share
// one topic; per-event topics only need a new argument to register.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, errors.New("domain topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	reg.register(cfg.DomainTopic, enums.EventSaleRecorded, enums.AggregateSale, func() any { return &payloads.SaleRecordedEvent{} })
	reg.register(cfg.DomainTopic, enums.EventSaleSettled, enums.AggregateSale, func() any { return &payloads.SaleSettledEvent{} })
	reg.register(cfg.DomainTopic, enums.EventDropRecorded, enums.AggregateInventoryDrop, func() any { return &payloads.DropRecordedEvent{} })
	reg.register(cfg.DomainTopic, enums.EventDropReversed, enums.AggregateInventoryDrop, func() any { return &payloads.DropReversedEvent{} })
	reg.register(cfg.DomainTopic, enums.EventDropUndoWindowExpired, enums.AggregateInventoryDrop, func() any { return &payloads.DropUndoWindowExpiredEvent{} })
	reg.register(cfg.DomainTopic, enums.EventProductCreated, enums.AggregateProduct, func() any { return &payloads.ProductCreatedEvent{} })
	reg.register(cfg.DomainTopic, enums.EventProductUpdated, enums.AggregateProduct, func() any { return &payloads.ProductUpdatedEvent{} })
	reg.register(cfg.DomainTopic, enums.EventSellerCreated, enums.AggregateSeller, func() any { return &payloads.SellerCreatedEvent{} })
	return reg, nil
}

func (r *EventRegistry) register(topic string, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, factory func() any) {
	r.entries[eventType] = EventDescriptor{
		EventType:      eventType,
		AggregateType:  aggregate,
		Topic:          topic,
		PayloadFactory: factory,
	}
}

// Resolve validates an outbox row against its descriptor and decodes the
// typed payload out of the envelope. Every failure here is permanent for
// the row, so all errors are non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, err := r.descriptorFor(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}

	envelope, err := openEnvelope(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("no payload schema for %s", event.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload for %s does not match schema: %w", event.EventType, err))
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

// descriptorFor checks that the row names a known event type and that the
// row's aggregate matches what the descriptor declares.
func (r *EventRegistry) descriptorFor(event models.OutboxEvent) (EventDescriptor, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return EventDescriptor{}, fmt.Errorf("no descriptor for event type %s", event.EventType)
	}
	if desc.AggregateType != event.AggregateType {
		return EventDescriptor{}, fmt.Errorf("event %s belongs to aggregate %s, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	}
	if event.AggregateID == uuid.Nil {
		return EventDescriptor{}, errors.New("aggregate id is nil")
	}
	return desc, nil
}

// openEnvelope decodes the versioned envelope and rejects rows whose data
// section is absent or JSON null.
func openEnvelope(event models.OutboxEvent) (outbox.PayloadEnvelope, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return outbox.PayloadEnvelope{}, fmt.Errorf("unmarshaling envelope: %w", err)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return outbox.PayloadEnvelope{}, fmt.Errorf("envelope for %s carries no payload", event.EventType)
	}
	return envelope, nil
}

// NonRetryableError marks a row the dispatcher must park rather than retry.
type NonRetryableError struct {
	Err error
}

// NewNonRetryableError wraps err as permanently failed.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}
