package enums

import "fmt"

// OutboxAggregateType names the kind of row an outbox event describes.
// Values mirror the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateSale          OutboxAggregateType = "sale"
	AggregateInventoryDrop OutboxAggregateType = "inventory_drop"
	AggregateProduct       OutboxAggregateType = "product"
	AggregateSeller        OutboxAggregateType = "seller"
)

var aggregateTypes = map[OutboxAggregateType]struct{}{
	AggregateSale:          {},
	AggregateInventoryDrop: {},
	AggregateProduct:       {},
	AggregateSeller:        {},
}

// IsValid reports whether a is a recognized aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	_, ok := aggregateTypes[a]
	return ok
}

// ParseOutboxAggregateType types raw input, rejecting unknown aggregates.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	aggregate := OutboxAggregateType(value)
	if !aggregate.IsValid() {
		return "", fmt.Errorf("invalid aggregate type %q", value)
	}
	return aggregate, nil
}

// OutboxEventType names what happened to the aggregate. Values mirror the
// event_type enum in Postgres.
type OutboxEventType string

const (
	EventSaleRecorded          OutboxEventType = "sale_recorded"
	EventSaleSettled           OutboxEventType = "sale_settled"
	EventDropRecorded          OutboxEventType = "drop_recorded"
	EventDropReversed          OutboxEventType = "drop_reversed"
	EventDropUndoWindowExpired OutboxEventType = "drop_undo_window_expired"
	EventProductCreated        OutboxEventType = "product_created"
	EventProductUpdated        OutboxEventType = "product_updated"
	EventSellerCreated         OutboxEventType = "seller_created"
)

var outboxEventTypes = map[OutboxEventType]struct{}{
	EventSaleRecorded:          {},
	EventSaleSettled:           {},
	EventDropRecorded:          {},
	EventDropReversed:          {},
	EventDropUndoWindowExpired: {},
	EventProductCreated:        {},
	EventProductUpdated:        {},
	EventSellerCreated:         {},
}

// IsValid reports whether e is a recognized event type.
func (e OutboxEventType) IsValid() bool {
	_, ok := outboxEventTypes[e]
	return ok
}

// ParseOutboxEventType types raw input, rejecting unknown events.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	event := OutboxEventType(value)
	if !event.IsValid() {
		return "", fmt.Errorf("invalid event type %q", value)
	}
	return event, nil
}
