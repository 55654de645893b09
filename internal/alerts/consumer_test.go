package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestStockAlertConsumerWarnsOnLowStock(t *testing.T) {
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer, logs := mustAlertConsumer(t, manager, 5)

	lowID := uuid.New()
	payload := payloads.SaleRecordedEvent{
		SaleID:     uuid.New(),
		CustomerID: uuid.New(),
		SellerID:   uuid.New(),
		Items: []payloads.SaleLineItem{
			{
				ProductID:     lowID,
				ProductName:   "Sourdough Loaf",
				Quantity:      4,
				PriceAtSale:   decimal.RequireFromString("5.00"),
				LineTotal:     decimal.RequireFromString("20.00"),
				QuantityAfter: 3,
			},
			{
				ProductID:     uuid.New(),
				ProductName:   "Rye Loaf",
				Quantity:      1,
				PriceAtSale:   decimal.RequireFromString("4.50"),
				LineTotal:     decimal.RequireFromString("4.50"),
				QuantityAfter: 12,
			},
		},
	}
	envelope := buildStockEnvelope(t, uuid.New(), payload)

	if err := consumer.Process(context.Background(), enums.EventSaleRecorded, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	alerts := alertLines(t, logs)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 low stock alert, got %d", len(alerts))
	}
	if got := alerts[0]["product_id"]; got != lowID.String() {
		t.Fatalf("alert product id = %v, want %s", got, lowID)
	}
	if got := alerts[0]["product_name"]; got != "Sourdough Loaf" {
		t.Fatalf("alert product name = %v", got)
	}
	if got := alerts[0]["quantity_on_hand"]; got != float64(3) {
		t.Fatalf("alert quantity = %v, want 3", got)
	}
	if got := alerts[0]["threshold"]; got != float64(5) {
		t.Fatalf("alert threshold = %v, want 5", got)
	}
}

func TestStockAlertConsumerWarnsAtExactThreshold(t *testing.T) {
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer, logs := mustAlertConsumer(t, manager, 5)

	payload := payloads.DropRecordedEvent{
		DropID:         uuid.New(),
		ProductID:      uuid.New(),
		ProductName:    "Almond Croissant",
		SellerID:       uuid.New(),
		Quantity:       2,
		QuantityBefore: 7,
		QuantityAfter:  5,
		Reason:         enums.DropReasonExpired,
		TotalValueLost: decimal.RequireFromString("7.00"),
		DroppedAt:      time.Now().UTC(),
	}
	envelope := buildStockEnvelope(t, uuid.New(), payload)

	if err := consumer.Process(context.Background(), enums.EventDropRecorded, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if alerts := alertLines(t, logs); len(alerts) != 1 {
		t.Fatalf("count at threshold should alert, got %d alerts", len(alerts))
	}
}

func TestStockAlertConsumerIgnoresHealthyStock(t *testing.T) {
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer, logs := mustAlertConsumer(t, manager, 5)

	payload := payloads.DropReversedEvent{
		DropID:         uuid.New(),
		ProductID:      uuid.New(),
		ProductName:    "Baguette",
		ReversedByID:   uuid.New(),
		Quantity:       3,
		QuantityAfter:  9,
		RestoredAmount: decimal.RequireFromString("9.00"),
		ReversedAt:     time.Now().UTC(),
	}
	envelope := buildStockEnvelope(t, uuid.New(), payload)

	if err := consumer.Process(context.Background(), enums.EventDropReversed, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if alerts := alertLines(t, logs); len(alerts) != 0 {
		t.Fatalf("expected no alerts for healthy stock, got %d", len(alerts))
	}
}

func TestStockAlertConsumerChecksReversalRestores(t *testing.T) {
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer, logs := mustAlertConsumer(t, manager, 5)

	payload := payloads.DropReversedEvent{
		DropID:         uuid.New(),
		ProductID:      uuid.New(),
		ProductName:    "Eclair",
		ReversedByID:   uuid.New(),
		Quantity:       2,
		QuantityAfter:  2,
		RestoredAmount: decimal.RequireFromString("6.00"),
		ReversedAt:     time.Now().UTC(),
	}
	envelope := buildStockEnvelope(t, uuid.New(), payload)

	if err := consumer.Process(context.Background(), enums.EventDropReversed, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if alerts := alertLines(t, logs); len(alerts) != 1 {
		t.Fatalf("restored-but-still-low count should alert, got %d alerts", len(alerts))
	}
}

func TestStockAlertConsumerSkipsUnhandledEvent(t *testing.T) {
	checked := false
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			checked = true
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer, logs := mustAlertConsumer(t, manager, 5)

	envelope := buildStockEnvelope(t, uuid.New(), map[string]any{"sale_id": uuid.NewString()})
	if err := consumer.Process(context.Background(), enums.EventSaleSettled, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if checked {
		t.Fatal("idempotency manager should not be touched for unhandled events")
	}
	if alerts := alertLines(t, logs); len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %d", len(alerts))
	}
}

func TestStockAlertConsumerIsIdempotent(t *testing.T) {
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return true, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer, logs := mustAlertConsumer(t, manager, 5)

	payload := payloads.DropRecordedEvent{
		DropID:        uuid.New(),
		ProductID:     uuid.New(),
		ProductName:   "Scone",
		QuantityAfter: 1,
	}
	envelope := buildStockEnvelope(t, uuid.New(), payload)

	if err := consumer.Process(context.Background(), enums.EventDropRecorded, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if alerts := alertLines(t, logs); len(alerts) != 0 {
		t.Fatalf("expected no alerts when already processed, got %d", len(alerts))
	}
}

func TestStockAlertConsumerDeletesOnDecodeFailure(t *testing.T) {
	deleted := false
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	consumer, _ := mustAlertConsumer(t, manager, 5)

	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       []byte("{invalid json"),
	}
	if err := consumer.Process(context.Background(), enums.EventSaleRecorded, envelope); err == nil {
		t.Fatal("expected error for bad payload")
	}
	if !deleted {
		t.Fatal("expected idempotency key deletion on payload error")
	}
}

func TestStockAlertConsumerRejectsUnknownVersion(t *testing.T) {
	deleted := false
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	consumer, _ := mustAlertConsumer(t, manager, 5)

	envelope := buildStockEnvelope(t, uuid.New(), payloads.DropRecordedEvent{QuantityAfter: 1})
	envelope.Version = 9

	if err := consumer.Process(context.Background(), enums.EventDropRecorded, envelope); err == nil {
		t.Fatal("expected error for unregistered payload version")
	}
	if !deleted {
		t.Fatal("expected idempotency key deletion on version error")
	}
}

type fakeIdempotency struct {
	check    func(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	deleteFn func(ctx context.Context, consumer string, eventID uuid.UUID) error
}

func (f fakeIdempotency) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	return f.check(ctx, consumer, eventID)
}

func (f fakeIdempotency) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	return f.deleteFn(ctx, consumer, eventID)
}

func mustAlertConsumer(t *testing.T, manager fakeIdempotency, threshold int) (*Consumer, *bytes.Buffer) {
	t.Helper()
	logs := &bytes.Buffer{}
	consumer, err := NewConsumer(manager, threshold, logger.New(logger.Options{
		ServiceName: "alerts-test",
		Level:       logger.ParseLevel("debug"),
		Output:      logs,
	}))
	if err != nil {
		t.Fatalf("failed to build consumer: %v", err)
	}
	return consumer, logs
}

func buildStockEnvelope(t *testing.T, eventID uuid.UUID, payload any) outbox.PayloadEnvelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now(),
		Data:       data,
	}
}

func alertLines(t *testing.T, logs *bytes.Buffer) []map[string]any {
	t.Helper()
	var alerts []map[string]any
	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("unmarshal log line %q: %v", line, err)
		}
		if entry["message"] == "low stock alert" {
			alerts = append(alerts, entry)
		}
	}
	return alerts
}
