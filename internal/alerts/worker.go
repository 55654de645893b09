package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox"
)

type envelopeProcessor interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Worker consumes domain events from Pub/Sub and feeds them to the alert
// consumer. Malformed messages are acked and dropped: redelivery cannot fix
// them.
type Worker struct {
	subscription *gcppubsub.Subscriber
	processor    envelopeProcessor
	logg         *logger.Logger
}

// NewWorker creates a stock alert worker bound to the domain subscription.
func NewWorker(subscription *gcppubsub.Subscriber, processor envelopeProcessor, logg *logger.Logger) (*Worker, error) {
	if subscription == nil {
		return nil, errors.New("domain subscription is required")
	}
	if processor == nil {
		return nil, errors.New("alert consumer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	return &Worker{
		subscription: subscription,
		processor:    processor,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run starts consuming domain messages until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return w.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if w.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (w *Worker) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{
		"message_id": msg.ID,
	}
	logCtx := w.logg.WithFields(ctx, fields)

	eventType, envelope, err := w.decodeMessage(msg)
	if err != nil {
		fields["error"] = err.Error()
		logCtx = w.logg.WithFields(ctx, fields)
		w.logg.Warn(logCtx, "invalid domain event message")
		return processResult{}
	}

	fields["event_id"] = envelope.EventID
	fields["event_type"] = eventType
	fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	logCtx = w.logg.WithFields(ctx, fields)

	if err := w.processor.Process(logCtx, eventType, *envelope); err != nil {
		w.logg.Error(logCtx, "stock alert processing failed", err)
		return processResult{nack: true}
	}

	return processResult{}
}

func (w *Worker) decodeMessage(msg *gcppubsub.Message) (enums.OutboxEventType, *outbox.PayloadEnvelope, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return "", nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if err != nil {
		return "", nil, fmt.Errorf("event_type: %w", err)
	}

	if strings.TrimSpace(stored.EventID) == "" {
		stored.EventID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	if stored.EventID == "" {
		return "", nil, errors.New("event_id missing")
	}

	if stored.OccurredAt.IsZero() {
		if created := strings.TrimSpace(msg.Attributes["created_at"]); created != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
				stored.OccurredAt = parsed
			}
		}
	}
	stored.OccurredAt = stored.OccurredAt.UTC()

	return eventType, &stored, nil
}
