package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/bitetrack/bitetrack-backend/pkg/config"
	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/outbox/registry"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultBatch        = 50
	defaultPollInterval = 500 * time.Millisecond
	defaultAttemptCap   = 10
	sendTimeout         = 15 * time.Second
	maxBackoff          = 10 * time.Second
	jitterSpan          = 250 * time.Millisecond
)

type storage interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type broker interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRows interface {
	FetchUnpublishedForPublish(tx *gorm.DB, batch, attemptCap int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, attemptCap int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type sender interface {
	Publish(context.Context, *gcppubsub.Message) receipt
}

type receipt interface {
	Get(context.Context) (string, error)
}

type senderFactory func(topic string) sender

// PublisherParams wire the drain loop to its collaborators. SenderFactory is
// overridable for tests; when nil the GCP-backed factory is used.
type PublisherParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            storage
	PubSub        broker
	Repository    outboxRows
	Registry      resolver
	DLQRepository deadLetterStore
	SenderFactory senderFactory
}

func (p PublisherParams) validate() error {
	switch {
	case p.Config == nil:
		return errors.New("config required")
	case p.Logger == nil:
		return errors.New("logger required")
	case p.DB == nil:
		return errors.New("db client required")
	case p.PubSub == nil:
		return errors.New("pubsub client required")
	case p.Repository == nil:
		return errors.New("outbox repository required")
	case p.Registry == nil:
		return errors.New("event registry required")
	case p.DLQRepository == nil:
		return errors.New("dlq repository required")
	}
	return nil
}

// Publisher drains the outbox table and relays each row to Pub/Sub. Rows
// that can never publish are parked in the dead letter table inside the
// same transaction that claimed them.
type Publisher struct {
	logg       *logger.Logger
	db         storage
	broker     broker
	rows       outboxRows
	resolve    resolver
	dlq        deadLetterStore
	senderFor  senderFactory
	batch      int
	attemptCap int
	poll       time.Duration
	jitter     *rand.Rand
}

func NewPublisher(params PublisherParams) (*Publisher, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	senderFor := params.SenderFactory
	if senderFor == nil {
		senderFor = func(topic string) sender {
			return newGCPSender(params.PubSub.Publisher(topic))
		}
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatch
	}
	attemptCap := params.Config.Outbox.MaxAttempts
	if attemptCap <= 0 {
		attemptCap = defaultAttemptCap
	}
	poll := defaultPollInterval
	if ms := params.Config.Outbox.PollIntervalMS; ms > 0 {
		poll = time.Duration(ms) * time.Millisecond
	}

	return &Publisher{
		logg:       params.Logger,
		db:         params.DB,
		broker:     params.PubSub,
		rows:       params.Repository,
		resolve:    params.Registry,
		dlq:        params.DLQRepository,
		senderFor:  senderFor,
		batch:      batch,
		attemptCap: attemptCap,
		poll:       poll,
		jitter:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Run polls until the context is canceled. A failed cycle widens the delay
// up to maxBackoff; the next clean cycle snaps back to the configured
// interval.
func (p *Publisher) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := p.preflight(ctx); err != nil {
		return err
	}
	p.logg.Info(ctx, "outbox publisher ready")

	delay := p.poll
	for {
		select {
		case <-ctx.Done():
			p.logg.Info(ctx, "outbox publisher stopping")
			return ctx.Err()
		default:
		}

		worked, err := p.cycle(ctx)
		if err != nil {
			p.logg.Error(ctx, "drain cycle failed", err)
			delay = nextBackoff(delay, p.poll)
		} else {
			delay = p.poll
			if worked {
				// The queue may still hold rows; skip the idle wait.
				continue
			}
		}

		if err := p.idle(ctx, p.withJitter(delay)); err != nil {
			return err
		}
	}
}

func (p *Publisher) preflight(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := p.broker.Ping(ctx); err != nil {
		return fmt.Errorf("ping pubsub: %w", err)
	}
	return nil
}

// cycle claims one batch of undelivered rows and delivers each in turn.
// The claim, the delivery bookkeeping, and any dead letter inserts commit
// together, so a crash mid-batch re-delivers rather than loses events.
func (p *Publisher) cycle(ctx context.Context) (bool, error) {
	worked := false
	err := p.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := p.rows.FetchUnpublishedForPublish(tx, p.batch, p.attemptCap)
		if err != nil {
			return err
		}
		worked = len(rows) > 0
		for _, row := range rows {
			if err := p.deliver(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return worked, err
}

// deliver publishes a single row and records the outcome. Only bookkeeping
// failures are returned; publish failures are absorbed into the row's state
// so one bad event cannot wedge the batch.
func (p *Publisher) deliver(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	resolved, err := p.resolve.Resolve(row)
	if err != nil {
		return p.deadLetter(ctx, tx, row, "", enums.OutboxDLQReasonNonRetryable, err)
	}

	topic := resolved.Descriptor.Topic
	fields := rowFields(row, topic)
	fields["event_id"] = resolved.Envelope.EventID

	sendErr := p.send(ctx, row, resolved)
	if sendErr == nil {
		if err := p.rows.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark row %s published: %w", row.ID, err)
		}
		p.logg.Info(p.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	var permanent registry.NonRetryableError
	if errors.As(sendErr, &permanent) {
		return p.deadLetter(ctx, tx, row, topic, enums.OutboxDLQReasonNonRetryable, sendErr)
	}
	if row.AttemptCount+1 >= p.attemptCap {
		return p.deadLetter(ctx, tx, row, topic, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("attempt cap reached: %w", sendErr))
	}

	fields["attempts"] = row.AttemptCount + 1
	fields["error"] = sendErr.Error()
	p.logg.Warn(p.logg.WithFields(ctx, fields), "publish failed, row kept for retry")
	if err := p.rows.MarkFailedTx(tx, row.ID, sendErr); err != nil {
		return fmt.Errorf("mark row %s failed: %w", row.ID, err)
	}
	return nil
}

// deadLetter moves the row to the dead letter table and closes it out in
// the outbox, both inside the caller's transaction.
func (p *Publisher) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, topic string, reason enums.OutboxDLQErrorReason, cause error) error {
	fields := rowFields(row, topic)
	fields["reason"] = reason
	fields["error"] = cause.Error()
	p.logg.Warn(p.logg.WithFields(ctx, fields), "row parked in dead letter queue")

	message := cause.Error()
	if err := p.dlq.InsertTx(tx, models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &message,
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("park row %s in dlq: %w", row.ID, err)
	}
	if err := p.rows.MarkTerminalTx(tx, row.ID, cause, p.attemptCap); err != nil {
		return fmt.Errorf("mark row %s terminal: %w", row.ID, err)
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	snd := p.senderFor(topic)
	if snd == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no sender for topic %s", topic))
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	pending := snd.Publish(sendCtx, &gcppubsub.Message{
		Data:       row.Payload,
		Attributes: messageAttributes(row, resolved),
	})
	if pending == nil {
		return registry.NewNonRetryableError(fmt.Errorf("nil publish result for topic %s", topic))
	}
	_, err := pending.Get(sendCtx)
	return err
}

// messageAttributes mirror the envelope so consumers can filter without
// decoding the payload.
func messageAttributes(row models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]string {
	return map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
	}
}

func rowFields(row models.OutboxEvent, topic string) map[string]any {
	fields := map[string]any{
		"row_id":         row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempts":       row.AttemptCount,
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

func (p *Publisher) idle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (p *Publisher) withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(p.jitter.Int63n(int64(jitterSpan)))
}

func nextBackoff(current, base time.Duration) time.Duration {
	if current < base {
		current = base
	}
	if current >= maxBackoff/2 {
		return maxBackoff
	}
	return current * 2
}

func newGCPSender(pub *gcppubsub.Publisher) sender {
	if pub == nil {
		return nil
	}
	return gcpSender{pub: pub}
}

type gcpSender struct {
	pub *gcppubsub.Publisher
}

func (g gcpSender) Publish(ctx context.Context, msg *gcppubsub.Message) receipt {
	res := g.pub.Publish(ctx, msg)
	if res == nil {
		return nil
	}
	return gcpReceipt{res: res}
}

type gcpReceipt struct {
	res *gcppubsub.PublishResult
}

func (g gcpReceipt) Get(ctx context.Context) (string, error) {
	return g.res.Get(ctx)
}
