package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/careercoach/coach/internal/metrics"
	inats "github.com/careercoach/coach/internal/nats"
)

// Store persists subscription rows.
type Store interface {
	Upsert(ctx context.Context, s *Subscription) (bool, error)
}

// fetchRetryWait spaces Fetch attempts while the stream is unreachable.
const fetchRetryWait = time.Second

// Consumer applies billing subscription events to the subscriptions table.
type Consumer struct {
	store       Store
	consumerMgr *inats.ConsumerManager
	retryWait   time.Duration
}

// NewConsumer creates a new subscription sync Consumer.
func NewConsumer(store Store, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		store:       store,
		consumerMgr: consumerMgr,
		retryWait:   fetchRetryWait,
	}
}

// batchFetcher is the part of jetstream.Consumer the loop needs.
type batchFetcher interface {
	Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error)
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.Ensure(ctx, inats.SubscriptionSync)
	if err != nil {
		return err
	}

	slog.Info("subscription consumer started", "consumer", inats.SubscriptionSync.Name)
	return c.consume(ctx, consumer)
}

func (c *Consumer) consume(ctx context.Context, consumer batchFetcher) error {
	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			slog.Debug("subscription consumer: fetching events", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryWait):
			}
			continue
		}

		for msg := range msgs.Messages() {
			c.handleMessage(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg jetstream.Msg) {
	switch result := c.Apply(ctx, msg.Data()); {
	case errors.Is(result, errMalformed):
		slog.Error("subscription consumer: dropping malformed event", "error", result)
		metrics.SubscriptionEventsTotal.WithLabelValues("malformed").Inc()
		_ = msg.Term()
	case result != nil:
		slog.Error("subscription consumer: persisting subscription", "error", result)
		metrics.SubscriptionEventsTotal.WithLabelValues("error").Inc()
		var delivered uint64 = 1
		if md, err := msg.Metadata(); err == nil {
			delivered = md.NumDelivered
		}
		_ = msg.NakWithDelay(inats.SubscriptionSync.RedeliveryDelay(delivered))
	default:
		_ = msg.Ack()
	}
}

var errMalformed = errors.New("malformed subscription event")

// Apply decodes one event and upserts the resulting row. Decoding and
// validation failures wrap errMalformed and are not worth redelivering.
func (c *Consumer) Apply(ctx context.Context, data []byte) error {
	var event inats.BillingSubscriptionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	sub, err := FromEvent(event)
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	changed, err := c.store.Upsert(ctx, sub)
	if err != nil {
		return err
	}

	result := "applied"
	if !changed {
		result = "stale"
	}
	metrics.SubscriptionEventsTotal.WithLabelValues(result).Inc()

	slog.Debug("subscription consumer: processed event",
		"event_id", event.EventID,
		"user_id", event.UserID,
		"status", event.Status,
		"result", result,
	)
	return nil
}

// FromEvent converts a billing event into a subscription row.
func FromEvent(event inats.BillingSubscriptionEvent) (*Subscription, error) {
	if event.UserID == uuid.Nil {
		return nil, errors.New("missing user_id")
	}
	if event.Status == "" {
		return nil, errors.New("missing status")
	}
	if event.CurrentPeriodStart.IsZero() || event.CurrentPeriodEnd.IsZero() {
		return nil, errors.New("missing current period bounds")
	}
	if !event.CurrentPeriodEnd.After(event.CurrentPeriodStart) {
		return nil, fmt.Errorf("period end %s is not after start %s",
			event.CurrentPeriodEnd.Format(time.RFC3339), event.CurrentPeriodStart.Format(time.RFC3339))
	}

	updatedAt := event.OccurredAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	return &Subscription{
		UserID:             event.UserID,
		Status:             event.Status,
		CurrentPeriodStart: event.CurrentPeriodStart.UTC(),
		CurrentPeriodEnd:   event.CurrentPeriodEnd.UTC(),
		CancelAtPeriodEnd:  event.CancelAtPeriodEnd,
		UpdatedAt:          updatedAt.UTC(),
	}, nil
}
