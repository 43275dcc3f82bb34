package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher publishes typed events with JetStream message ids so retries are
// deduplicated by the server.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishUsageRecorded publishes a metered usage event.
func (p *Publisher) PublishUsageRecorded(ctx context.Context, event UsageRecorded) error {
	return p.publish(ctx, SubjectUsageRecorded, event.MsgID(), event)
}

// PublishBillingSubscription publishes a subscription change. The billing
// webhook does this in production; coachctl uses it for local environments.
func (p *Publisher) PublishBillingSubscription(ctx context.Context, event BillingSubscriptionEvent) error {
	return p.publish(ctx, SubjectBillingSubscription, event.EventID, event)
}

func (p *Publisher) publish(ctx context.Context, subject, msgID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}

	var opts []jetstream.PublishOpt
	if msgID != "" {
		opts = append(opts, jetstream.WithMsgID(msgID))
	}
	if _, err := p.js.Publish(ctx, subject, payload, opts...); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
