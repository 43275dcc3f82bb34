package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Durable describes a pull consumer. A message is given up after MaxDeliver
// attempts; handlers space NAK'd redeliveries with BackOff. BackOff is not sent
// to the server because it would replace AckWait with its first step.
type Durable struct {
	Stream     string
	Name       string
	Subject    string
	AckWait    time.Duration
	MaxDeliver int
	BackOff    []time.Duration
}

// SubscriptionSync is the durable that applies billing events to the
// subscriptions table.
var SubscriptionSync = Durable{
	Stream:     StreamBilling,
	Name:       "subscription-sync",
	Subject:    SubjectBillingSubscription,
	AckWait:    30 * time.Second,
	MaxDeliver: 5,
	BackOff:    []time.Duration{time.Second, 5 * time.Second, 30 * time.Second, 2 * time.Minute},
}

func (d Durable) config() jetstream.ConsumerConfig {
	return jetstream.ConsumerConfig{
		Durable:       d.Name,
		FilterSubject: d.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       d.AckWait,
		MaxDeliver:    d.MaxDeliver,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
}

// ConsumerManager creates durable consumers.
type ConsumerManager struct {
	js jetstream.JetStream
}

func NewConsumerManager(js jetstream.JetStream) *ConsumerManager {
	return &ConsumerManager{js: js}
}

// Ensure creates or updates the durable and returns it.
func (cm *ConsumerManager) Ensure(ctx context.Context, d Durable) (jetstream.Consumer, error) {
	consumer, err := cm.js.CreateOrUpdateConsumer(ctx, d.Stream, d.config())
	if err != nil {
		return nil, fmt.Errorf("ensuring consumer %s on %s: %w", d.Name, d.Stream, err)
	}
	return consumer, nil
}

// RedeliveryDelay is the wait before the next attempt after delivery number
// delivered failed. Handlers pass it to NakWithDelay.
func (d Durable) RedeliveryDelay(delivered uint64) time.Duration {
	if len(d.BackOff) == 0 {
		return 0
	}
	i := int(delivered) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(d.BackOff) {
		i = len(d.BackOff) - 1
	}
	return d.BackOff[i]
}
