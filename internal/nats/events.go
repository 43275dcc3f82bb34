package nats

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamBilling = "COACH_BILLING"
	StreamEvents  = "COACH_EVENTS"
)

// Subject constants.
const (
	SubjectBillingSubscription = "coach.billing.subscriptions"
	SubjectUsageRecorded       = "coach.events.usage"
)

// BillingSubscriptionEvent is published by the billing webhook whenever a
// subscription is created, renewed, updated or cancelled.
type BillingSubscriptionEvent struct {
	EventID            string    `json:"event_id"`
	UserID             uuid.UUID `json:"user_id"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	CancelAtPeriodEnd  bool      `json:"cancel_at_period_end"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// UsageRecorded is published after a metered billable action is counted.
type UsageRecorded struct {
	UserID      uuid.UUID `json:"user_id"`
	Kind        string    `json:"kind"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// MsgID identifies one increment. Counters only grow within a period, so the
// post-increment value makes the id unique per billable action.
func (e UsageRecorded) MsgID() string {
	return fmt.Sprintf("usage:%s:%d:%s:%d", e.UserID, e.PeriodStart.Unix(), e.Kind, e.Used)
}
