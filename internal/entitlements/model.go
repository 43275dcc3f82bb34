package entitlements

import (
	"time"

	"github.com/careercoach/coach/internal/subscriptions"
	"github.com/careercoach/coach/internal/usage"
)

// SubscriptionSummary is the client-facing view of the subscription record.
type SubscriptionSummary struct {
	Status            string    `json:"status"`
	CurrentPeriodEnd  time.Time `json:"currentPeriodEnd"`
	CancelAtPeriodEnd bool      `json:"cancelAtPeriodEnd"`
}

// Decision answers "what can this user do right now". It is derived on every
// request and never stored.
type Decision struct {
	Plan              subscriptions.Plan   `json:"plan"`
	HasAPIKeys        bool                 `json:"hasApiKeys"`
	Subscription      *SubscriptionSummary `json:"subscription"`
	Usage             *usage.Summary       `json:"usage"`
	CanGenerateResume bool                 `json:"canGenerateResume"`
	CanRunInterview   bool                 `json:"canRunInterview"`
}

// OverlayDecision gates the live interview overlay. MinutesLimit and
// MinutesRemaining are nil for free users, who are gated only on keys.
type OverlayDecision struct {
	Plan             subscriptions.Plan `json:"plan"`
	HasAPIKeys       bool               `json:"hasApiKeys"`
	MinutesLimit     *int               `json:"minutesLimit"`
	MinutesUsed      int                `json:"minutesUsed"`
	MinutesRemaining *int               `json:"minutesRemaining"`
	CanUseOverlay    bool               `json:"canUseOverlay"`
}
