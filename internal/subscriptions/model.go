package subscriptions

import (
	"time"

	"github.com/google/uuid"
)

// StatusActive is the only status that grants the PRO plan.
const StatusActive = "active"

// Subscription matches the subscriptions table schema.
type Subscription struct {
	UserID             uuid.UUID `json:"user_id"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	CancelAtPeriodEnd  bool      `json:"cancel_at_period_end"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsActive reports whether the subscription grants paid entitlements.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == StatusActive
}

// Plan is the tier a user is entitled to.
type Plan string

const (
	PlanPro      Plan = "PRO"
	PlanFreeBYOK Plan = "FREE_BYOK"
)

// PlanFor maps an (optional) active subscription to a plan. Anything other
// than an active subscription is the free bring-your-own-key tier.
func PlanFor(s *Subscription) Plan {
	if s.IsActive() {
		return PlanPro
	}
	return PlanFreeBYOK
}
