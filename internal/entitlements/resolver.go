package entitlements

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/careercoach/coach/internal/config"
	"github.com/careercoach/coach/internal/metrics"
	"github.com/careercoach/coach/internal/subscriptions"
	"github.com/careercoach/coach/internal/usage"
)

// KeyCounter reports how many provider keys a user has stored.
type KeyCounter interface {
	Count(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Resolver combines the subscription record, the usage ledger and API-key
// presence into a Decision. It never writes.
type Resolver struct {
	subs   usage.SubscriptionReader
	ledger usage.Ledger
	keys   KeyCounter
	limits config.LimitsConfig
}

func NewResolver(subs usage.SubscriptionReader, ledger usage.Ledger, keys KeyCounter, limits config.LimitsConfig) *Resolver {
	return &Resolver{
		subs:   subs,
		ledger: ledger,
		keys:   keys,
		limits: limits,
	}
}

// Resolve computes the user's entitlement decision. Any lookup fault is
// returned as is; the caller must not fall back to a default plan.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (*Decision, error) {
	sub, err := r.subs.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("looking up subscription: %w", err)
	}

	plan := subscriptions.PlanFor(sub)
	decision := &Decision{Plan: plan}

	if plan != subscriptions.PlanPro {
		hasKeys, err := r.hasKeys(ctx, userID)
		if err != nil {
			return nil, err
		}
		decision.HasAPIKeys = hasKeys
		decision.CanGenerateResume = hasKeys
		decision.CanRunInterview = hasKeys
		metrics.EntitlementDecisionsTotal.WithLabelValues(string(plan)).Inc()
		return decision, nil
	}

	summary, err := usage.SummaryFor(ctx, r.ledger, r.limits, sub)
	if err != nil {
		return nil, fmt.Errorf("reading usage ledger: %w", err)
	}

	decision.Subscription = &SubscriptionSummary{
		Status:            sub.Status,
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	decision.Usage = summary
	decision.CanGenerateResume = summary.Resumes.Allows()
	decision.CanRunInterview = summary.Interviews.Allows()

	metrics.EntitlementDecisionsTotal.WithLabelValues(string(plan)).Inc()
	return decision, nil
}

// ResolveLiveOverlay computes the overlay allowance. Consumed minutes are not
// tracked yet, so PRO users always report zero used.
func (r *Resolver) ResolveLiveOverlay(ctx context.Context, userID uuid.UUID) (*OverlayDecision, error) {
	sub, err := r.subs.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("looking up subscription: %w", err)
	}

	plan := subscriptions.PlanFor(sub)
	if plan == subscriptions.PlanPro {
		limit := r.limits.OverlayMinutes
		used := 0
		remaining := max(limit-used, 0)
		return &OverlayDecision{
			Plan:             plan,
			MinutesLimit:     &limit,
			MinutesUsed:      used,
			MinutesRemaining: &remaining,
			CanUseOverlay:    remaining > 0,
		}, nil
	}

	hasKeys, err := r.hasKeys(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &OverlayDecision{
		Plan:          plan,
		HasAPIKeys:    hasKeys,
		CanUseOverlay: hasKeys,
	}, nil
}

func (r *Resolver) hasKeys(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := r.keys.Count(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("counting api keys: %w", err)
	}
	return n > 0, nil
}
