package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/careercoach/coach/internal/config"
	"github.com/careercoach/coach/internal/metrics"
	inats "github.com/careercoach/coach/internal/nats"
	"github.com/careercoach/coach/internal/subscriptions"
)

// SubscriptionReader looks up a user's active subscription.
type SubscriptionReader interface {
	GetActive(ctx context.Context, userID uuid.UUID) (*subscriptions.Subscription, error)
}

// Ledger reads and atomically increments per-period counters.
type Ledger interface {
	Get(ctx context.Context, userID uuid.UUID, start, end time.Time) (*LedgerEntry, error)
	Increment(ctx context.Context, userID uuid.UUID, start, end time.Time, kind Kind) (*LedgerEntry, error)
}

// EventPublisher is satisfied by *nats.Publisher.
type EventPublisher interface {
	PublishUsageRecorded(ctx context.Context, event inats.UsageRecorded) error
}

// Service meters billable actions against the PRO period quota.
type Service struct {
	subs      SubscriptionReader
	ledger    Ledger
	publisher EventPublisher
	limits    config.LimitsConfig
}

// NewService creates a new usage Service. publisher may be nil when NATS is
// not configured.
func NewService(subs SubscriptionReader, ledger Ledger, publisher EventPublisher, limits config.LimitsConfig) *Service {
	return &Service{
		subs:      subs,
		ledger:    ledger,
		publisher: publisher,
		limits:    limits,
	}
}

// Increment records one billable action. Free users are not metered and the
// ledger is left untouched.
func (s *Service) Increment(ctx context.Context, userID uuid.UUID, kind Kind) (*IncrementResult, error) {
	kind, err := ParseKind(string(kind))
	if err != nil {
		return nil, err
	}

	sub, err := s.subs.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("looking up subscription: %w", err)
	}

	plan := subscriptions.PlanFor(sub)
	if plan != subscriptions.PlanPro {
		metrics.UsageIncrementsTotal.WithLabelValues(string(kind), string(plan)).Inc()
		return &IncrementResult{Plan: plan, Kind: kind}, nil
	}

	entry, err := s.ledger.Increment(ctx, userID, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, kind)
	if err != nil {
		return nil, err
	}
	metrics.UsageIncrementsTotal.WithLabelValues(string(kind), string(plan)).Inc()

	result := &IncrementResult{
		Plan:    plan,
		Kind:    kind,
		Metered: true,
		Used:    entry.Used(kind),
		Limit:   LimitFor(s.limits, kind),
	}
	s.publish(ctx, userID, sub, result)
	return result, nil
}

func (s *Service) publish(ctx context.Context, userID uuid.UUID, sub *subscriptions.Subscription, result *IncrementResult) {
	if s.publisher == nil {
		return
	}
	event := inats.UsageRecorded{
		UserID:      userID,
		Kind:        string(result.Kind),
		PeriodStart: sub.CurrentPeriodStart,
		PeriodEnd:   sub.CurrentPeriodEnd,
		Used:        result.Used,
		Limit:       result.Limit,
		RecordedAt:  time.Now().UTC(),
	}
	if err := s.publisher.PublishUsageRecorded(ctx, event); err != nil {
		slog.Warn("usage: publishing usage event", "error", err, "user_id", userID, "kind", result.Kind)
	}
}

// Current returns the user's usage for the subscription's current period.
// Free users get a nil Usage.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*CurrentUsage, error) {
	sub, err := s.subs.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("looking up subscription: %w", err)
	}

	plan := subscriptions.PlanFor(sub)
	if plan != subscriptions.PlanPro {
		return &CurrentUsage{Plan: plan}, nil
	}

	summary, err := SummaryFor(ctx, s.ledger, s.limits, sub)
	if err != nil {
		return nil, err
	}

	return &CurrentUsage{
		Plan:        plan,
		PeriodStart: &sub.CurrentPeriodStart,
		PeriodEnd:   &sub.CurrentPeriodEnd,
		Usage:       summary,
	}, nil
}

// SummaryFor reads the ledger for the subscription's exact period. A missing
// entry counts as zero and is not created.
func SummaryFor(ctx context.Context, ledger Ledger, limits config.LimitsConfig, sub *subscriptions.Subscription) (*Summary, error) {
	entry, err := ledger.Get(ctx, sub.UserID, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Resumes:    Counter{Used: entry.Used(KindResume), Limit: limits.ResumesPerPeriod},
		Interviews: Counter{Used: entry.Used(KindInterview), Limit: limits.InterviewsPerPeriod},
	}, nil
}

// LimitFor returns the PRO per-period allowance for kind.
func LimitFor(limits config.LimitsConfig, kind Kind) int {
	if kind == KindInterview {
		return limits.InterviewsPerPeriod
	}
	return limits.ResumesPerPeriod
}
