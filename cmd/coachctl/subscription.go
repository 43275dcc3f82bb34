package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/careercoach/coach/internal/config"
	inats "github.com/careercoach/coach/internal/nats"
	"github.com/careercoach/coach/internal/subscriptions"
)

func newSubscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscription",
		Short: "Billing subscription helpers for local environments",
	}
	cmd.AddCommand(newSubscriptionPublishCmd())
	return cmd
}

func newSubscriptionPublishCmd() *cobra.Command {
	var (
		userID string
		status string
		start  string
		days   int
		cancel bool
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a billing subscription event to NATS",
		Long: `Publishes the same event the billing webhook emits, so a local API
with NATS_URL set picks it up and writes the subscription row.`,
		Example: `  coachctl subscription publish --user 3f0c... --status active --days 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("parsing --user: %w", err)
			}
			event, err := buildBillingEvent(id, status, start, days, cancel, time.Now().UTC())
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.NATS.Enabled() {
				return fmt.Errorf("NATS_URL is not set")
			}

			nc, err := inats.NewClient(cmd.Context(), cfg.NATS, "coachctl")
			if err != nil {
				return err
			}
			defer nc.Close()

			if err := inats.NewPublisher(nc.JetStream()).PublishBillingSubscription(cmd.Context(), event); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s for user %s (%s until %s)\n",
				event.EventID, event.UserID, event.Status, event.CurrentPeriodEnd.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user UUID")
	cmd.Flags().StringVar(&status, "status", subscriptions.StatusActive, "subscription status")
	cmd.Flags().StringVar(&start, "start", "", "period start, RFC 3339 (default: now)")
	cmd.Flags().IntVar(&days, "days", 30, "period length in days")
	cmd.Flags().BoolVar(&cancel, "cancel-at-period-end", false, "mark the subscription to end with the period")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func buildBillingEvent(userID uuid.UUID, status, start string, days int, cancel bool, now time.Time) (inats.BillingSubscriptionEvent, error) {
	periodStart := now
	if start != "" {
		var err error
		if periodStart, err = time.Parse(time.RFC3339, start); err != nil {
			return inats.BillingSubscriptionEvent{}, fmt.Errorf("parsing --start: %w", err)
		}
	}
	if days <= 0 {
		return inats.BillingSubscriptionEvent{}, fmt.Errorf("--days must be positive")
	}

	event := inats.BillingSubscriptionEvent{
		EventID:            "coachctl-" + uuid.NewString(),
		UserID:             userID,
		Status:             status,
		CurrentPeriodStart: periodStart.UTC(),
		CurrentPeriodEnd:   periodStart.UTC().AddDate(0, 0, days),
		CancelAtPeriodEnd:  cancel,
		OccurredAt:         now,
	}
	if _, err := subscriptions.FromEvent(event); err != nil {
		return inats.BillingSubscriptionEvent{}, err
	}
	return event, nil
}
