package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/careercoach/coach/internal/auth"
	"github.com/careercoach/coach/internal/client"
	"github.com/careercoach/coach/internal/config"
	"github.com/careercoach/coach/internal/usage"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		email  string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}

			id := uuid.New()
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("parsing --user: %w", err)
				}
			}

			token, err := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry).GenerateToken(id, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user UUID (random when empty)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	return cmd
}

func newEntitlementsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "entitlements",
		Short: "Print the current entitlement decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			d, err := c.FetchEntitlements(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}
}

func newOverlayCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "overlay",
		Short: "Print the live overlay allowance",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			d, err := c.FetchLiveOverlay(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}
}

func newUsageCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Print usage for the current billing period",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			u, err := c.CurrentUsage(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}
}

func newIncrementCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "increment <resume|interview>",
		Short:     "Record one billable action and print the refreshed decision",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(usage.KindResume), string(usage.KindInterview)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := usage.ParseKind(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			session := client.NewSession(c, client.NewCache(c, client.DefaultPollInterval))
			resp, snap, err := session.RecordUsage(cmd.Context(), kind)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"increment":    resp,
				"entitlements": snap.Decision,
			})
		},
	}
}

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the entitlement decision and print every change",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cache := client.NewCache(c, interval)
			updates, unsubscribe := cache.Subscribe()
			defer unsubscribe()

			cache.Start(ctx)
			defer cache.Stop()

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case snap := <-updates:
					fmt.Fprintf(out, "%s state=%s plan=%s resume=%t interview=%t",
						time.Now().Format(time.RFC3339), snap.State, snap.Plan(),
						snap.CanGenerateResume(), snap.CanRunInterview())
					if snap.Err != "" {
						fmt.Fprintf(out, " error=%q", snap.Err)
					}
					fmt.Fprintln(out)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", client.DefaultPollInterval, "poll interval")
	return cmd
}
