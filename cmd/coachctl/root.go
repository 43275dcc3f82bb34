package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/careercoach/coach/internal/client"
)

type globalOptions struct {
	server  string
	token   string
	retries uint64
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "coachctl",
		Short:         "Inspect and exercise the coach entitlement API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOr("COACH_API_URL", "http://localhost:8080"), "API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("COACH_TOKEN"), "bearer token (see `coachctl token`)")
	root.PersistentFlags().Uint64Var(&opts.retries, "retries", 3, "retries for transient failures")

	root.AddCommand(
		newTokenCmd(),
		newEntitlementsCmd(opts),
		newOverlayCmd(opts),
		newUsageCmd(opts),
		newIncrementCmd(opts),
		newWatchCmd(opts),
		newSubscriptionCmd(),
		newAPIKeysCmd(),
	)
	return root
}

func (o *globalOptions) client() (*client.Client, error) {
	if o.token == "" {
		return nil, fmt.Errorf("no token: pass --token or set COACH_TOKEN")
	}
	return client.New(o.server, client.StaticToken(o.token), client.WithRetry(o.retries, 200*time.Millisecond)), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
