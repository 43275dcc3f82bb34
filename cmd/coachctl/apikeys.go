package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/careercoach/coach/internal/apikeys"
	"github.com/careercoach/coach/internal/config"
	"github.com/careercoach/coach/internal/database"
)

type keyRevealer interface {
	Reveal(ctx context.Context, userID uuid.UUID, provider string) (string, error)
}

func newAPIKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikeys",
		Short: "Stored provider key helpers (direct database access)",
	}
	cmd.AddCommand(newAPIKeysCheckCmd())
	return cmd
}

func newAPIKeysCheckCmd() *cobra.Command {
	var userID, provider string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Decrypt a stored key with ENCRYPTION_KEY and print it masked",
		Long: `Reads the user's stored key from Postgres and opens it with the configured
ENCRYPTION_KEY. Use it after rotating keys or restoring a backup to confirm
stored keys still decrypt. The key itself is never printed in full.`,
		Example: `  coachctl apikeys check --user 3f0c... --provider openai`,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("parsing --user: %w", err)
			}
			if !apikeys.ValidProvider(provider) {
				return apikeys.ErrUnknownProvider
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pool, err := database.NewPostgresPool(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc, err := apikeys.NewService(apikeys.NewRepository(pool), cfg.Encryption.Key)
			if err != nil {
				return err
			}
			return checkAPIKey(cmd.Context(), cmd.OutOrStdout(), svc, id, provider)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user UUID")
	cmd.Flags().StringVar(&provider, "provider", "", "provider (openai, anthropic, gemini, groq, deepgram)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func checkAPIKey(ctx context.Context, out io.Writer, keys keyRevealer, userID uuid.UUID, provider string) error {
	key, err := keys.Reveal(ctx, userID, provider)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("no %s key stored for user %s", provider, userID)
	}
	fmt.Fprintf(out, "%s key for %s decrypts: %s (%d chars)\n", provider, userID, maskKey(key), len(key))
	return nil
}

// maskKey keeps the first and last four characters of keys long enough to
// hide the middle.
func maskKey(key string) string {
	if len(key) < 12 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
