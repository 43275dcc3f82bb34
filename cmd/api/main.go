package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/careercoach/coach/internal/api"
	"github.com/careercoach/coach/internal/apikeys"
	"github.com/careercoach/coach/internal/auth"
	"github.com/careercoach/coach/internal/config"
	"github.com/careercoach/coach/internal/database"
	"github.com/careercoach/coach/internal/entitlements"
	"github.com/careercoach/coach/internal/middleware"
	inats "github.com/careercoach/coach/internal/nats"
	iredis "github.com/careercoach/coach/internal/redis"
	"github.com/careercoach/coach/internal/server"
	"github.com/careercoach/coach/internal/subscriptions"
	"github.com/careercoach/coach/internal/usage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Migrations
	if err := database.RunMigrations(cfg.DB); err != nil {
		return err
	}

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	readiness := map[string]api.HealthCheck{
		"postgres": database.HealthCheck(pool),
		"redis":    iredis.HealthCheck(redisClient),
		"nats":     nil,
	}

	// NATS is optional: without it subscriptions are not synced and usage
	// events are not published.
	var (
		natsClient *inats.Client
		publisher  usage.EventPublisher
	)
	if cfg.NATS.Enabled() {
		natsClient, err = inats.NewClient(ctx, cfg.NATS, "coach-api")
		if err != nil {
			return err
		}
		defer natsClient.Close()
		publisher = inats.NewPublisher(natsClient.JetStream())
		readiness["nats"] = natsClient.HealthCheck
	} else {
		slog.Warn("NATS_URL not set; subscription sync and usage events are disabled")
	}

	// Domain
	subRepo := subscriptions.NewRepository(pool)
	ledger := usage.NewRepository(pool)

	keySvc, err := apikeys.NewService(apikeys.NewRepository(pool), cfg.Encryption.Key)
	if err != nil {
		return err
	}
	keyHandler := apikeys.NewHandler(keySvc)

	resolver := entitlements.NewResolver(subRepo, ledger, keySvc, cfg.Limits)
	entHandler := entitlements.NewHandler(resolver)

	usageSvc := usage.NewService(subRepo, ledger, publisher, cfg.Limits)
	usageHandler := usage.NewHandler(usageSvc)

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)
	limiter := middleware.NewRateLimiter(redisClient, "api", cfg.RateLimit.Requests, cfg.RateLimit.WindowSec)

	// Router
	router := api.NewRouter(api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		APIRateLimiter:     limiter.Middleware,
		ReadinessChecks:    readiness,
	}, api.HandlerSet{
		GetEntitlements: entHandler.Get,
		GetLiveOverlay:  entHandler.GetLiveOverlay,

		IncrementUsage:  usageHandler.Increment,
		GetCurrentUsage: usageHandler.Current,

		ListAPIKeys:  keyHandler.List,
		StoreAPIKey:  keyHandler.Store,
		DeleteAPIKey: keyHandler.Delete,

		AuthMiddleware: auth.Middleware(jwtManager),
	})

	g, ctx := errgroup.WithContext(ctx)

	srv := server.New(cfg.Server, router)
	g.Go(func() error {
		return srv.Run(ctx)
	})

	if natsClient != nil {
		consumer := subscriptions.NewConsumer(subRepo, inats.NewConsumerManager(natsClient.JetStream()))
		g.Go(func() error {
			return consumer.Start(ctx)
		})
	}

	return g.Wait()
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
