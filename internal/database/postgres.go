package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careercoach/coach/internal/config"
)

// NewPostgresPool opens and pings the pool. Sessions run in UTC so period
// bounds come back in the same zone the billing events use, and a statement
// timeout keeps a stuck ledger upsert from holding its row lock forever.
func NewPostgresPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	params := poolCfg.ConnConfig.RuntimeParams
	params["application_name"] = "coach-api"
	params["timezone"] = "UTC"
	params["statement_timeout"] = "5000"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	slog.Info("connected to PostgreSQL",
		"host", cfg.Host, "port", cfg.Port, "db", cfg.Name, "max_conns", poolCfg.MaxConns)
	return pool, nil
}

// HealthCheck returns a readiness probe for the pool.
func HealthCheck(pool *pgxpool.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("pinging postgres: %w", err)
		}
		return nil
	}
}
