package subscriptions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles subscriptions PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new subscriptions Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetActive returns the user's active subscription, or nil if there is none.
func (r *Repository) GetActive(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	var s Subscription
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, status, current_period_start, current_period_end,
		        cancel_at_period_end, updated_at
		 FROM subscriptions
		 WHERE user_id = $1 AND status = $2`, userID, StatusActive,
	).Scan(&s.UserID, &s.Status, &s.CurrentPeriodStart, &s.CurrentPeriodEnd,
		&s.CancelAtPeriodEnd, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying active subscription: %w", err)
	}
	return &s, nil
}

// Upsert writes the subscription row. Events older than the stored row are
// ignored; the returned bool reports whether the row changed.
func (r *Repository) Upsert(ctx context.Context, s *Subscription) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO subscriptions (user_id, status, current_period_start, current_period_end,
		                            cancel_at_period_end, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE
		 SET status = EXCLUDED.status,
		     current_period_start = EXCLUDED.current_period_start,
		     current_period_end = EXCLUDED.current_period_end,
		     cancel_at_period_end = EXCLUDED.cancel_at_period_end,
		     updated_at = EXCLUDED.updated_at
		 WHERE subscriptions.updated_at <= EXCLUDED.updated_at`,
		s.UserID, s.Status, s.CurrentPeriodStart, s.CurrentPeriodEnd, s.CancelAtPeriodEnd, s.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("upserting subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
