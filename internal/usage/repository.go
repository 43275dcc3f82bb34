package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles usage_ledger PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new usage Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the ledger entry for the exact period, or nil if none exists.
// It never creates a row.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID, start, end time.Time) (*LedgerEntry, error) {
	var e LedgerEntry
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, period_start, period_end, resumes_used, interviews_used, created_at, updated_at
		 FROM usage_ledger
		 WHERE user_id = $1 AND period_start = $2 AND period_end = $3`, userID, start, end,
	).Scan(&e.UserID, &e.PeriodStart, &e.PeriodEnd, &e.ResumesUsed, &e.InterviewsUsed, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying usage ledger: %w", err)
	}
	return &e, nil
}

// Increment adds one to the kind's counter for the period in a single
// statement, inserting the row on first use. Concurrent calls serialize on the
// (user_id, period_start, period_end) unique index so no increment is lost.
func (r *Repository) Increment(ctx context.Context, userID uuid.UUID, start, end time.Time, kind Kind) (*LedgerEntry, error) {
	var resumes, interviews int
	switch kind {
	case KindResume:
		resumes = 1
	case KindInterview:
		interviews = 1
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}

	var e LedgerEntry
	err := r.pool.QueryRow(ctx,
		`INSERT INTO usage_ledger (user_id, period_start, period_end, resumes_used, interviews_used)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, period_start, period_end) DO UPDATE
		 SET resumes_used = usage_ledger.resumes_used + EXCLUDED.resumes_used,
		     interviews_used = usage_ledger.interviews_used + EXCLUDED.interviews_used,
		     updated_at = NOW()
		 RETURNING user_id, period_start, period_end, resumes_used, interviews_used, created_at, updated_at`,
		userID, start, end, resumes, interviews,
	).Scan(&e.UserID, &e.PeriodStart, &e.PeriodEnd, &e.ResumesUsed, &e.InterviewsUsed, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("incrementing usage ledger: %w", err)
	}
	return &e, nil
}
