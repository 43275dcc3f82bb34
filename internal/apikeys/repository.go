package apikeys

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Upsert(ctx context.Context, row *KeyRow) error
	Get(ctx context.Context, userID uuid.UUID, provider string) (*KeyRow, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*KeyRow, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID uuid.UUID, provider string) (bool, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Upsert(ctx context.Context, row *KeyRow) error {
	query := `
		INSERT INTO api_keys (id, user_id, provider, encrypted_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, provider) DO UPDATE
		SET encrypted_key = EXCLUDED.encrypted_key, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		row.ID, row.UserID, row.Provider, row.EncryptedKey, row.CreatedAt, row.UpdatedAt,
	).Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting api key: %w", err)
	}
	return nil
}

func (r *postgresRepository) Get(ctx context.Context, userID uuid.UUID, provider string) (*KeyRow, error) {
	query := `
		SELECT id, user_id, provider, encrypted_key, created_at, updated_at
		FROM api_keys
		WHERE user_id = $1 AND provider = $2`

	row := &KeyRow{}
	err := r.pool.QueryRow(ctx, query, userID, provider).Scan(
		&row.ID, &row.UserID, &row.Provider, &row.EncryptedKey, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying api key: %w", err)
	}
	return row, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*KeyRow, error) {
	query := `
		SELECT id, user_id, provider, encrypted_key, created_at, updated_at
		FROM api_keys
		WHERE user_id = $1
		ORDER BY provider`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	var result []*KeyRow
	for rows.Next() {
		row := &KeyRow{}
		if err := rows.Scan(&row.ID, &row.UserID, &row.Provider, &row.EncryptedKey, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning api key: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *postgresRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_keys WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting api keys: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) Delete(ctx context.Context, userID uuid.UUID, provider string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM api_keys WHERE user_id = $1 AND provider = $2`, userID, provider)
	if err != nil {
		return false, fmt.Errorf("deleting api key: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
