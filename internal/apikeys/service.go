package apikeys

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownProvider is returned for provider names outside Providers.
var ErrUnknownProvider = errors.New("unknown api key provider")

type Service struct {
	repo   Repository
	sealer *Sealer
}

func NewService(repo Repository, encryptionKey string) (*Service, error) {
	sealer, err := NewSealer(encryptionKey)
	if err != nil {
		return nil, err
	}
	return &Service{repo: repo, sealer: sealer}, nil
}

// Store encrypts key and replaces any existing key for the provider.
func (s *Service) Store(ctx context.Context, userID uuid.UUID, provider, key string) (*StoredKey, error) {
	if !ValidProvider(provider) {
		return nil, ErrUnknownProvider
	}

	sealed, err := s.sealer.Seal(key, userID, provider)
	if err != nil {
		return nil, fmt.Errorf("encrypting api key: %w", err)
	}

	now := time.Now().UTC()
	row := &KeyRow{
		ID:           uuid.New(),
		UserID:       userID,
		Provider:     provider,
		EncryptedKey: sealed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, err
	}

	return &StoredKey{Provider: row.Provider, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}, nil
}

// List returns the providers the user has connected.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]StoredKey, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	keys := make([]StoredKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, StoredKey{Provider: row.Provider, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt})
	}
	return keys, nil
}

// Reveal decrypts the user's key for provider for use by outbound AI calls.
// It returns "" when no key is stored.
func (s *Service) Reveal(ctx context.Context, userID uuid.UUID, provider string) (string, error) {
	if !ValidProvider(provider) {
		return "", ErrUnknownProvider
	}
	row, err := s.repo.Get(ctx, userID, provider)
	if err != nil || row == nil {
		return "", err
	}
	key, err := s.sealer.Open(row.EncryptedKey, userID, provider)
	if err != nil {
		return "", fmt.Errorf("decrypting api key: %w", err)
	}
	return key, nil
}

// Delete removes the key for provider. The bool reports whether one existed.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, provider string) (bool, error) {
	if !ValidProvider(provider) {
		return false, ErrUnknownProvider
	}
	return s.repo.Delete(ctx, userID, provider)
}

// Count is the API-key presence signal consumed by the entitlement resolver.
func (s *Service) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountByUser(ctx, userID)
}
