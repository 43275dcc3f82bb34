package apikeys

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type memRepo struct {
	mu   sync.Mutex
	rows map[string]*KeyRow
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[string]*KeyRow)}
}

func rowKey(userID uuid.UUID, provider string) string {
	return userID.String() + "/" + provider
}

func (m *memRepo) Upsert(_ context.Context, row *KeyRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rows[rowKey(row.UserID, row.Provider)]; ok {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	}
	cp := *row
	m.rows[rowKey(row.UserID, row.Provider)] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, userID uuid.UUID, provider string) (*KeyRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[rowKey(userID, provider)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *memRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*KeyRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*KeyRow
	for _, p := range Providers {
		if row, ok := m.rows[rowKey(userID, p)]; ok {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	rows, _ := m.ListByUser(ctx, userID)
	return int64(len(rows)), nil
}

func (m *memRepo) Delete(_ context.Context, userID uuid.UUID, provider string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := rowKey(userID, provider)
	_, ok := m.rows[k]
	delete(m.rows, k)
	return ok, nil
}

func newTestService(t *testing.T) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	svc, err := NewService(repo, testKey)
	require.NoError(t, err)
	return svc, repo
}

func TestService_StoreRevealRoundTrip(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	stored, err := svc.Store(ctx, userID, "openai", "sk-test-1234567890")
	require.NoError(t, err)
	assert.Equal(t, "openai", stored.Provider)

	row := repo.rows[rowKey(userID, "openai")]
	require.NotNil(t, row)
	assert.NotContains(t, row.EncryptedKey, "sk-test")

	key, err := svc.Reveal(ctx, userID, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-1234567890", key)
}

func TestService_SealedKeyIsBoundToOwner(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	_, err := svc.Store(ctx, owner, "groq", "gsk-owner-secret")
	require.NoError(t, err)

	copied := *repo.rows[rowKey(owner, "groq")]
	copied.UserID = other
	require.NoError(t, repo.Upsert(ctx, &copied))

	_, err = svc.Reveal(ctx, other, "groq")
	assert.Error(t, err)
}

func TestService_Count(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	n, err := svc.Count(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = svc.Store(ctx, userID, "anthropic", "sk-ant-abcdefgh")
	require.NoError(t, err)
	_, err = svc.Store(ctx, userID, "anthropic", "sk-ant-replaced")
	require.NoError(t, err)
	_, err = svc.Store(ctx, userID, "deepgram", "dg-abcdefgh")
	require.NoError(t, err)

	n, err = svc.Count(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	existed, err := svc.Delete(ctx, userID, "deepgram")
	require.NoError(t, err)
	assert.True(t, existed)

	n, err = svc.Count(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestService_UnknownProvider(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Store(ctx, uuid.New(), "cohere", "whatever-key")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	_, err = svc.Delete(ctx, uuid.New(), "cohere")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	_, err = svc.Reveal(ctx, uuid.New(), "cohere")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewService_BadKey(t *testing.T) {
	_, err := NewService(newMemRepo(), "short")
	assert.Error(t, err)
}
