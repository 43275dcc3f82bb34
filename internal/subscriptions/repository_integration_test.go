//go:build integration

package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careercoach/coach/internal/database/dbtest"
)

func TestRepository_UpsertAndGetActive(t *testing.T) {
	repo := NewRepository(dbtest.Pool(t))
	ctx := context.Background()
	userID := uuid.New()

	sub, err := repo.GetActive(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, sub)

	now := time.Now().UTC().Truncate(time.Microsecond)
	active := &Subscription{
		UserID:             userID,
		Status:             StatusActive,
		CurrentPeriodStart: now.AddDate(0, 0, -1),
		CurrentPeriodEnd:   now.AddDate(0, 1, -1),
		UpdatedAt:          now,
	}
	changed, err := repo.Upsert(ctx, active)
	require.NoError(t, err)
	assert.True(t, changed)

	sub, err = repo.GetActive(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.True(t, sub.CurrentPeriodEnd.Equal(active.CurrentPeriodEnd))

	stale := *active
	stale.Status = "canceled"
	stale.UpdatedAt = now.Add(-time.Hour)
	changed, err = repo.Upsert(ctx, &stale)
	require.NoError(t, err)
	assert.False(t, changed, "older events must not overwrite newer rows")

	canceled := *active
	canceled.Status = "canceled"
	canceled.UpdatedAt = now.Add(time.Minute)
	changed, err = repo.Upsert(ctx, &canceled)
	require.NoError(t, err)
	assert.True(t, changed)

	sub, err = repo.GetActive(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, sub)
}
