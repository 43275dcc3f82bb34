package usage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Unknown kinds are rejected before any statement runs, so a nil pool is never touched.
func TestRepository_IncrementRejectsUnknownKind(t *testing.T) {
	repo := NewRepository(nil)

	entry, err := repo.Increment(context.Background(), uuid.New(), periodStart, periodEnd, Kind("bogus"))
	require.ErrorIs(t, err, ErrUnknownKind)
	assert.Nil(t, entry)
}
