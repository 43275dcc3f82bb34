package client

import (
	"context"

	"github.com/careercoach/coach/internal/usage"
)

// Incrementer is satisfied by *Client.
type Incrementer interface {
	IncrementUsage(ctx context.Context, kind usage.Kind) (*IncrementResponse, error)
}

// Session pairs usage recording with the cache so quota displays update
// without waiting for the next poll.
type Session struct {
	usage Incrementer
	cache *Cache
}

func NewSession(inc Incrementer, cache *Cache) *Session {
	return &Session{usage: inc, cache: cache}
}

// RecordUsage reports a completed billable action and then refreshes the
// cache whether or not the increment succeeded. The action already happened,
// so callers should log a returned error rather than undo the action.
func (s *Session) RecordUsage(ctx context.Context, kind usage.Kind) (*IncrementResponse, Snapshot, error) {
	resp, err := s.usage.IncrementUsage(ctx, kind)
	snap := s.cache.Refresh(ctx)
	return resp, snap, err
}
