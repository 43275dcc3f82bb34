package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/careercoach/coach/internal/entitlements"
	"github.com/careercoach/coach/internal/subscriptions"
)

// DefaultPollInterval is how often a running Cache re-fetches the decision.
const DefaultPollInterval = 60 * time.Second

// State is the lifecycle of a Snapshot.
type State int

const (
	// StateLoading means no fetch has completed for this session. It is not a denial.
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "loading"
	}
}

// Snapshot is an immutable view of the cache.
type Snapshot struct {
	State     State
	Decision  *entitlements.Decision
	Err       string
	FetchedAt time.Time
}

func (s Snapshot) Loading() bool {
	return s.State == StateLoading
}

func (s Snapshot) ready() bool {
	return s.State == StateReady && s.Decision != nil
}

// CanGenerateResume is false unless the last fetch succeeded and allowed it.
func (s Snapshot) CanGenerateResume() bool {
	return s.ready() && s.Decision.CanGenerateResume
}

// CanRunInterview is false unless the last fetch succeeded and allowed it.
func (s Snapshot) CanRunInterview() bool {
	return s.ready() && s.Decision.CanRunInterview
}

// Plan returns the last known plan, or "" before the first success.
func (s Snapshot) Plan() subscriptions.Plan {
	if s.Decision == nil {
		return ""
	}
	return s.Decision.Plan
}

// Fetcher is satisfied by *Client.
type Fetcher interface {
	FetchEntitlements(ctx context.Context) (*entitlements.Decision, error)
}

// Cache holds the freshest known decision for one session. Start begins
// polling, Refresh is the invalidation hook after writes, and Subscribe
// delivers every new snapshot.
type Cache struct {
	fetcher  Fetcher
	interval time.Duration

	mu          sync.RWMutex
	snap        Snapshot
	generation  uint64
	subscribers map[chan Snapshot]struct{}
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewCache(fetcher Fetcher, interval time.Duration) *Cache {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Cache{
		fetcher:     fetcher,
		interval:    interval,
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Start fetches immediately and then every interval until Stop or ctx is
// done. Calling Start on a running cache is a no-op.
func (c *Cache) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.poll(ctx, done)
}

func (c *Cache) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Stop ends the session: polling halts and the cache returns to loading.
// In-flight fetches from the ended session are discarded.
func (c *Cache) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	c.mu.Lock()
	c.generation++
	c.setLocked(Snapshot{State: StateLoading})
	c.mu.Unlock()
}

// Refresh fetches the decision now and returns the resulting snapshot. A
// failed fetch is recorded in the snapshot and denies every capability.
func (c *Cache) Refresh(ctx context.Context) Snapshot {
	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	decision, err := c.fetcher.FetchEntitlements(ctx)

	c.mu.Lock()
	if gen != c.generation {
		snap := c.snap
		c.mu.Unlock()
		return snap
	}
	next := Snapshot{FetchedAt: time.Now()}
	if err != nil {
		next.State = StateFailed
		next.Err = err.Error()
		next.Decision = c.snap.Decision
		slog.Warn("entitlement cache: fetch failed", "error", err)
	} else {
		next.State = StateReady
		next.Decision = decision
	}
	c.setLocked(next)
	c.mu.Unlock()
	return next
}

// Snapshot returns the current view without fetching.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Subscribe returns a channel that receives each new snapshot, starting with
// the current one. Slow readers only see the latest value. Call the returned
// func to unsubscribe; it closes the channel.
func (c *Cache) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	ch <- c.snap
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, ch)
			close(ch)
			c.mu.Unlock()
		})
	}
}

// setLocked stores snap and delivers it to subscribers. Holding the lock
// keeps delivery in the same order as updates.
func (c *Cache) setLocked(snap Snapshot) {
	c.snap = snap
	for ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
