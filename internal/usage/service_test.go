package usage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careercoach/coach/internal/config"
	inats "github.com/careercoach/coach/internal/nats"
	"github.com/careercoach/coach/internal/subscriptions"
)

var testLimits = config.LimitsConfig{ResumesPerPeriod: 100, InterviewsPerPeriod: 10, OverlayMinutes: 180}

type fakeSubs struct {
	byUser map[uuid.UUID]*subscriptions.Subscription
	err    error
}

func (f *fakeSubs) GetActive(_ context.Context, userID uuid.UUID) (*subscriptions.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byUser[userID], nil
}

type periodKey struct {
	user       uuid.UUID
	start, end int64
}

// memLedger mirrors the upsert-and-add statement under a mutex.
type memLedger struct {
	mu      sync.Mutex
	entries map[periodKey]*LedgerEntry
	writes  int
	err     error
}

func newMemLedger() *memLedger {
	return &memLedger{entries: make(map[periodKey]*LedgerEntry)}
}

func key(userID uuid.UUID, start, end time.Time) periodKey {
	return periodKey{user: userID, start: start.UnixNano(), end: end.UnixNano()}
}

func (l *memLedger) Get(_ context.Context, userID uuid.UUID, start, end time.Time) (*LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	e, ok := l.entries[key(userID, start, end)]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (l *memLedger) Increment(_ context.Context, userID uuid.UUID, start, end time.Time, kind Kind) (*LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.writes++
	k := key(userID, start, end)
	e, ok := l.entries[k]
	if !ok {
		e = &LedgerEntry{UserID: userID, PeriodStart: start, PeriodEnd: end}
		l.entries[k] = e
	}
	switch kind {
	case KindResume:
		e.ResumesUsed++
	case KindInterview:
		e.InterviewsUsed++
	default:
		return nil, ErrUnknownKind
	}
	cp := *e
	return &cp, nil
}

func (l *memLedger) seed(userID uuid.UUID, start, end time.Time, resumes, interviews int) {
	l.entries[key(userID, start, end)] = &LedgerEntry{
		UserID: userID, PeriodStart: start, PeriodEnd: end,
		ResumesUsed: resumes, InterviewsUsed: interviews,
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []inats.UsageRecorded
	err    error
}

func (p *recordingPublisher) PublishUsageRecorded(_ context.Context, e inats.UsageRecorded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

var (
	periodStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
)

func activeSub(userID uuid.UUID) *subscriptions.Subscription {
	return &subscriptions.Subscription{
		UserID:             userID,
		Status:             subscriptions.StatusActive,
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
	}
}

func TestIncrement_CreatesEntryOnFirstUse(t *testing.T) {
	userID := uuid.New()
	ledger := newMemLedger()
	svc := NewService(&fakeSubs{byUser: map[uuid.UUID]*subscriptions.Subscription{userID: activeSub(userID)}}, ledger, nil, testLimits)

	result, err := svc.Increment(context.Background(), userID, KindResume)
	require.NoError(t, err)
	assert.True(t, result.Metered)
	assert.Equal(t, subscriptions.PlanPro, result.Plan)
	assert.Equal(t, 1, result.Used)
	assert.Equal(t, 100, result.Limit)

	entry, err := ledger.Get(context.Background(), userID, periodStart, periodEnd)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 1, entry.ResumesUsed)
	assert.Equal(t, 0, entry.InterviewsUsed)
}

func TestIncrement_SequentialAddsTwo(t *testing.T) {
	userID := uuid.New()
	ledger := newMemLedger()
	ledger.seed(userID, periodStart, periodEnd, 5, 2)
	svc := NewService(&fakeSubs{byUser: map[uuid.UUID]*subscriptions.Subscription{userID: activeSub(userID)}}, ledger, nil, testLimits)

	ctx := context.Background()
	_, err := svc.Increment(ctx, userID, KindInterview)
	require.NoError(t, err)
	result, err := svc.Increment(ctx, userID, KindInterview)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Used)
	assert.Equal(t, 10, result.Limit)
}

func TestIncrement_FreeUserIsNotMetered(t *testing.T) {
	userID := uuid.New()
	ledger := newMemLedger()
	pub := &recordingPublisher{}
	svc := NewService(&fakeSubs{}, ledger, pub, testLimits)

	for _, kind := range []Kind{KindResume, KindInterview} {
		result, err := svc.Increment(context.Background(), userID, kind)
		require.NoError(t, err)
		assert.False(t, result.Metered)
		assert.Equal(t, subscriptions.PlanFreeBYOK, result.Plan)
	}

	assert.Zero(t, ledger.writes)
	assert.Empty(t, ledger.entries)
	assert.Empty(t, pub.events)
}

func TestIncrement_InactiveSubscriptionIsFree(t *testing.T) {
	userID := uuid.New()
	sub := activeSub(userID)
	sub.Status = "past_due"
	ledger := newMemLedger()
	svc := NewService(&fakeSubs{byUser: map[uuid.UUID]*subscriptions.Subscription{userID: sub}}, ledger, nil, testLimits)

	result, err := svc.Increment(context.Background(), userID, KindResume)
	require.NoError(t, err)
	assert.False(t, result.Metered)
	assert.Zero(t, ledger.writes)
}

func TestIncrement_ConcurrentCallsLoseNothing(t *testing.T) {
	userID := uuid.New()
	ledger := newMemLedger()
	svc := NewService(&fakeSubs{byUser: map[uuid.UUID]*subscriptions.Subscription{userID: activeSub(userID)}}, ledger, nil, testLimits)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Increment(context.Background(), userID, KindResume)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entry, err := ledger.Get(context.Background(), userID, periodStart, periodEnd)
	require.NoError(t, err)
	assert.Equal(t, n, entry.ResumesUsed)
}

func TestIncrement_PublishesEvent(t *testing.T) {
	userID := uuid.New()
	pub := &recordingPublisher{}
	svc := NewService(&fakeSubs{byUser: map[uuid.UUID]*subscriptions.Subscription{userID: activeSub(userID)}}, newMemLedger(), pub, testLimits)

	_, err := svc.Increment(context.Background(), userID, KindInterview)
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	e := pub.events[0]
	assert.Equal(t, userID, e.UserID)
	assert.Equal(t, "interview", e.Kind)
	assert.Equal(t, 1, e.Used)
	assert.Equal(t, 10, e.Limit)
	assert.True(t, e.PeriodStart.Equal(periodStart))
}

func TestIncrement_PublishFailureIsNotReturned(t *testing.T) {
	userID := uuid.New()
	pub := &recordingPublisher{err: errors.New("nats down")}
	svc := NewService(&fakeSubs{byUser: map[uuid.UUID]*subscriptions.Subscription{userID: activeSub(userID)}}, newMemLedger(), pub, testLimits)

	result, err := svc.Increment(context.Background(), userID, KindResume)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Used)
}

func TestIncrement_RejectsUnknownKind(t *testing.T) {
	userID := uuid.New()
	ledger := newMemLedger()
	pub := &recordingPublisher{}
	svc := NewService(&fakeSubs{byUser: map[uuid.UUID]*subscriptions.Subscription{userID: activeSub(userID)}}, ledger, pub, testLimits)

	for _, kind := range []Kind{"cover_letter", "", "Resume"} {
		result, err := svc.Increment(context.Background(), userID, kind)
		require.ErrorIs(t, err, ErrUnknownKind, "kind %q", kind)
		assert.Nil(t, result)
	}

	assert.Zero(t, ledger.writes)
	assert.Empty(t, ledger.entries)
	assert.Empty(t, pub.events)
}

func TestIncrement_Faults(t *testing.T) {
	userID := uuid.New()

	t.Run("subscription lookup", func(t *testing.T) {
		svc := NewService(&fakeSubs{err: errors.New("db down")}, newMemLedger(), nil, testLimits)
		_, err := svc.Increment(context.Background(), userID, KindResume)
		assert.Error(t, err)
	})

	t.Run("ledger write", func(t *testing.T) {
		ledger := newMemLedger()
		ledger.err = errors.New("db down")
		svc := NewService(&fakeSubs{byUser: map[uuid.UUID]*subscriptions.Subscription{userID: activeSub(userID)}}, ledger, nil, testLimits)
		_, err := svc.Increment(context.Background(), userID, KindResume)
		assert.Error(t, err)
	})
}

func TestCurrent(t *testing.T) {
	userID := uuid.New()
	ledger := newMemLedger()
	svc := NewService(&fakeSubs{byUser: map[uuid.UUID]*subscriptions.Subscription{userID: activeSub(userID)}}, ledger, nil, testLimits)

	t.Run("missing entry reads as zero without creating one", func(t *testing.T) {
		current, err := svc.Current(context.Background(), userID)
		require.NoError(t, err)
		require.NotNil(t, current.Usage)
		assert.Equal(t, Counter{Used: 0, Limit: 100}, current.Usage.Resumes)
		assert.Equal(t, Counter{Used: 0, Limit: 10}, current.Usage.Interviews)
		assert.Empty(t, ledger.entries)
	})

	t.Run("existing entry", func(t *testing.T) {
		ledger.seed(userID, periodStart, periodEnd, 99, 3)
		current, err := svc.Current(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 99, current.Usage.Resumes.Used)
		assert.Equal(t, 3, current.Usage.Interviews.Used)
		assert.True(t, current.PeriodEnd.Equal(periodEnd))
	})

	t.Run("other period is ignored", func(t *testing.T) {
		other := uuid.New()
		ledger.seed(other, periodStart.AddDate(0, -1, 0), periodStart, 40, 4)
		svc := NewService(&fakeSubs{byUser: map[uuid.UUID]*subscriptions.Subscription{other: activeSub(other)}}, ledger, nil, testLimits)
		current, err := svc.Current(context.Background(), other)
		require.NoError(t, err)
		assert.Zero(t, current.Usage.Resumes.Used)
	})

	t.Run("free user", func(t *testing.T) {
		current, err := svc.Current(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Equal(t, subscriptions.PlanFreeBYOK, current.Plan)
		assert.Nil(t, current.Usage)
	})
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("resume")
	require.NoError(t, err)
	assert.Equal(t, KindResume, k)

	_, err = ParseKind("Resume")
	assert.Error(t, err)
	_, err = ParseKind("")
	assert.Error(t, err)
}
