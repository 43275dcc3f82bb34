package usage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careercoach/coach/internal/subscriptions"
)

// Kind is a billable action.
type Kind string

const (
	KindResume    Kind = "resume"
	KindInterview Kind = "interview"
)

// ErrUnknownKind is returned for anything other than resume or interview.
var ErrUnknownKind = errors.New("unknown usage kind")

// ParseKind accepts exactly "resume" or "interview".
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindResume, KindInterview:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKind, s)
}

// CounterField is the ledger column, also used as the response field name.
func (k Kind) CounterField() string {
	if k == KindInterview {
		return "interviews_used"
	}
	return "resumes_used"
}

// LedgerEntry matches the usage_ledger table schema. One row per user and
// billing period.
type LedgerEntry struct {
	UserID         uuid.UUID `json:"user_id"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
	ResumesUsed    int       `json:"resumes_used"`
	InterviewsUsed int       `json:"interviews_used"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Used returns the counter for kind.
func (e *LedgerEntry) Used(kind Kind) int {
	if e == nil {
		return 0
	}
	if kind == KindInterview {
		return e.InterviewsUsed
	}
	return e.ResumesUsed
}

// Counter is a used/limit pair.
type Counter struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// Allows reports whether one more action fits in the limit.
func (c Counter) Allows() bool {
	return c.Used < c.Limit
}

// Summary is the usage section of an entitlement decision.
type Summary struct {
	Resumes    Counter `json:"resumes"`
	Interviews Counter `json:"interviews"`
}

// IncrementResult is the outcome of recording one billable action.
type IncrementResult struct {
	Plan    subscriptions.Plan
	Kind    Kind
	Metered bool
	Used    int
	Limit   int
}

// CurrentUsage is the current-period view for GET /usage.
type CurrentUsage struct {
	Plan        subscriptions.Plan `json:"plan"`
	PeriodStart *time.Time         `json:"period_start,omitempty"`
	PeriodEnd   *time.Time         `json:"period_end,omitempty"`
	Usage       *Summary           `json:"usage"`
}
