package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind tells a caller whether retrying can help.
type ErrorKind string

const (
	// KindUnauthenticated means the credential was missing or rejected.
	KindUnauthenticated ErrorKind = "unauthenticated"
	// KindInvalid means the request itself was malformed.
	KindInvalid ErrorKind = "invalid"
	// KindInternal means the server failed; a retry may succeed.
	KindInternal ErrorKind = "internal"
	// KindTransport means no usable response was received.
	KindTransport ErrorKind = "transport"
)

// Error is returned by every Client call that does not succeed.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request could succeed later.
func (e *Error) Retryable() bool {
	return e.Kind == KindInternal || e.Kind == KindTransport
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthenticated
	case status >= 400 && status < 500 && status != http.StatusTooManyRequests:
		return KindInvalid
	default:
		return KindInternal
	}
}
