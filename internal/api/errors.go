package api

import (
	"errors"
	"net/http"
)

// AppError is an error that knows its HTTP status. Clients map the status back
// to a kind: 401 unauthenticated, 400 invalid input, anything else internal.
type AppError struct {
	Code    int
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest       = Invalid("bad request")
	ErrUnauthorized     = &AppError{Code: http.StatusUnauthorized, Message: "unauthorized"}
	ErrInvalidToken     = &AppError{Code: http.StatusUnauthorized, Message: "invalid or expired token"}
	ErrInternalServer   = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
	ErrInvalidUsageType = Invalid(`type must be "resume" or "interview"`)
	ErrInvalidProvider  = Invalid("unsupported api key provider")
)

// Invalid reports a request the caller must fix before retrying.
func Invalid(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NotFound(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

// HandleError writes err as {"error": msg}. Errors that are not an AppError
// never leak their text and are reported as internal.
func HandleError(w http.ResponseWriter, err error) {
	appErr := ErrInternalServer
	errors.As(err, &appErr)
	write(w, appErr.Code, errorBody{Error: appErr.Message})
}
