// Package errors defines the sentinel errors shared by the index engine, the
// command-line tools and the HTTP services, plus an AppError wrapper that
// carries an HTTP status code.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Index engine failures. Corrupt or short index files wrap ErrTruncated or
// ErrChecksum; callers match them with errors.Is.
var (
	ErrIO         = errors.New("i/o failure")
	ErrTruncated  = errors.New("truncated index data")
	ErrChecksum   = errors.New("index checksum mismatch")
	ErrUnknownTag = errors.New("unknown tag")
	ErrParse      = errors.New("parse failure")
	ErrNotReady   = errors.New("index not ready")
)

// Service-level failures.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrInternal     = errors.New("internal error")
	ErrTimeout      = errors.New("operation timed out")
	ErrUnavailable  = errors.New("dependency unavailable")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
