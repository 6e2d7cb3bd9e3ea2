// Package errors defines the failure taxonomy shared by the index core and
// the HTTP layer: sentinel errors for each failure kind plus an AppError
// wrapper that carries a message and HTTP status code.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput covers rejected input: empty content, empty or
	// whitespace-only queries, and content that tokenizes to nothing.
	ErrInvalidInput = errors.New("invalid input")

	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentExists   = errors.New("document already exists")

	// ErrPersistence covers I/O failures during snapshot save or load.
	ErrPersistence = errors.New("persistence failure")

	// ErrSnapshotCorrupt is returned when the snapshot and every backup
	// fail to deserialize. It is distinct from the no-snapshot start
	// state, which is not an error.
	ErrSnapshotCorrupt = errors.New("snapshot corrupt")

	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrInternal     = errors.New("internal error")
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

// HTTPStatusCode maps an error to the status code the transport layer
// should return. Bad input, missing documents, and storage failures stay
// distinct so the handler never masks one failure kind as another.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDocumentExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrPersistence), errors.Is(err, ErrSnapshotCorrupt):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
