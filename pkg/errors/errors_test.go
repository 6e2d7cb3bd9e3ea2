package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorWrapsSentinel(t *testing.T) {
	err := New(ErrDocumentNotFound, http.StatusNotFound, "document missing")
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatal("AppError does not unwrap to its sentinel")
	}
	if err.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", err.StatusCode)
	}
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "field %q too long", "title")
	if err.Message != `field "title" too long` {
		t.Fatalf("message = %q", err.Message)
	}
}

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrDocumentNotFound, http.StatusNotFound},
		{ErrDocumentExists, http.StatusConflict},
		{ErrPersistence, http.StatusInternalServerError},
		{ErrSnapshotCorrupt, http.StatusInternalServerError},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrRateLimited, http.StatusTooManyRequests},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatusCode(tc.err); got != tc.want {
			t.Errorf("HTTPStatusCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestHTTPStatusCodeUnwrapsChains(t *testing.T) {
	wrapped := fmt.Errorf("saving snapshot: %w", ErrPersistence)
	if got := HTTPStatusCode(wrapped); got != http.StatusInternalServerError {
		t.Fatalf("status = %d", got)
	}
	doubly := fmt.Errorf("handler: %w", fmt.Errorf("index: %w", ErrDocumentNotFound))
	if got := HTTPStatusCode(doubly); got != http.StatusNotFound {
		t.Fatalf("status = %d", got)
	}
}
