package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by Client wraps exactly one of these,
// so callers branch with errors.Is.
var (
	ErrAuth       = errors.New("not authenticated")
	ErrNetwork    = errors.New("network error")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.Status, e.Message)
}

// Unwrap maps the HTTP status onto an error kind.
func (e *Error) Unwrap() error {
	return kindForStatus(e.Status)
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrAuth
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 400 && status < 500:
		return ErrBadRequest
	default:
		return ErrNetwork
	}
}

// transportError marks a failure before any response was read.
type transportError struct {
	op  string
	err error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.op, e.err)
}

func (e *transportError) Unwrap() []error {
	return []error{ErrNetwork, e.err}
}

// UserMessage returns the text a view should show for err. Server
// messages are surfaced verbatim.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, ErrAuth):
		return "Session expired, please log in again"
	case errors.Is(err, ErrNetwork):
		return "Network error, press r to retry"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	}
	return err.Error()
}
