package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized matches any 401 that survived the refresh-and-replay.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRefreshFailed matches a failed token refresh. The session has been
	// cleared and the user must log in again.
	ErrRefreshFailed = errors.New("session refresh failed")

	// ErrNotFound matches a 404 from the backend.
	ErrNotFound = errors.New("not found")

	// ErrNoRefreshToken means a refresh was needed but none was stored.
	ErrNoRefreshToken = errors.New("no refresh token stored")

	// errSessionClosed is returned by the refresher while it is FAILED.
	errSessionClosed = errors.New("session closed")
)

const maxErrorBody = 64 << 10

// ValidationError is detected locally; no request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// APIError is a non-2xx response. Message is the server's own message when it
// sent one, otherwise a fallback describing the failed operation.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is lets callers match on ErrNotFound and ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// NetworkError means the request never produced a response: connection
// failure, timeout or cancellation.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RefreshError is returned to the caller whose request triggered a refresh
// that failed. It matches ErrRefreshFailed and ErrUnauthorized.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("session expired, please log in again: %v", e.Err)
}

func (e *RefreshError) Unwrap() []error {
	return []error{ErrRefreshFailed, ErrUnauthorized, e.Err}
}

// decodeError builds an APIError from a failed response. The body is read but
// not closed.
func decodeError(resp *http.Response, fallback string) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := fallback
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case strings.TrimSpace(payload.Error) != "":
			msg = payload.Error
		case strings.TrimSpace(payload.Message) != "":
			msg = payload.Message
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
