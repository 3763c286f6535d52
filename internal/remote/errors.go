// Package remote normalizes the GitHub and Gitee repository-contents APIs
// behind one file-operation contract: get, put, delete, list. Provider
// divergence — base URLs, create semantics, delete parameter style — is
// absorbed here so the sync engine never sees which dialect is active.
package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status classification.
// Use errors.Is(err, remote.ErrNotFound) to check.
var (
	ErrBadRequest    = errors.New("remote: bad request")
	ErrUnauthorized  = errors.New("remote: unauthorized")
	ErrForbidden     = errors.New("remote: forbidden")
	ErrNotFound      = errors.New("remote: not found")
	ErrConflict      = errors.New("remote: revision conflict")
	ErrUnprocessable = errors.New("remote: unprocessable request")
	ErrThrottled     = errors.New("remote: throttled")
	ErrServerError   = errors.New("remote: server error")
)

// ErrNoConfig is returned when an operation runs without saved credentials.
var ErrNoConfig = errors.New("remote: no credentials configured")

// APIError wraps a sentinel error with the HTTP status code and the raw
// API error message body for debugging.
type APIError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnprocessableEntity:
		return ErrUnprocessable
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isNotFound reports whether err represents a missing remote file.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
