package providers

import (
	"errors"
	"fmt"
	"net/http"
)

const maxErrorBody = 512

// RetryableError is a transient failure: HTTP 429, any 5xx, or a transport error.
type RetryableError struct {
	StatusCode int
	Header     http.Header
	Body       string
	Err        error
}

func (e *RetryableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retryable error: %v", e.Err)
	}
	return fmt.Sprintf("retryable API error (status %d): %s", e.StatusCode, truncate(e.Body))
}

func (e *RetryableError) Unwrap() error { return e.Err }

// FatalQuotaError means the account's quota is exhausted. It is never retried.
type FatalQuotaError struct {
	StatusCode int
	Body       string
}

func (e *FatalQuotaError) Error() string {
	return fmt.Sprintf("quota exhausted (status %d): %s", e.StatusCode, truncate(e.Body))
}

// FatalAPIError is any other non-success response. It is never retried.
type FatalAPIError struct {
	StatusCode int
	Body       string
}

func (e *FatalAPIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, truncate(e.Body))
}

// RetriesExhaustedError is returned once every attempt failed with a RetryableError.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Last }

type authError struct {
	message string
}

func (e *authError) Error() string {
	return "authentication error: " + e.message
}

// IsAuthError reports whether err is a missing credential or a 401/403 response.
func IsAuthError(err error) bool {
	var ae *authError
	if errors.As(err, &ae) {
		return true
	}
	var fe *FatalAPIError
	if errors.As(err, &fe) {
		return fe.StatusCode == http.StatusUnauthorized || fe.StatusCode == http.StatusForbidden
	}
	return false
}

// IsQuotaError reports whether err carries a FatalQuotaError.
func IsQuotaError(err error) bool {
	var qe *FatalQuotaError
	return errors.As(err, &qe)
}

// IsRetriesExhausted reports whether err carries a RetriesExhaustedError.
func IsRetriesExhausted(err error) bool {
	var re *RetriesExhaustedError
	return errors.As(err, &re)
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
