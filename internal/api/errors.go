package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Sentinel and typed errors for transport-level reporting.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrOffline      = errors.New("offline")
)

// RateLimitedError includes optional retry-after seconds.
type RateLimitedError struct {
	RetryAfterSeconds int
	Remote            ErrorBody
}

func (e RateLimitedError) Error() string {
	if e.RetryAfterSeconds > 0 {
		return fmt.Sprintf("rate limited, retry after %ds: %s", e.RetryAfterSeconds, e.Remote.Message)
	}
	return fmt.Sprintf("rate limited: %s", e.Remote.Message)
}

// RemoteError wraps non-specific remote errors with status code and optional request ID.
type RemoteError struct {
	StatusCode int
	Remote     ErrorBody
}

func (e RemoteError) Error() string {
	if e.Remote.RequestID != nil && *e.Remote.RequestID != "" {
		return fmt.Sprintf("remote error %d (%s): %s [request_id=%s]", e.StatusCode, e.Remote.Error, e.Remote.Message, *e.Remote.RequestID)
	}
	if e.Remote.Error != "" {
		return fmt.Sprintf("remote error %d (%s): %s", e.StatusCode, e.Remote.Error, e.Remote.Message)
	}
	return fmt.Sprintf("remote error %d", e.StatusCode)
}

// handleHTTPError processes common HTTP error status codes and returns appropriate errors.
// It consumes the response body and returns an error for non-success status codes.
func handleHTTPError(resp *http.Response) error {
	var e ErrorBody
	_ = decodeJSON(resp.Body, &e)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, e.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, e.Message)
	case http.StatusTooManyRequests:
		retryAfter := 0
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if v, err := strconv.Atoi(ra); err == nil {
				retryAfter = v
			}
		}
		return RateLimitedError{RetryAfterSeconds: retryAfter, Remote: e}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrValidation, e.Message)
	default:
		return RemoteError{StatusCode: resp.StatusCode, Remote: e}
	}
}
