package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Sentinel errors for provider operations.
var (
	// ErrDisabled indicates AI features are switched off.
	ErrDisabled = errors.New("AI features are disabled")

	// ErrNotConfigured indicates required connection details are missing.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrUnavailable indicates the backend could not be reached.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrRateLimited indicates an HTTP 429 response.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrClientError indicates a 4xx response other than 429.
	ErrClientError = errors.New("provider rejected request")

	// ErrServerError indicates a 5xx response.
	ErrServerError = errors.New("provider server error")

	// ErrEmptyResponse indicates a successful status with no generated text.
	ErrEmptyResponse = errors.New("empty response from provider")

	// ErrMalformedResponse indicates a body that did not match the expected shape.
	ErrMalformedResponse = errors.New("malformed response from provider")
)

// maxErrorBodySize caps how much of an error response body is read.
const maxErrorBodySize = 4096

// IsConfigError reports whether err was detected before any network call.
// Such errors are surfaced to the user and never retried.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrDisabled) || errors.Is(err, ErrNotConfigured)
}

// IsRetryable reports whether a later call might succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, ErrUnavailable)
}

// statusError maps a non-2xx response to a sentinel, including a bounded
// excerpt of the body.
func statusError(name string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	msg := strings.TrimSpace(string(b))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w: %s", name, ErrRateLimited, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s error %d: %w: %s", name, resp.StatusCode, ErrServerError, msg)
	default:
		return fmt.Errorf("%s error %d: %w: %s", name, resp.StatusCode, ErrClientError, msg)
	}
}

// transportError wraps a failed round trip. Context errors pass through.
func transportError(name string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s request failed: %w: %w", name, ErrUnavailable, err)
}
