package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response to the completion request.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Error code: %d - %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another connection attempt.
func (e *APIError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}

// StreamError is a failure after the stream was established.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return "stream interrupted: " + e.Err.Error()
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// ErrIdleTimeout is reported when the provider sends nothing for longer
// than the idle timeout.
var ErrIdleTimeout = errors.New("no data received from provider")

// ProviderError is an error object sent in-band on an open stream.
type ProviderError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (e *ProviderError) Error() string {
	if e.Type != "" {
		return e.Type + ": " + e.Message
	}
	return e.Message
}
