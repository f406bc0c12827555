package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// APIError is the single error shape returned by every Client operation.
// Status is 0 when no response was received.
type APIError struct {
	Message string          `json:"message"`
	Status  int             `json:"status,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Err     error           `json:"-"`
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status, or 0 for transport failures
func (e *APIError) StatusCode() int {
	return e.Status
}

// IsNotFound reports whether the backend answered 404
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// Message extracts a user-facing message from err, or fallback when err carries none
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// normalizeTransportError maps a failed round trip into an APIError
func (c *Client) normalizeTransportError(err error) *APIError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &APIError{
			Message: fmt.Sprintf("timeout of %dms exceeded", c.timeout.Milliseconds()),
			Err:     err,
		}
	case errors.Is(err, context.Canceled):
		return &APIError{Message: "request canceled", Err: err}
	default:
		return &APIError{Message: "network error: " + rootCause(err), Err: err}
	}
}

// normalizeStatusError maps a non-2xx response into an APIError carrying its body
func normalizeStatusError(status int, body []byte) *APIError {
	return &APIError{
		Message: fmt.Sprintf("request failed with status code %d", status),
		Status:  status,
		Data:    payload(body),
	}
}

// payload keeps JSON bodies as-is and wraps anything else as a JSON string
func payload(body []byte) json.RawMessage {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	quoted, err := json.Marshal(trimmed)
	if err != nil {
		return nil
	}
	return quoted
}

func rootCause(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
