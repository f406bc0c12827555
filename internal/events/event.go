// Package events publishes tracker activity (job mutations and session lifecycle)
// so other tools can follow a user's tracker without polling the backend.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/google/uuid"
)

// Type names an event
type Type string

const (
	TypeJobCreated       Type = "job.created"
	TypeJobUpdated       Type = "job.updated"
	TypeJobDeleted       Type = "job.deleted"
	TypeSessionCreated   Type = "session.created"
	TypeSessionDestroyed Type = "session.destroyed"
)

// RoutingKeyPrefix prefixes every event type on the exchange
const RoutingKeyPrefix = "tracker."

// ErrInvalidPayload is returned when a message body is not an event
var ErrInvalidPayload = errors.New("invalid event payload")

// Event is one tracker activity record
type Event struct {
	ID         string      `json:"id"`
	Type       Type        `json:"type"`
	UserID     domain.ID   `json:"userId,omitzero"`
	Username   string      `json:"username,omitempty"`
	JobID      domain.ID   `json:"jobId,omitzero"`
	Job        *domain.Job `json:"job,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// NewJobEvent records a mutation of job by userID
func NewJobEvent(t Type, userID domain.ID, job domain.Job) Event {
	e := newEvent(t)
	e.UserID = userID
	e.JobID = job.ID
	if t != TypeJobDeleted {
		e.Job = &job
	}
	return e
}

// NewSessionEvent records a login or logout of user
func NewSessionEvent(t Type, user domain.User) Event {
	e := newEvent(t)
	e.UserID = user.ID
	e.Username = user.Username
	return e
}

func newEvent(t Type) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
	}
}

// RoutingKey returns the key the event is published under
func (e Event) RoutingKey() string {
	return RoutingKeyPrefix + string(e.Type)
}

// Decode parses a published event
func Decode(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrInvalidPayload)
	}
	return e, nil
}

// Publisher delivers events to their destination
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Emitter accepts events without blocking the caller
type Emitter interface {
	Emit(e Event)
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Emit(Event) {}

// RetryableError wraps transient publish failures worth another attempt
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is worth retrying
func IsRetryable(err error) bool {
	var retryable *RetryableError
	return errors.As(err, &retryable)
}
