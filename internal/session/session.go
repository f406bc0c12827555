// Package session holds the explicit login session that replaces ambient auth
// context. A Session is created at login and destroyed at logout.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown, destroyed or expired sessions
var ErrSessionNotFound = errors.New("session not found")

// Session is an authenticated user's session
type Session struct {
	Token     string      `json:"token"`
	User      domain.User `json:"user"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// New creates a session for user valid for ttl. A zero ttl never expires.
// The password is not retained.
func New(user domain.User, ttl time.Duration) *Session {
	now := time.Now().UTC()
	user.Password = ""

	s := &Session{
		Token:     uuid.NewString(),
		User:      user,
		CreatedAt: now,
	}
	if ttl > 0 {
		s.ExpiresAt = now.Add(ttl)
	}
	return s
}

// UserID returns the owner identifier of the session
func (s *Session) UserID() domain.ID {
	if s == nil {
		return domain.ID{}
	}
	return s.User.ID
}

// Expired reports whether the session is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Owns reports whether job belongs to the session user
func (s *Session) Owns(job domain.Job) bool {
	return job.OwnedBy(s.UserID())
}

// Store persists sessions between requests
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}
