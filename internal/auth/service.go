// Package auth registers users and opens and closes sessions against the
// tracker backend's users resource.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/cuongbtq/job-tracker/internal/events"
	"github.com/cuongbtq/job-tracker/internal/session"
)

// UsersAPI is the part of the backend auth needs
type UsersAPI interface {
	FindUsersByUsername(ctx context.Context, username string) ([]domain.User, error)
	CreateUser(ctx context.Context, creds domain.Credentials) (*domain.User, error)
}

// Service handles registration, login and logout
type Service struct {
	users    UsersAPI
	sessions session.Store
	emitter  events.Emitter
	ttl      time.Duration
	logger   *slog.Logger
}

// NewService creates a Service. A nil emitter drops session events.
func NewService(users UsersAPI, sessions session.Store, emitter events.Emitter, ttl time.Duration, logger *slog.Logger) *Service {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &Service{
		users:    users,
		sessions: sessions,
		emitter:  emitter,
		ttl:      ttl,
		logger:   logger,
	}
}

// ValidateRegistration checks the minimum username and password lengths
func ValidateRegistration(creds domain.Credentials) error {
	if len(strings.TrimSpace(creds.Username)) < domain.UsernameMinLength {
		return domain.NewValidationError("username", fmt.Sprintf("must be at least %d characters", domain.UsernameMinLength))
	}
	if len(creds.Password) < domain.PasswordMinLength {
		return domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", domain.PasswordMinLength))
	}
	return nil
}

func validateLogin(creds domain.Credentials) error {
	if strings.TrimSpace(creds.Username) == "" {
		return domain.NewValidationError("username", "is required")
	}
	if creds.Password == "" {
		return domain.NewValidationError("password", "is required")
	}
	return nil
}

// Register creates a new user. It fails with ErrUsernameTaken when the username
// is already registered.
func (s *Service) Register(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if err := ValidateRegistration(creds); err != nil {
		return nil, err
	}

	existing, err := s.users.FindUsersByUsername(ctx, creds.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if len(existing) > 0 {
		s.logger.Info("Registration rejected, username taken",
			slog.String("username", creds.Username),
		)
		return nil, domain.ErrUsernameTaken
	}

	user, err := s.users.CreateUser(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered",
		slog.String("user_id", user.ID.String()),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login opens a session. A known username must match its password; an unknown
// username is created on the fly.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (*session.Session, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if err := validateLogin(creds); err != nil {
		return nil, err
	}

	user, err := s.resolveUser(ctx, creds)
	if err != nil {
		return nil, err
	}
	if user.ID.IsZero() {
		return nil, fmt.Errorf("backend returned user without id: %w", domain.ErrNotAuthenticated)
	}

	sess := session.New(user, s.ttl)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.emitter.Emit(events.NewSessionEvent(events.TypeSessionCreated, sess.User))
	s.logger.Info("User logged in",
		slog.String("user_id", user.ID.String()),
		slog.String("username", user.Username),
	)
	return sess, nil
}

func (s *Service) resolveUser(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	existing, err := s.users.FindUsersByUsername(ctx, creds.Username)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to look up user: %w", err)
	}

	for _, user := range existing {
		if user.Password == creds.Password {
			return user, nil
		}
	}
	if len(existing) > 0 {
		s.logger.Warn("Login rejected, password mismatch",
			slog.String("username", creds.Username),
		)
		return domain.User{}, domain.ErrInvalidCredentials
	}

	created, err := s.users.CreateUser(ctx, creds)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return *created, nil
}

// Authenticate returns the live session for token
func (s *Service) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}

	sess, err := s.sessions.Get(ctx, token)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, domain.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// Logout destroys the session for token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	sess, err := s.sessions.Get(ctx, token)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err := s.sessions.Delete(ctx, token); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.emitter.Emit(events.NewSessionEvent(events.TypeSessionDestroyed, sess.User))
	s.logger.Info("User logged out",
		slog.String("user_id", sess.User.ID.String()),
	)
	return nil
}
