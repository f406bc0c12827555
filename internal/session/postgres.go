package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/jmoiron/sqlx"
)

const createSessionsTable = `
	CREATE TABLE IF NOT EXISTS sessions (
		token       TEXT PRIMARY KEY,
		user_data   JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		expires_at  TIMESTAMPTZ NULL
	)
`

type sessionRow struct {
	Token     string       `db:"token"`
	UserData  []byte       `db:"user_data"`
	CreatedAt time.Time    `db:"created_at"`
	ExpiresAt sql.NullTime `db:"expires_at"`
}

// PostgresStore keeps sessions in PostgreSQL so they survive restarts of the web
// service
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStore creates a PostgresStore on db
func NewPostgresStore(db *sqlx.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the sessions table when missing
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

func (p *PostgresStore) Save(ctx context.Context, s *Session) error {
	userData, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("failed to encode session user: %w", err)
	}

	row := sessionRow{
		Token:     s.Token,
		UserData:  userData,
		CreatedAt: s.CreatedAt,
		ExpiresAt: sql.NullTime{Time: s.ExpiresAt, Valid: !s.ExpiresAt.IsZero()},
	}

	query := `
		INSERT INTO sessions (token, user_data, created_at, expires_at)
		VALUES (:token, :user_data, :created_at, :expires_at)
		ON CONFLICT (token) DO UPDATE
		SET user_data = EXCLUDED.user_data,
		    expires_at = EXCLUDED.expires_at
	`
	if _, err := p.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, token string) (*Session, error) {
	query := `
		SELECT token, user_data, created_at, expires_at
		FROM sessions
		WHERE token = $1
		  AND (expires_at IS NULL OR expires_at > NOW())
	`

	var row sessionRow
	if err := p.db.GetContext(ctx, &row, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(row.UserData, &user); err != nil {
		return nil, fmt.Errorf("failed to decode session user: %w", err)
	}

	s := &Session{
		Token:     row.Token,
		User:      user,
		CreatedAt: row.CreatedAt,
	}
	if row.ExpiresAt.Valid {
		s.ExpiresAt = row.ExpiresAt.Time
	}
	return s, nil
}

func (p *PostgresStore) Delete(ctx context.Context, token string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// PurgeExpired removes expired sessions and returns how many were deleted
func (p *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		p.logger.Info("Purged expired sessions", slog.Int64("count", n))
	}
	return n, nil
}
