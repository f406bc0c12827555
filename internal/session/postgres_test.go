package session

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database only when TRACKER_TEST_POSTGRES_DSN is set
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TRACKER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TRACKER_TEST_POSTGRES_DSN not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	store := NewPostgresStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, store.Migrate(ctx))

	s := New(domain.User{ID: domain.NumericID(8), Username: "alice"}, time.Hour)
	require.NoError(t, store.Save(ctx, s))
	defer store.Delete(ctx, s.Token)

	got, err := store.Get(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.User.Username)
	assert.True(t, got.UserID().Equal(domain.NumericID(8)))

	require.NoError(t, store.Delete(ctx, s.Token))
	_, err = store.Get(ctx, s.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	expired := New(domain.User{ID: domain.NumericID(9)}, time.Millisecond)
	require.NoError(t, store.Save(ctx, expired))
	time.Sleep(10 * time.Millisecond)

	_, err = store.Get(ctx, expired.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	n, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
}
