package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/job-tracker/internal/apiclient"
	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/cuongbtq/job-tracker/internal/events"
	"github.com/cuongbtq/job-tracker/internal/session"
	"github.com/cuongbtq/job-tracker/internal/testutil/fakebackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEmitter) Emit(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Type
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestService(t *testing.T) (*Service, *fakebackend.Backend, *recordingEmitter) {
	t.Helper()

	backend := fakebackend.New()
	t.Cleanup(backend.Close)

	client, err := apiclient.NewClient(apiclient.Config{BaseURL: backend.URL(), Timeout: 2 * time.Second})
	require.NoError(t, err)

	emitter := &recordingEmitter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(client, session.NewMemoryStore(), emitter, time.Hour, logger), backend, emitter
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name      string
		creds     domain.Credentials
		wantField string
	}{
		{name: "valid", creds: domain.Credentials{Username: "bob", Password: "secret"}},
		{name: "short username", creds: domain.Credentials{Username: "bo", Password: "secret"}, wantField: "username"},
		{name: "blank padded username", creds: domain.Credentials{Username: "  b  ", Password: "secret"}, wantField: "username"},
		{name: "short password", creds: domain.Credentials{Username: "bob", Password: "12345"}, wantField: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistration(tt.creds)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestService_Register(t *testing.T) {
	svc, backend, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.Credentials{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.False(t, user.ID.IsZero())
	assert.Equal(t, "alice", user.Username)

	_, err = svc.Register(ctx, domain.Credentials{Username: "alice", Password: "another"})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
	assert.Len(t, backend.Users(), 1)
	assert.Equal(t, 1, backend.CountRequests(http.MethodPost, "/users"))
}

func TestService_RegisterValidationSkipsBackend(t *testing.T) {
	svc, backend, _ := newTestService(t)

	_, err := svc.Register(context.Background(), domain.Credentials{Username: "al", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, backend.Requests())
}

func TestService_RegisterBackendFailure(t *testing.T) {
	svc, backend, _ := newTestService(t)
	backend.FailWith(http.MethodPost, "/users", http.StatusInternalServerError, `{"error":"down"}`)

	_, err := svc.Register(context.Background(), domain.Credentials{Username: "alice", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, "request failed with status code 500", apiclient.Message(err, domain.MsgRegisterFailed))
}

func TestService_Login(t *testing.T) {
	svc, backend, emitter := newTestService(t)
	ctx := context.Background()
	existing := backend.AddUser("alice", "secret1")

	sess, err := svc.Login(ctx, domain.Credentials{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.True(t, sess.UserID().Equal(existing.ID))
	assert.Empty(t, sess.User.Password)
	assert.Equal(t, 0, backend.CountRequests(http.MethodPost, "/users"))

	loaded, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.Token, loaded.Token)

	assert.Equal(t, []events.Type{events.TypeSessionCreated}, emitter.types())
}

func TestService_LoginCreatesUnknownUser(t *testing.T) {
	svc, backend, _ := newTestService(t)

	sess, err := svc.Login(context.Background(), domain.Credentials{Username: "newbie", Password: "pw"})
	require.NoError(t, err)
	assert.False(t, sess.UserID().IsZero())
	assert.Equal(t, 1, backend.CountRequests(http.MethodPost, "/users"))
	require.Len(t, backend.Users(), 1)
	assert.Equal(t, "newbie", backend.Users()[0].Username)
}

func TestService_LoginFailures(t *testing.T) {
	tests := []struct {
		name    string
		creds   domain.Credentials
		setup   func(b *fakebackend.Backend)
		wantErr error
	}{
		{
			name:    "wrong password",
			creds:   domain.Credentials{Username: "alice", Password: "nope"},
			setup:   func(b *fakebackend.Backend) { b.AddUser("alice", "secret1") },
			wantErr: domain.ErrInvalidCredentials,
		},
		{
			name:    "missing username",
			creds:   domain.Credentials{Password: "secret1"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "missing password",
			creds:   domain.Credentials{Username: "alice"},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, backend, emitter := newTestService(t)
			if tt.setup != nil {
				tt.setup(backend)
			}

			_, err := svc.Login(context.Background(), tt.creds)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, emitter.types())
		})
	}
}

func TestService_LoginBackendDown(t *testing.T) {
	svc, backend, _ := newTestService(t)
	backend.FailWith(http.MethodGet, "/users", http.StatusServiceUnavailable, "")

	_, err := svc.Login(context.Background(), domain.Credentials{Username: "alice", Password: "secret1"})
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode())
}

func TestService_Logout(t *testing.T) {
	svc, backend, emitter := newTestService(t)
	ctx := context.Background()
	backend.AddUser("alice", "secret1")

	sess, err := svc.Login(ctx, domain.Credentials{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sess.Token))

	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	require.NoError(t, svc.Logout(ctx, sess.Token), "logout is idempotent")
	assert.Equal(t, []events.Type{events.TypeSessionCreated, events.TypeSessionDestroyed}, emitter.types())
}

func TestService_AuthenticateEmptyToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}
