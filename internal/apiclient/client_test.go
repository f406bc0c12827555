package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/cuongbtq/job-tracker/internal/testutil/fakebackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, backend *fakebackend.Backend, opts ...Option) *Client {
	t.Helper()
	client, err := NewClient(Config{BaseURL: backend.URL(), Timeout: 2 * time.Second}, opts...)
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		wantBaseURL string
		wantTimeout time.Duration
	}{
		{name: "defaults", config: Config{}, wantBaseURL: DefaultBaseURL, wantTimeout: 10 * time.Second},
		{name: "trailing slash trimmed", config: Config{BaseURL: "http://api.test/", Timeout: time.Second}, wantBaseURL: "http://api.test", wantTimeout: time.Second},
		{name: "invalid url", config: Config{BaseURL: "::nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBaseURL, client.BaseURL())
			assert.Equal(t, tt.wantTimeout, client.http.Timeout)
		})
	}
}

func TestClient_JobLifecycle(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()

	client := newTestClient(t, backend)
	ctx := context.Background()
	owner := domain.NumericID(1)

	created, err := client.CreateJob(ctx, domain.Job{
		ID:          domain.NumericID(99),
		UserID:      owner,
		Company:     "Acme",
		Role:        "Eng",
		Status:      domain.JobStatusApplied,
		DateApplied: "2024-01-01",
	})
	require.NoError(t, err)
	assert.False(t, created.ID.IsZero())
	assert.Equal(t, "Acme", created.Company)

	reqs := backend.Requests()
	require.Len(t, reqs, 1)
	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(reqs[0].Body, &sent))
	assert.NotContains(t, sent, "id", "create must not send an id")
	assert.Equal(t, float64(1), sent["userId"])

	jobs, err := client.ListJobsByUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "userId=1", backend.Requests()[1].Query)

	got, err := client.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eng", got.Role)

	got.Status = domain.JobStatusInterviewed
	updated, err := client.UpdateJob(ctx, got.ID, *got)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusInterviewed, updated.Status)

	require.NoError(t, client.DeleteJob(ctx, created.ID))
	assert.Empty(t, backend.Jobs())

	empty, err := client.ListJobsByUser(ctx, owner)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestClient_Users(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()

	client := newTestClient(t, backend)
	ctx := context.Background()

	users, err := client.FindUsersByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, users)

	user, err := client.CreateUser(ctx, domain.Credentials{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.ID.IsZero())

	users, err = client.FindUsersByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].ID.Equal(user.ID))
}

func TestClient_ErrorNormalization(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()

	client := newTestClient(t, backend)
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		_, err := client.GetJob(ctx, domain.NumericID(404))

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode())
		assert.True(t, apiErr.IsNotFound())
		assert.Equal(t, "request failed with status code 404", apiErr.Message)
	})

	t.Run("server error keeps json payload", func(t *testing.T) {
		backend.FailWith(http.MethodDelete, "/jobs/5", http.StatusInternalServerError, `{"error":"boom"}`)
		defer backend.ClearFailures()

		err := client.DeleteJob(ctx, domain.NumericID(5))

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 500, apiErr.Status)
		assert.JSONEq(t, `{"error":"boom"}`, string(apiErr.Data))
	})

	t.Run("server error wraps text payload", func(t *testing.T) {
		backend.FailWith(http.MethodPost, "/users", http.StatusConflict, `already exists`)
		defer backend.ClearFailures()

		_, err := client.CreateUser(ctx, domain.Credentials{Username: "a", Password: "b"})

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, `"already exists"`, string(apiErr.Data))
	})

	t.Run("undecodable body", func(t *testing.T) {
		backend.FailWith(http.MethodGet, "/jobs", http.StatusOK, `not json`)
		defer backend.ClearFailures()

		_, err := client.ListJobsByUser(ctx, domain.NumericID(1))

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "failed to decode response", apiErr.Message)
	})
}

func TestClient_Timeout(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	backend.SetDelay(300 * time.Millisecond)

	client, err := NewClient(Config{BaseURL: backend.URL(), Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.GetJob(context.Background(), domain.NumericID(1))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.StatusCode())
	assert.Equal(t, "timeout of 50ms exceeded", apiErr.Message)
}

type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls++
	return http.DefaultTransport.RoundTrip(req)
}

func TestClient_WithHTTPClientKeepsCallerClient(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()

	transport := &countingTransport{}
	shared := &http.Client{Transport: transport, Timeout: time.Minute}

	client := newTestClient(t, backend, WithHTTPClient(shared))
	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, 2*time.Second, client.http.Timeout)

	_, err := client.ListJobsByUser(context.Background(), domain.NumericID(1))
	require.NoError(t, err)
	assert.Equal(t, 1, transport.calls)
}

func TestClient_NetworkError(t *testing.T) {
	backend := fakebackend.New()
	url := backend.URL()
	backend.Close()

	client, err := NewClient(Config{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	err = client.DeleteJob(context.Background(), domain.NumericID(1))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.Status)
	assert.Contains(t, apiErr.Message, "network error")
	assert.NotNil(t, errors.Unwrap(apiErr))
}

func TestClient_RequestEditor(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()

	var seen []string
	client := newTestClient(t, backend, WithRequestEditor(func(req *http.Request) error {
		seen = append(seen, req.Method+" "+req.URL.Path)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		return nil
	}))

	_, err := client.ListJobsByUser(context.Background(), domain.NumericID(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /jobs"}, seen)

	failing := newTestClient(t, backend, WithRequestEditor(func(*http.Request) error {
		return errors.New("no token")
	}))
	_, err = failing.ListJobsByUser(context.Background(), domain.NumericID(1))
	assert.Equal(t, "failed to prepare request", Message(err, ""))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "fallback", Message(errors.New("plain"), "fallback"))
	assert.Equal(t, "fallback", Message(nil, "fallback"))
	assert.Equal(t, "boom", Message(&APIError{Message: "boom"}, "fallback"))
}
