package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cuongbtq/job-tracker/internal/apiclient"
	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/cuongbtq/job-tracker/internal/events"
	"github.com/cuongbtq/job-tracker/internal/testutil/fakebackend"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newTestApp(t *testing.T, input string) (*app, *fakebackend.Backend, *bytes.Buffer) {
	t.Helper()

	backend := fakebackend.New()
	t.Cleanup(backend.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api, err := apiclient.NewClient(apiclient.Config{BaseURL: backend.URL(), Timeout: 2 * time.Second, Logger: logger})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	a := newApp(api, events.Nop{}, logger, out, strings.NewReader(input))
	a.creds = domain.Credentials{Username: "alice", Password: "secret1"}
	return a, backend, out
}

func seedJob(backend *fakebackend.Backend, owner domain.ID, company, role string, status domain.JobStatus, date string) domain.Job {
	return backend.AddJob(domain.Job{UserID: owner, Company: company, Role: role, Status: status, DateApplied: date})
}

func TestRun_Usage(t *testing.T) {
	a, _, _ := newTestApp(t, "")

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"frobnicate"}},
		{name: "show without id", args: []string{"show"}},
		{name: "edit without id", args: []string{"edit", "-status", "Rejected"}},
		{name: "edit without fields", args: []string{"edit", "1"}},
		{name: "delete without id", args: []string{"delete"}},
		{name: "list bad flag", args: []string{"list", "-bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.run(t.Context(), tt.args)
			assert.ErrorIs(t, err, errUsage)
		})
	}
}

func TestRegister(t *testing.T) {
	a, backend, out := newTestApp(t, "")

	require.NoError(t, a.run(t.Context(), []string{"register"}))
	assert.Contains(t, out.String(), domain.MsgRegisterSuccess)
	require.Len(t, backend.Users(), 1)

	err := a.run(t.Context(), []string{"register"})
	require.Error(t, err)
	assert.Equal(t, domain.MsgUsernameTaken, err.Error())
}

func TestLogin_WrongPassword(t *testing.T) {
	a, backend, _ := newTestApp(t, "")
	backend.AddUser("alice", "different")

	err := a.run(t.Context(), []string{"stats"})
	require.Error(t, err)
	assert.Equal(t, domain.MsgLoginFailed, err.Error())
}

func TestList(t *testing.T) {
	a, backend, out := newTestApp(t, "")
	alice := backend.AddUser("alice", "secret1")
	seedJob(backend, alice.ID, "Acme", "Eng", domain.JobStatusApplied, "2024-01-10")
	seedJob(backend, alice.ID, "Globex", "Dev", domain.JobStatusRejected, "2024-02-10")
	seedJob(backend, domain.NumericID(999), "Hidden", "Ops", domain.JobStatusApplied, "2024-03-10")

	tests := []struct {
		name    string
		args    []string
		order   []string
		missing []string
	}{
		{name: "newest first", args: []string{"list"}, order: []string{"Globex", "Acme"}, missing: []string{"Hidden"}},
		{name: "ascending", args: []string{"list", "-sort", "asc"}, order: []string{"Acme", "Globex"}},
		{name: "filtered", args: []string{"list", "-filter", "Rejected"}, order: []string{"Globex"}, missing: []string{"Acme"}},
		{name: "search", args: []string{"list", "-search", "ACM"}, order: []string{"Acme"}, missing: []string{"Globex"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			require.NoError(t, a.run(t.Context(), tt.args))

			text := out.String()
			assert.Contains(t, text, "COMPANY")
			last := -1
			for _, company := range tt.order {
				idx := strings.Index(text, company)
				require.GreaterOrEqual(t, idx, 0, company)
				assert.Greater(t, idx, last, "order of %s", company)
				last = idx
			}
			for _, company := range tt.missing {
				assert.NotContains(t, text, company)
			}
		})
	}

	t.Run("paged", func(t *testing.T) {
		out.Reset()
		require.NoError(t, a.run(t.Context(), []string{"list", "-page-size", "1"}))
		assert.Contains(t, out.String(), "Globex")
		assert.NotContains(t, out.String(), "Acme")
		assert.Contains(t, out.String(), "-cursor ")
	})
}

func TestList_Empty(t *testing.T) {
	a, _, out := newTestApp(t, "")

	require.NoError(t, a.run(t.Context(), []string{"list"}))
	assert.Equal(t, domain.MsgNoJobsFound+"\n", out.String())
}

func TestStats(t *testing.T) {
	a, backend, out := newTestApp(t, "")
	alice := backend.AddUser("alice", "secret1")
	seedJob(backend, alice.ID, "A", "r", domain.JobStatusApplied, "2024-01-01")
	seedJob(backend, alice.ID, "B", "r", domain.JobStatusApplied, "2024-01-02")
	seedJob(backend, alice.ID, "C", "r", domain.JobStatusRejected, "2024-01-03")

	require.NoError(t, a.run(t.Context(), []string{"stats"}))
	assert.Regexp(t, `Total\s+3`, out.String())
	assert.Regexp(t, `Applied\s+2`, out.String())
	assert.Regexp(t, `Interviewed\s+0`, out.String())
	assert.Regexp(t, `Rejected\s+1`, out.String())
}

func TestAddAndEdit(t *testing.T) {
	a, backend, out := newTestApp(t, "")

	require.NoError(t, a.run(t.Context(), []string{"add", "-company", "Acme", "-role", "Eng", "-date", "2024-03-01", "-duties", "build"}))
	assert.Contains(t, out.String(), domain.MsgJobAdded)

	jobs := backend.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "Acme", jobs[0].Company)
	assert.Equal(t, domain.JobStatusApplied, jobs[0].Status)
	assert.Equal(t, "build", jobs[0].Details.Duties)
	require.Len(t, backend.Users(), 1)
	assert.Equal(t, backend.Users()[0].ID, jobs[0].UserID)

	out.Reset()
	require.NoError(t, a.run(t.Context(), []string{"edit", jobs[0].ID.String(), "-status", "Interviewed"}))
	assert.Contains(t, out.String(), domain.MsgJobUpdated)

	jobs = backend.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobStatusInterviewed, jobs[0].Status)
	assert.Equal(t, "Acme", jobs[0].Company)
}

func TestAdd_Invalid(t *testing.T) {
	a, backend, _ := newTestApp(t, "")

	err := a.run(t.Context(), []string{"add", "-role", "Eng"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = a.run(t.Context(), []string{"add", "-company", "Acme", "-role", "Eng", "-status", "Ghosted"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, backend.CountRequests(http.MethodPost, "/jobs"))
}

func TestShow(t *testing.T) {
	a, backend, out := newTestApp(t, "")
	alice := backend.AddUser("alice", "secret1")
	mine := seedJob(backend, alice.ID, "Acme", "Eng", domain.JobStatusApplied, "2024-03-01")
	theirs := seedJob(backend, domain.NumericID(999), "Other", "Ops", domain.JobStatusApplied, "2024-03-01")

	require.NoError(t, a.run(t.Context(), []string{"show", mine.ID.String()}))
	assert.Regexp(t, `Company\s+Acme`, out.String())

	err := a.run(t.Context(), []string{"show", theirs.ID.String()})
	require.Error(t, err)
	assert.Equal(t, domain.MsgUnauthorized, err.Error())

	err = a.run(t.Context(), []string{"show", "4242"})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestDelete(t *testing.T) {
	a, backend, out := newTestApp(t, "n\n")
	alice := backend.AddUser("alice", "secret1")
	mine := seedJob(backend, alice.ID, "Acme", "Eng", domain.JobStatusApplied, "2024-03-01")
	theirs := seedJob(backend, domain.NumericID(999), "Other", "Ops", domain.JobStatusApplied, "2024-03-01")

	t.Run("foreign record", func(t *testing.T) {
		err := a.run(t.Context(), []string{"delete", theirs.ID.String(), "-yes"})
		require.Error(t, err)
		assert.Equal(t, domain.MsgUnauthorized, err.Error())
		assert.Equal(t, 0, backend.CountRequests(http.MethodDelete, "/jobs/"+theirs.ID.String()))
	})

	t.Run("declined", func(t *testing.T) {
		out.Reset()
		require.NoError(t, a.run(t.Context(), []string{"delete", mine.ID.String()}))
		assert.Contains(t, out.String(), "Delete Acme / Eng? [y/N]")
		assert.Contains(t, out.String(), "Canceled")
		assert.Len(t, backend.Jobs(), 2)
	})

	t.Run("confirmed", func(t *testing.T) {
		a.in = strings.NewReader("y\n")
		out.Reset()
		require.NoError(t, a.run(t.Context(), []string{"delete", mine.ID.String()}))
		assert.Contains(t, out.String(), domain.MsgJobDeleted)
		assert.Len(t, backend.Jobs(), 1)
	})

	t.Run("backend failure", func(t *testing.T) {
		again := seedJob(backend, alice.ID, "Beta", "Eng", domain.JobStatusApplied, "2024-03-02")
		backend.FailWith(http.MethodDelete, "/jobs/"+again.ID.String(), http.StatusInternalServerError, `{}`)

		err := a.run(t.Context(), []string{"delete", again.ID.String(), "-yes"})
		assert.Error(t, err)
		assert.Len(t, backend.Jobs(), 2)
	})
}

func delivery(t *testing.T, e events.Event) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(e)
	require.NoError(t, err)
	return amqp.Delivery{Body: body}
}

func TestWatch(t *testing.T) {
	a, backend, out := newTestApp(t, "")
	alice := backend.AddUser("alice", "secret1")

	job := domain.Job{ID: domain.NumericID(7), UserID: alice.ID, Company: "Acme", Role: "Eng", Status: domain.JobStatusApplied}
	foreign := domain.Job{ID: domain.NumericID(8), UserID: domain.NumericID(999), Company: "Other", Role: "Ops"}

	deliveries := make(chan amqp.Delivery, 4)
	deliveries <- delivery(t, events.NewJobEvent(events.TypeJobCreated, alice.ID, job))
	deliveries <- delivery(t, events.NewJobEvent(events.TypeJobCreated, foreign.UserID, foreign))
	deliveries <- delivery(t, events.NewJobEvent(events.TypeJobDeleted, alice.ID, job))
	deliveries <- amqp.Delivery{Body: []byte("not json")}
	close(deliveries)

	a.subscribe = func() (<-chan amqp.Delivery, io.Closer, error) {
		return deliveries, nopCloser{}, nil
	}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.run(ctx, []string{"watch"}))

	text := out.String()
	assert.Contains(t, text, "Watching events for alice")
	assert.Contains(t, text, "job.created")
	assert.Contains(t, text, "Acme / Eng [Applied] (id 7)")
	assert.Contains(t, text, "job.deleted")
	assert.Contains(t, text, "job 7")
	assert.NotContains(t, text, "Other")
}

func TestWatch_NotConfigured(t *testing.T) {
	a, _, _ := newTestApp(t, "")
	assert.Error(t, a.run(t.Context(), []string{"watch"}))
}
