// Package state holds the client-side state containers: the authoritative job
// list of one user and the single active toast.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cuongbtq/job-tracker/internal/apiclient"
	"github.com/cuongbtq/job-tracker/internal/domain"
)

// JobsAPI is the part of the backend the list needs
type JobsAPI interface {
	ListJobsByUser(ctx context.Context, userID domain.ID) ([]domain.Job, error)
	DeleteJob(ctx context.Context, id domain.ID) error
}

// Snapshot is a consistent copy of the list state
type Snapshot struct {
	Jobs    []domain.Job `json:"jobs"`
	Loading bool         `json:"loading"`
	Loaded  bool         `json:"loaded"`
	Error   string       `json:"error,omitempty"`
}

// JobList holds one owner's job list along with loading and error state.
// Operations on the same record id are serialized; different ids run concurrently.
type JobList struct {
	api    JobsAPI
	owner  domain.ID
	logger *slog.Logger
	locks  *recordLocks

	mu       sync.RWMutex
	jobs     []domain.Job
	inFlight int
	loaded   bool
	err      string
}

// NewJobList creates an empty list for owner
func NewJobList(api JobsAPI, owner domain.ID, logger *slog.Logger) *JobList {
	return &JobList{
		api:    api,
		owner:  owner,
		logger: logger,
		locks:  newRecordLocks(),
		jobs:   []domain.Job{},
	}
}

// Owner returns the owner identifier of the list
func (l *JobList) Owner() domain.ID {
	return l.owner
}

// Fetch replaces the list with the owner's jobs from the backend. Concurrent
// fetches are not de-duplicated; the last one to finish wins.
func (l *JobList) Fetch(ctx context.Context) error {
	if l.owner.IsZero() {
		l.setError(domain.MsgLoginRequired)
		return domain.ErrNotAuthenticated
	}

	l.mu.Lock()
	l.inFlight++
	l.err = ""
	l.mu.Unlock()

	jobs, err := l.api.ListJobsByUser(ctx, l.owner)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight--

	if err != nil {
		l.err = apiclient.Message(err, domain.MsgJobFetchFailed)
		l.logger.Error("Failed to fetch jobs",
			slog.String("user_id", l.owner.String()),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to fetch jobs: %w", err)
	}

	l.jobs = jobs
	l.loaded = true
	l.logger.Debug("Jobs fetched",
		slog.String("user_id", l.owner.String()),
		slog.Int("count", len(jobs)),
	)
	return nil
}

// Delete removes a job on the backend and, only once the backend confirmed,
// from the local list. A locally known record owned by someone else is refused
// without calling the backend.
func (l *JobList) Delete(ctx context.Context, id domain.ID) error {
	if job, ok := l.Find(id); ok && !job.OwnedBy(l.owner) {
		return domain.ErrOwnerMismatch
	}

	unlock := l.locks.lock(id.String())
	defer unlock()

	if err := l.api.DeleteJob(ctx, id); err != nil {
		l.setError(apiclient.Message(err, domain.MsgJobDeleteFailed))
		l.logger.Error("Failed to delete job",
			slog.String("job_id", id.String()),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to delete job: %w", err)
	}

	l.mu.Lock()
	kept := make([]domain.Job, 0, len(l.jobs))
	for _, job := range l.jobs {
		if !job.ID.Equal(id) {
			kept = append(kept, job)
		}
	}
	l.jobs = kept
	l.mu.Unlock()

	l.logger.Info("Job deleted",
		slog.String("job_id", id.String()),
		slog.String("user_id", l.owner.String()),
	)
	return nil
}

// Mutate runs fn while holding the lock of record id, so it never interleaves
// with a delete or another mutation of the same record. A zero id (a record not
// saved yet) takes no lock.
func (l *JobList) Mutate(ctx context.Context, id domain.ID, fn func(ctx context.Context) error) error {
	if !id.IsZero() {
		unlock := l.locks.lock(id.String())
		defer unlock()
	}
	return fn(ctx)
}

// Add appends a job created elsewhere, avoiding a re-fetch
func (l *JobList) Add(job domain.Job) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jobs = append(append([]domain.Job(nil), l.jobs...), job)
}

// Replace swaps the job stored under id, avoiding a re-fetch
func (l *JobList) Replace(id domain.ID, job domain.Job) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]domain.Job, len(l.jobs))
	for i, existing := range l.jobs {
		if existing.ID.Equal(id) {
			next[i] = job
		} else {
			next[i] = existing
		}
	}
	l.jobs = next
}

// Find returns the locally known job with id
func (l *JobList) Find(id domain.ID) (domain.Job, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, job := range l.jobs {
		if job.ID.Equal(id) {
			return job, true
		}
	}
	return domain.Job{}, false
}

// Snapshot returns a copy of the current state
func (l *JobList) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Snapshot{
		Jobs:    append([]domain.Job{}, l.jobs...),
		Loading: l.inFlight > 0,
		Loaded:  l.loaded,
		Error:   l.err,
	}
}

// ClearError resets the error message
func (l *JobList) ClearError() {
	l.setError("")
}

func (l *JobList) setError(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = msg
}
