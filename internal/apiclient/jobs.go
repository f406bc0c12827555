package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cuongbtq/job-tracker/internal/domain"
)

func jobPath(id domain.ID) string {
	return jobsPath + "/" + url.PathEscape(id.String())
}

// ListJobsByUser returns every job owned by userID
func (c *Client) ListJobsByUser(ctx context.Context, userID domain.ID) ([]domain.Job, error) {
	var jobs []domain.Job
	query := url.Values{"userId": {userID.String()}}
	if err := c.do(ctx, http.MethodGet, jobsPath, query, nil, &jobs); err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	return jobs, nil
}

// GetJob returns a single job
func (c *Client) GetJob(ctx context.Context, id domain.ID) (*domain.Job, error) {
	var job domain.Job
	if err := c.do(ctx, http.MethodGet, jobPath(id), nil, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJob posts a job without id and returns the created record
func (c *Client) CreateJob(ctx context.Context, job domain.Job) (*domain.Job, error) {
	job.ID = domain.ID{}

	var created domain.Job
	if err := c.do(ctx, http.MethodPost, jobsPath, nil, job, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateJob replaces the job stored under id
func (c *Client) UpdateJob(ctx context.Context, id domain.ID, job domain.Job) (*domain.Job, error) {
	var updated domain.Job
	if err := c.do(ctx, http.MethodPut, jobPath(id), nil, job, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteJob removes a job
func (c *Client) DeleteJob(ctx context.Context, id domain.ID) error {
	return c.do(ctx, http.MethodDelete, jobPath(id), nil, nil, nil)
}
