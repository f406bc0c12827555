package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cuongbtq/job-tracker/internal/domain"
)

// FindUsersByUsername returns the users registered under username
func (c *Client) FindUsersByUsername(ctx context.Context, username string) ([]domain.User, error) {
	var users []domain.User
	query := url.Values{"username": {username}}
	if err := c.do(ctx, http.MethodGet, usersPath, query, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser posts credentials to the users resource and returns the stored user
func (c *Client) CreateUser(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodPost, usersPath, nil, creds, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
