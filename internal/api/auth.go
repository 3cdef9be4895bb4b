package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/injunweb/injunctl/internal/domain"
)

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (string, error) {
	var out domain.LoginResponse
	if err := c.do(ctx, "login", http.MethodPost, "/auth/login", req, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("login: server returned no token")
	}
	return out.Token, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) error {
	return c.do(ctx, "register", http.MethodPost, "/auth/register", req, nil)
}

// GetUser returns the profile of the logged-in user.
func (c *Client) GetUser(ctx context.Context) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, "get profile", http.MethodGet, "/users", nil, &out)
	return out, err
}

// UpdateUser patches the profile of the logged-in user.
func (c *Client) UpdateUser(ctx context.Context, req domain.UpdateUserRequest) error {
	return c.do(ctx, "update profile", http.MethodPatch, "/users", req, nil)
}
