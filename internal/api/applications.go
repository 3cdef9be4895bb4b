package api

import (
	"context"
	"net/http"

	"github.com/injunweb/injunctl/internal/domain"
)

// ListApplications returns the caller's applications.
func (c *Client) ListApplications(ctx context.Context) ([]domain.Application, error) {
	var out domain.ApplicationList
	if err := c.do(ctx, "list applications", http.MethodGet, "/applications", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Applications), nil
}

// SubmitApplication submits a new application for approval.
func (c *Client) SubmitApplication(ctx context.Context, req domain.SubmitApplicationRequest) error {
	return c.do(ctx, "submit application", http.MethodPost, "/applications", req, nil)
}

// GetApplication returns one of the caller's applications.
func (c *Client) GetApplication(ctx context.Context, id string) (domain.Application, error) {
	p, err := pathID(id)
	if err != nil {
		return domain.Application{}, err
	}
	var out domain.Application
	err = c.do(ctx, "get application", http.MethodGet, "/applications/"+p, nil, &out)
	return out, err
}

// DeleteApplication deletes one of the caller's applications.
func (c *Client) DeleteApplication(ctx context.Context, id string) error {
	p, err := pathID(id)
	if err != nil {
		return err
	}
	return c.do(ctx, "delete application", http.MethodDelete, "/applications/"+p, nil, nil)
}

// AddExtraHostname attaches a custom hostname to an approved application.
func (c *Client) AddExtraHostname(ctx context.Context, id, hostname string) error {
	p, err := pathID(id)
	if err != nil {
		return err
	}
	return c.do(ctx, "add hostname", http.MethodPost, "/applications/"+p+"/extra-hostnames",
		domain.HostnameRequest{Hostname: hostname}, nil)
}

// DeleteExtraHostname detaches a custom hostname.
func (c *Client) DeleteExtraHostname(ctx context.Context, id, hostname string) error {
	p, err := pathID(id)
	if err != nil {
		return err
	}
	return c.do(ctx, "remove hostname", http.MethodDelete, "/applications/"+p+"/extra-hostnames",
		domain.HostnameRequest{Hostname: hostname}, nil)
}

// GetEnvironments returns the environment variable set of an application.
func (c *Client) GetEnvironments(ctx context.Context, id string) ([]domain.EnvVar, error) {
	p, err := pathID(id)
	if err != nil {
		return nil, err
	}
	var out domain.EnvironmentSet
	if err := c.do(ctx, "get environments", http.MethodGet, "/applications/"+p+"/environments", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Environments), nil
}

// UpdateEnvironments replaces the whole environment variable set.
func (c *Client) UpdateEnvironments(ctx context.Context, id string, vars []domain.EnvVar) error {
	p, err := pathID(id)
	if err != nil {
		return err
	}
	return c.do(ctx, "update environments", http.MethodPost, "/applications/"+p+"/environments",
		domain.EnvironmentSet{Environments: nonNil(vars)}, nil)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
