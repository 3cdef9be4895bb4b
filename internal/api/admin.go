package api

import (
	"context"
	"net/http"

	"github.com/injunweb/injunctl/internal/domain"
)

// AdminListUsers returns every account.
func (c *Client) AdminListUsers(ctx context.Context) ([]domain.User, error) {
	var out domain.UserList
	if err := c.do(ctx, "list users", http.MethodGet, "/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Users), nil
}

// AdminGetUser returns one account.
func (c *Client) AdminGetUser(ctx context.Context, id string) (domain.User, error) {
	p, err := pathID(id)
	if err != nil {
		return domain.User{}, err
	}
	var out domain.User
	err = c.do(ctx, "get user", http.MethodGet, "/admin/users/"+p, nil, &out)
	return out, err
}

// AdminListUserApplications returns the applications owned by a user.
func (c *Client) AdminListUserApplications(ctx context.Context, id string) ([]domain.Application, error) {
	p, err := pathID(id)
	if err != nil {
		return nil, err
	}
	var out domain.ApplicationList
	if err := c.do(ctx, "list user applications", http.MethodGet, "/admin/users/"+p+"/applications", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Applications), nil
}

// AdminListApplications returns every application.
func (c *Client) AdminListApplications(ctx context.Context) ([]domain.Application, error) {
	var out domain.ApplicationList
	if err := c.do(ctx, "list all applications", http.MethodGet, "/admin/applications", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Applications), nil
}

// AdminGetApplication returns any application.
func (c *Client) AdminGetApplication(ctx context.Context, id string) (domain.Application, error) {
	p, err := pathID(id)
	if err != nil {
		return domain.Application{}, err
	}
	var out domain.Application
	err = c.do(ctx, "get application", http.MethodGet, "/admin/applications/"+p, nil, &out)
	return out, err
}

// AdminApproveApplication approves a pending application.
func (c *Client) AdminApproveApplication(ctx context.Context, id string) error {
	p, err := pathID(id)
	if err != nil {
		return err
	}
	return c.do(ctx, "approve application", http.MethodPost, "/admin/applications/"+p+"/approve", nil, nil)
}

// AdminCancelApproval reverts an approval.
func (c *Client) AdminCancelApproval(ctx context.Context, id string) error {
	p, err := pathID(id)
	if err != nil {
		return err
	}
	return c.do(ctx, "cancel approval", http.MethodPost, "/admin/applications/"+p+"/cancel-approve", nil, nil)
}

// AdminSetPrimaryHostname changes the primary hostname of an application.
func (c *Client) AdminSetPrimaryHostname(ctx context.Context, id, hostname string) error {
	p, err := pathID(id)
	if err != nil {
		return err
	}
	return c.do(ctx, "set primary hostname", http.MethodPost, "/admin/applications/"+p+"/primary-hostname",
		domain.HostnameRequest{Hostname: hostname}, nil)
}
