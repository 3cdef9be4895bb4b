package resource

import (
	"context"
	"strings"

	"github.com/injunweb/injunctl/internal/api"
	"github.com/injunweb/injunctl/internal/cache"
	"github.com/injunweb/injunctl/internal/domain"
)

// Admin is the administrator view of users and applications.
type Admin struct {
	api   *api.Client
	cache *cache.Cache
}

// NewAdmin returns the admin resource.
func NewAdmin(client *api.Client, c *cache.Cache) *Admin {
	return &Admin{api: client, cache: c}
}

// Users lists every account.
func (a *Admin) Users(ctx context.Context) ([]domain.User, error) {
	return cache.Query(ctx, a.cache, cache.KeyAdminUsers, a.api.AdminListUsers)
}

// User returns one account.
func (a *Admin) User(ctx context.Context, id string) (domain.User, error) {
	id, err := requireID("user", id)
	if err != nil {
		return domain.User{}, err
	}
	return cache.Query(ctx, a.cache, cache.AdminUser(id), func(ctx context.Context) (domain.User, error) {
		return a.api.AdminGetUser(ctx, id)
	})
}

// UserApplications lists the applications owned by a user.
func (a *Admin) UserApplications(ctx context.Context, id string) ([]domain.Application, error) {
	id, err := requireID("user", id)
	if err != nil {
		return nil, err
	}
	return cache.Query(ctx, a.cache, cache.AdminUserApplications(id), func(ctx context.Context) ([]domain.Application, error) {
		return a.api.AdminListUserApplications(ctx, id)
	})
}

// Applications lists every application.
func (a *Admin) Applications(ctx context.Context) ([]domain.Application, error) {
	return cache.Query(ctx, a.cache, cache.KeyAdminApplications, a.api.AdminListApplications)
}

// Application returns any application.
func (a *Admin) Application(ctx context.Context, id string) (domain.Application, error) {
	id, err := requireID("application", id)
	if err != nil {
		return domain.Application{}, err
	}
	return cache.Query(ctx, a.cache, cache.AdminApplication(id), func(ctx context.Context) (domain.Application, error) {
		return a.api.AdminGetApplication(ctx, id)
	})
}

// Approve approves a pending application.
func (a *Admin) Approve(ctx context.Context, id string) error {
	return a.mutateApplication(ctx, id, a.api.AdminApproveApplication)
}

// CancelApproval returns an approved application to pending.
func (a *Admin) CancelApproval(ctx context.Context, id string) error {
	return a.mutateApplication(ctx, id, a.api.AdminCancelApproval)
}

// SetPrimaryHostname changes the primary hostname of an application.
func (a *Admin) SetPrimaryHostname(ctx context.Context, id, hostname string) error {
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if hostname == "" {
		return invalid("hostname is required")
	}
	return a.mutateApplication(ctx, id, func(ctx context.Context, id string) error {
		return a.api.AdminSetPrimaryHostname(ctx, id, hostname)
	})
}

func (a *Admin) mutateApplication(ctx context.Context, id string, call func(context.Context, string) error) error {
	id, err := requireID("application", id)
	if err != nil {
		return err
	}
	return mutate(ctx, a.cache, "admin-application", id, func(ctx context.Context) error {
		if err := call(ctx, id); err != nil {
			return err
		}
		a.cache.Invalidate(ctx,
			cache.AdminApplication(id),
			cache.KeyAdminApplications,
			cache.Application(id),
			cache.KeyApplications,
		)
		a.cache.InvalidatePrefix(ctx, string(cache.AdminUserApplications("")))
		return nil
	})
}
