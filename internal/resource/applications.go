package resource

import (
	"context"
	"net/url"
	"slices"
	"strings"

	"github.com/injunweb/injunctl/internal/api"
	"github.com/injunweb/injunctl/internal/cache"
	"github.com/injunweb/injunctl/internal/domain"
)

// Applications is the caller's own applications.
type Applications struct {
	api   *api.Client
	cache *cache.Cache
}

// NewApplications returns the applications resource.
func NewApplications(client *api.Client, c *cache.Cache) *Applications {
	return &Applications{api: client, cache: c}
}

// List returns the caller's applications.
func (a *Applications) List(ctx context.Context) ([]domain.Application, error) {
	return cache.Query(ctx, a.cache, cache.KeyApplications, a.api.ListApplications)
}

// Refresh refetches the application list.
func (a *Applications) Refresh(ctx context.Context) ([]domain.Application, error) {
	return cache.Refetch(ctx, a.cache, cache.KeyApplications, a.api.ListApplications)
}

// Get returns one application.
func (a *Applications) Get(ctx context.Context, id string) (domain.Application, error) {
	id, err := requireID("application", id)
	if err != nil {
		return domain.Application{}, err
	}
	return cache.Query(ctx, a.cache, cache.Application(id), func(ctx context.Context) (domain.Application, error) {
		return a.api.GetApplication(ctx, id)
	})
}

// Submit validates req and submits it for approval.
func (a *Applications) Submit(ctx context.Context, req domain.SubmitApplicationRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.GitURL = strings.TrimSpace(req.GitURL)
	req.Branch = strings.TrimSpace(req.Branch)
	if req.Name == "" {
		return invalid("name is required")
	}
	if req.GitURL == "" {
		return invalid("git url is required")
	}
	if u, err := url.Parse(req.GitURL); err != nil || u.Host == "" {
		return invalid("git url %q is not a valid URL", req.GitURL)
	}
	if req.Port < 1 || req.Port > 65535 {
		return invalid("port must be between 1 and 65535")
	}
	if req.Branch == "" {
		req.Branch = "main"
	}
	return mutate(ctx, a.cache, "submit-application", req.Name, func(ctx context.Context) error {
		if err := a.api.SubmitApplication(ctx, req); err != nil {
			return err
		}
		a.cache.Invalidate(ctx, cache.KeyApplications)
		return nil
	})
}

// Delete removes an application. The application disappears from the
// cached list immediately; if the server refuses, the list is restored and
// the error returned. The list is refetched either way.
func (a *Applications) Delete(ctx context.Context, id string) error {
	id, err := requireID("application", id)
	if err != nil {
		return err
	}
	return mutate(ctx, a.cache, "delete-application", id, func(ctx context.Context) error {
		err := cache.Optimistic(ctx, a.cache, cache.KeyApplications,
			func(list []domain.Application) []domain.Application {
				return slices.DeleteFunc(slices.Clone(list), func(app domain.Application) bool {
					return app.ID == id
				})
			},
			func(ctx context.Context) error { return a.api.DeleteApplication(ctx, id) },
			a.api.ListApplications,
		)
		if err != nil {
			return err
		}
		a.cache.Invalidate(ctx, cache.Application(id), cache.Environments(id))
		return nil
	})
}

// AddHostname attaches an extra hostname. Pending applications are refused
// without contacting the server.
func (a *Applications) AddHostname(ctx context.Context, id, hostname string) error {
	return a.editHostname(ctx, "add-hostname", id, hostname, a.api.AddExtraHostname)
}

// RemoveHostname detaches an extra hostname.
func (a *Applications) RemoveHostname(ctx context.Context, id, hostname string) error {
	return a.editHostname(ctx, "remove-hostname", id, hostname, a.api.DeleteExtraHostname)
}

func (a *Applications) editHostname(ctx context.Context, kind, id, hostname string, call func(context.Context, string, string) error) error {
	id, err := requireID("application", id)
	if err != nil {
		return err
	}
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if hostname == "" {
		return invalid("hostname is required")
	}
	if strings.ContainsAny(hostname, "/: ") {
		return invalid("hostname %q must not contain a scheme, port or path", hostname)
	}
	if err := a.requireApproved(ctx, id); err != nil {
		return err
	}
	return mutate(ctx, a.cache, kind, id+"/"+hostname, func(ctx context.Context) error {
		if err := call(ctx, id, hostname); err != nil {
			return err
		}
		a.cache.Invalidate(ctx, cache.Application(id), cache.KeyApplications)
		return nil
	})
}

// requireApproved refuses edits on an application that is still pending.
// It reads the server's current state; a cached approval may be revoked.
func (a *Applications) requireApproved(ctx context.Context, id string) error {
	app, err := cache.Refetch(ctx, a.cache, cache.Application(id), func(ctx context.Context) (domain.Application, error) {
		return a.api.GetApplication(ctx, id)
	})
	if err != nil {
		return err
	}
	if app.IsPending() {
		return domain.ErrApplicationPending
	}
	return nil
}
