package resource

import (
	"context"
	"slices"
	"strings"

	"github.com/injunweb/injunctl/internal/api"
	"github.com/injunweb/injunctl/internal/cache"
	"github.com/injunweb/injunctl/internal/domain"
)

// Environments is the environment variable sets of the caller's
// applications.
type Environments struct {
	api   *api.Client
	cache *cache.Cache
	apps  *Applications
}

// NewEnvironments returns the environments resource.
func NewEnvironments(client *api.Client, c *cache.Cache, apps *Applications) *Environments {
	return &Environments{api: client, cache: c, apps: apps}
}

// Get returns the environment set of an application.
func (e *Environments) Get(ctx context.Context, appID string) ([]domain.EnvVar, error) {
	appID, err := requireID("application", appID)
	if err != nil {
		return nil, err
	}
	return cache.Query(ctx, e.cache, cache.Environments(appID), func(ctx context.Context) ([]domain.EnvVar, error) {
		return e.api.GetEnvironments(ctx, appID)
	})
}

// Replace sends vars as the complete environment set of an application.
func (e *Environments) Replace(ctx context.Context, appID string, vars []domain.EnvVar) error {
	appID, err := requireID("application", appID)
	if err != nil {
		return err
	}
	vars, err = normalizeEnv(vars)
	if err != nil {
		return err
	}
	if err := e.apps.requireApproved(ctx, appID); err != nil {
		return err
	}
	return mutate(ctx, e.cache, "update-environments", appID, func(ctx context.Context) error {
		if err := e.api.UpdateEnvironments(ctx, appID, vars); err != nil {
			return err
		}
		e.cache.Invalidate(ctx, cache.Environments(appID))
		return nil
	})
}

// Edit starts a local edit session over the current environment set.
func (e *Environments) Edit(ctx context.Context, appID string) (*Editor, error) {
	vars, err := e.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	return &Editor{env: e, appID: strings.TrimSpace(appID), base: slices.Clone(vars), vars: slices.Clone(vars)}, nil
}

func normalizeEnv(vars []domain.EnvVar) ([]domain.EnvVar, error) {
	out := make([]domain.EnvVar, 0, len(vars))
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		key := strings.TrimSpace(v.Key)
		if key == "" {
			return nil, invalid("environment key is required")
		}
		if seen[key] {
			return nil, domain.ErrKeyExists
		}
		seen[key] = true
		out = append(out, domain.EnvVar{Key: key, Value: v.Value})
	}
	return out, nil
}

// Editor is an unsaved, ordered edit of an environment set. Nothing is
// sent to the server until Save.
type Editor struct {
	env   *Environments
	appID string
	base  []domain.EnvVar
	vars  []domain.EnvVar
}

// Vars returns the edited set.
func (ed *Editor) Vars() []domain.EnvVar {
	return slices.Clone(ed.vars)
}

// Add appends a new key. A key already present in the edited set is
// rejected with [domain.ErrKeyExists].
func (ed *Editor) Add(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return invalid("environment key is required")
	}
	if ed.index(key) >= 0 {
		return domain.ErrKeyExists
	}
	ed.vars = append(ed.vars, domain.EnvVar{Key: key, Value: value})
	return nil
}

// Update changes the value of an existing key.
func (ed *Editor) Update(key, value string) error {
	i := ed.index(strings.TrimSpace(key))
	if i < 0 {
		return domain.ErrKeyNotFound
	}
	ed.vars[i].Value = value
	return nil
}

// Set adds key or updates it when present.
func (ed *Editor) Set(key, value string) error {
	if ed.index(strings.TrimSpace(key)) >= 0 {
		return ed.Update(key, value)
	}
	return ed.Add(key, value)
}

// Delete removes a key.
func (ed *Editor) Delete(key string) error {
	i := ed.index(strings.TrimSpace(key))
	if i < 0 {
		return domain.ErrKeyNotFound
	}
	ed.vars = slices.Delete(ed.vars, i, i+1)
	return nil
}

// Cancel discards every unsaved change.
func (ed *Editor) Cancel() {
	ed.vars = slices.Clone(ed.base)
}

// Dirty reports whether the edited set differs from the fetched one.
func (ed *Editor) Dirty() bool {
	return !slices.Equal(ed.base, ed.vars)
}

// Save replaces the server set with the edited one. A clean editor sends
// nothing.
func (ed *Editor) Save(ctx context.Context) error {
	if !ed.Dirty() {
		return nil
	}
	if err := ed.env.Replace(ctx, ed.appID, ed.vars); err != nil {
		return err
	}
	ed.base = slices.Clone(ed.vars)
	return nil
}

func (ed *Editor) index(key string) int {
	return slices.IndexFunc(ed.vars, func(v domain.EnvVar) bool { return v.Key == key })
}
