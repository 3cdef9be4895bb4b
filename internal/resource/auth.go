package resource

import (
	"context"
	"fmt"
	"strings"

	"github.com/injunweb/injunctl/internal/api"
	"github.com/injunweb/injunctl/internal/cache"
	"github.com/injunweb/injunctl/internal/domain"
	"github.com/injunweb/injunctl/internal/guard"
	"github.com/injunweb/injunctl/internal/session"
)

// Auth drives login, registration and logout, moving the navigator the
// way the dashboard does after each.
type Auth struct {
	api     *api.Client
	session *session.Session
	cache   *cache.Cache
	nav     *guard.Navigator
}

// NewAuth returns the auth flows.
func NewAuth(client *api.Client, sess *session.Session, c *cache.Cache, nav *guard.Navigator) *Auth {
	return &Auth{api: client, session: sess, cache: c, nav: nav}
}

// Login exchanges credentials for a session token, stores it and navigates
// to the location preserved before login, or the application list. The
// cache is shared by every account on the machine, so it is cleared.
func (a *Auth) Login(ctx context.Context, username, password string) (guard.Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return guard.Result{}, invalid("username and password are required")
	}
	err := mutate(ctx, a.cache, "login", username, func(ctx context.Context) error {
		tok, err := a.api.Login(ctx, domain.LoginRequest{Username: username, Password: password})
		if err != nil {
			return err
		}
		if err := a.session.Set(tok); err != nil {
			return fmt.Errorf("store session: %w", err)
		}
		a.cache.Clear(ctx)
		return nil
	})
	if err != nil {
		return guard.Result{}, err
	}
	target := guard.LandingPath
	if rt, ok := a.nav.ReturnTo(); ok {
		target = rt
	}
	return a.nav.Navigate(target)
}

// Register creates an account and navigates to the login page. No token is
// stored.
func (a *Auth) Register(ctx context.Context, req domain.RegisterRequest) (guard.Result, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Password == "" {
		return guard.Result{}, invalid("username and password are required")
	}
	if req.Email == "" {
		return guard.Result{}, invalid("email is required")
	}
	if err := validateEmail(req.Email); err != nil {
		return guard.Result{}, err
	}
	err := mutate(ctx, a.cache, "register", req.Username, func(ctx context.Context) error {
		return a.api.Register(ctx, req)
	})
	if err != nil {
		return guard.Result{}, err
	}
	return a.nav.Navigate(guard.LoginPath)
}

// Logout forgets the token and every cached resource and navigates to the
// login page.
func (a *Auth) Logout(ctx context.Context) (guard.Result, error) {
	if err := a.session.Clear(); err != nil {
		return guard.Result{}, fmt.Errorf("clear session: %w", err)
	}
	a.cache.Clear(ctx)
	return a.nav.Reset(guard.LoginPath)
}
