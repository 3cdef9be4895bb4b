// Package app assembles the injunctl runtime: session, API client, cache,
// navigator and resources. It owns the single place where a rejected
// session is handled.
package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/injunweb/injunctl/internal/api"
	"github.com/injunweb/injunctl/internal/cache"
	"github.com/injunweb/injunctl/internal/config"
	"github.com/injunweb/injunctl/internal/guard"
	"github.com/injunweb/injunctl/internal/resource"
	"github.com/injunweb/injunctl/internal/session"
	"github.com/injunweb/injunctl/internal/store/sqlite"
)

// App is one wired injunctl runtime.
type App struct {
	Config  config.ClientConfig
	Log     *slog.Logger
	Session *session.Session
	Cache   *cache.Cache
	API     *api.Client
	Router  *guard.Router
	Nav     *guard.Navigator

	Applications  *resource.Applications
	Environments  *resource.Environments
	Notifications *resource.Notifications
	Users         *resource.Users
	Admin         *resource.Admin
	Auth          *resource.Auth

	db      *sqlite.Store
	expired atomic.Bool
}

type options struct {
	tokens     session.TokenStore
	httpClient *http.Client
	now        func() time.Time
	userAgent  string
}

// Option configures [New].
type Option func(*options)

// WithTokenStore replaces the session file store.
func WithTokenStore(s session.TokenStore) Option {
	return func(o *options) { o.tokens = s }
}

// WithHTTPClient replaces the API HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithClock overrides the clock of the session and the cache.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithUserAgent sets the API User-Agent.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// New wires an App from cfg. A cache database that cannot be opened is
// logged and skipped; the in-memory cache still works.
func New(cfg config.ClientConfig, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	o := options{now: time.Now, userAgent: "injunctl"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tokens == nil {
		o.tokens = session.NewFileStore(cfg.SessionFile, o.now)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	a := &App{Config: cfg, Log: logger}
	a.Session = session.New(o.tokens, session.WithClock(o.now))

	cacheOpts := []cache.Option{
		cache.WithTTL(cfg.CacheTTL),
		cache.WithClock(o.now),
		cache.WithLogger(logger.With("component", "cache")),
	}
	if cfg.CacheEnabled() {
		db, err := sqlite.Open(cfg.CacheDB)
		if err != nil {
			logger.Warn("persistent cache unavailable", "path", cfg.CacheDB, "err", err)
		} else {
			a.db = db
			if purged, err := db.PurgeExpiredCacheEntries(context.Background(), o.now(), 0); err != nil {
				logger.Warn("purge expired cache entries failed", "err", err)
			} else if len(purged) > 0 {
				logger.Debug("purged expired cache entries", "count", len(purged))
			}
			cacheOpts = append(cacheOpts, cache.WithBackend(db))
		}
	}
	a.Cache = cache.New(cacheOpts...)

	a.Router = guard.NewRouter(guard.DefaultRoutes())
	navOpts := []guard.NavigatorOption{guard.WithNavigatorLogger(logger.With("component", "nav"))}
	if p, ok := o.tokens.(guard.Persister); ok {
		navOpts = append(navOpts, guard.WithPersister(p))
	}
	a.Nav = guard.NewNavigator(a.Router, a.Session, navOpts...)

	client, err := api.New(cfg.APIURL, a.Session,
		api.WithHTTPClient(o.httpClient),
		api.WithLogger(logger.With("component", "api")),
		api.WithUserAgent(o.userAgent),
		api.WithUnauthorizedHandler(a.handleUnauthorized),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.API = client

	a.Applications = resource.NewApplications(client, a.Cache)
	a.Environments = resource.NewEnvironments(client, a.Cache, a.Applications)
	a.Notifications = resource.NewNotifications(client, a.Cache)
	a.Users = resource.NewUsers(client, a.Cache)
	a.Admin = resource.NewAdmin(client, a.Cache)
	a.Auth = resource.NewAuth(client, a.Session, a.Cache, a.Nav)
	return a, nil
}

// SessionExpired reports whether the server rejected a session this
// process considered valid.
func (a *App) SessionExpired() bool {
	return a.expired.Load()
}

// Close releases the navigator subscription and the cache database.
func (a *App) Close() {
	if a.Nav != nil {
		a.Nav.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Log.Warn("close cache database failed", "err", err)
		}
		a.db = nil
	}
}

// handleUnauthorized runs for every 401, whichever resource triggered it:
// the token and every cached resource are dropped and the navigator moves
// to the login page.
func (a *App) handleUnauthorized(ctx context.Context, op string) {
	if a.Session.IsLoggedIn() {
		a.expired.Store(true)
	}
	if err := a.Session.Clear(); err != nil {
		a.Log.Warn("clear session failed", "err", err)
	}
	a.Cache.Clear(ctx)
	a.Nav.RedirectToLogin()
	a.Log.Info("session cleared", "op", op)
}
