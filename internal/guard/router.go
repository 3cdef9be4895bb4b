package guard

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
)

// Route is one dashboard location pattern.
type Route struct {
	Name    string
	Pattern string
	Kind    Kind
	// Redirect, when set, sends visitors who pass the guard elsewhere.
	Redirect string
}

// Match is a location resolved against the route table.
type Match struct {
	Route Route
	Path  string
	Vars  map[string]string
}

// DefaultRoutes is the dashboard route table. Order matters: literal
// segments are registered before the variable ones they overlap with.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "login", Pattern: LoginPath, Kind: PublicOnly},
		{Name: "register", Pattern: "/register", Kind: PublicOnly},
		{Name: "home", Pattern: RootPath, Kind: Private, Redirect: LandingPath},
		{Name: "applications", Pattern: "/applications", Kind: Private},
		{Name: "application-new", Pattern: "/applications/new", Kind: Private},
		{Name: "application", Pattern: "/applications/{appId}", Kind: Private},
		{Name: "profile", Pattern: "/profile", Kind: Private},
		{Name: "notifications", Pattern: "/notifications", Kind: Private},
		{Name: "admin-users", Pattern: "/admin/users", Kind: AdminOnly},
		{Name: "admin-user", Pattern: "/admin/users/{userId}", Kind: AdminOnly},
		{Name: "admin-applications", Pattern: "/admin/applications", Kind: AdminOnly},
		{Name: "admin-application", Pattern: "/admin/applications/{appId}", Kind: AdminOnly},
	}
}

// Router resolves locations to routes.
type Router struct {
	mux    *mux.Router
	routes map[string]Route
}

// NewRouter builds a router over routes. It panics on duplicate names,
// which is a programming error in the table.
func NewRouter(routes []Route) *Router {
	r := &Router{mux: mux.NewRouter(), routes: make(map[string]Route, len(routes))}
	for _, rt := range routes {
		if _, dup := r.routes[rt.Name]; dup {
			panic("guard: duplicate route name " + rt.Name)
		}
		r.routes[rt.Name] = rt
		r.mux.NewRoute().Name(rt.Name).Path(rt.Pattern)
	}
	return r
}

// Resolve matches location (a path, optionally with a query) against the
// table.
func (r *Router) Resolve(location string) (Match, bool) {
	path := location
	if u, err := url.Parse(location); err == nil {
		path = u.Path
	}
	if path == "" {
		path = RootPath
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: path}}
	var m mux.RouteMatch
	if !r.mux.Match(req, &m) || m.Route == nil {
		return Match{}, false
	}
	rt, ok := r.routes[m.Route.GetName()]
	if !ok {
		return Match{}, false
	}
	return Match{Route: rt, Path: path, Vars: m.Vars}, true
}

// Route returns the route registered under name.
func (r *Router) Route(name string) (Route, bool) {
	rt, ok := r.routes[name]
	return rt, ok
}

// URL builds the location of the named route with pairs as its variables,
// for example URL("application", "appId", "7").
func (r *Router) URL(name string, pairs ...string) (string, error) {
	route := r.mux.Get(name)
	if route == nil {
		return "", fmt.Errorf("unknown route %q", name)
	}
	u, err := route.URLPath(pairs...)
	if err != nil {
		return "", err
	}
	return u.Path, nil
}
