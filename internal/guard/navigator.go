package guard

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/injunweb/injunctl/internal/session"
)

const maxRedirects = 8

// SessionSource is the session view the navigator needs.
type SessionSource interface {
	State() session.State
	Subscribe(fn func(session.State)) (unsubscribe func())
}

// Persister keeps the navigator state between processes.
type Persister interface {
	LoadNavigation() (location, returnTo string)
	SaveNavigation(location, returnTo string) error
}

// Result is where a navigation ended.
type Result struct {
	Match
	// Requested is the location navigation started from.
	Requested string
	// Denied is the first route whose guard turned the visitor away, or
	// nil when the requested route was entered (possibly via a plain
	// redirect route such as "/").
	Denied *Route
}

// Redirected reports whether a guard sent the visitor elsewhere.
func (r Result) Redirected() bool {
	return r.Denied != nil
}

// Navigator tracks the current dashboard location.
type Navigator struct {
	router  *Router
	session SessionSource
	persist Persister
	log     *slog.Logger

	unsubscribe func()

	mu       sync.Mutex
	location string
	returnTo string
}

// NavigatorOption configures a [Navigator].
type NavigatorOption func(*Navigator)

// WithPersister loads and saves navigation state through p.
func WithPersister(p Persister) NavigatorOption {
	return func(n *Navigator) { n.persist = p }
}

// WithNavigatorLogger sets the logger.
func WithNavigatorLogger(l *slog.Logger) NavigatorOption {
	return func(n *Navigator) {
		if l != nil {
			n.log = l
		}
	}
}

// NewNavigator returns a navigator over router that re-checks the current
// location whenever sess changes.
func NewNavigator(router *Router, sess SessionSource, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		router:   router,
		session:  sess,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		location: RootPath,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.persist != nil {
		loc, rt := n.persist.LoadNavigation()
		if loc != "" {
			n.location = loc
		}
		n.returnTo = rt
	}
	n.unsubscribe = sess.Subscribe(n.onSessionChange)
	return n
}

// Close stops following session changes.
func (n *Navigator) Close() {
	if n.unsubscribe != nil {
		n.unsubscribe()
	}
}

// Current returns the current location.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

// Navigate moves to location, following guard and route redirects. The
// guard sees the session state at the moment of the call. Unknown
// locations fall back to "/".
func (n *Navigator) Navigate(location string) (Result, error) {
	return n.navigate(location, n.session.State())
}

// ReturnTo yields the location preserved by the last redirect to login
// and forgets it.
func (n *Navigator) ReturnTo() (string, bool) {
	n.mu.Lock()
	rt := n.returnTo
	n.returnTo = ""
	loc := n.location
	n.mu.Unlock()
	if rt == "" {
		return "", false
	}
	n.save(loc, "")
	return rt, true
}

// RedirectToLogin moves to the login page, preserving the current
// location unless it already is a public page.
func (n *Navigator) RedirectToLogin() {
	n.mu.Lock()
	from := n.location
	if m, ok := n.router.Resolve(from); ok && m.Route.Kind == PublicOnly {
		from = ""
	}
	n.location = LoginPath
	if from != "" {
		n.returnTo = from
	}
	loc, rt := n.location, n.returnTo
	n.mu.Unlock()
	n.log.Info("redirect to login", "from", from)
	n.save(loc, rt)
}

// Reset forgets any preserved location and navigates to location.
func (n *Navigator) Reset(location string) (Result, error) {
	n.mu.Lock()
	n.returnTo = ""
	n.mu.Unlock()
	return n.Navigate(location)
}

func (n *Navigator) onSessionChange(state session.State) {
	n.mu.Lock()
	current := n.location
	n.mu.Unlock()
	if _, err := n.navigate(current, state); err != nil {
		n.log.Warn("re-evaluate location failed", "location", current, "err", err)
	}
}

func (n *Navigator) navigate(location string, state session.State) (Result, error) {
	res := Result{Requested: location}
	path := location
	for range maxRedirects {
		m, ok := n.router.Resolve(path)
		if !ok {
			n.log.Debug("unknown location", "location", path)
			path = RootPath
			continue
		}
		d := Decide(m.Route.Kind, state, path)
		if !d.Allow {
			if res.Denied == nil {
				denied := m.Route
				res.Denied = &denied
			}
			n.mu.Lock()
			if d.From != "" {
				n.returnTo = d.From
			}
			n.mu.Unlock()
			n.log.Debug("guard redirect", "from", path, "to", d.RedirectTo, "kind", m.Route.Kind, "state", state)
			path = d.RedirectTo
			continue
		}
		if m.Route.Redirect != "" {
			path = m.Route.Redirect
			continue
		}

		res.Match = m
		n.mu.Lock()
		n.location = m.Path
		loc, rt := n.location, n.returnTo
		n.mu.Unlock()
		n.save(loc, rt)
		return res, nil
	}
	return res, fmt.Errorf("too many redirects from %q", location)
}

func (n *Navigator) save(location, returnTo string) {
	if n.persist == nil {
		return
	}
	if err := n.persist.SaveNavigation(location, returnTo); err != nil {
		n.log.Warn("save navigation failed", "err", err)
	}
}
