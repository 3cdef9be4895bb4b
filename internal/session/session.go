// Package session holds the client's authentication state: the persisted
// session token, its decoded claims, and the login/admin predicates derived
// from them. Route guards and the API client share one [Session].
package session

import (
	"sync"
	"time"
)

// State is the authentication state a route guard decides on.
type State int

const (
	Unauthenticated State = iota
	AuthenticatedUser
	AuthenticatedAdmin
)

func (s State) String() string {
	switch s {
	case AuthenticatedUser:
		return "user"
	case AuthenticatedAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

// Session derives login state from a [TokenStore]. Nothing is cached between
// calls: every predicate re-reads the store and compares the expiry against
// the clock at call time.
type Session struct {
	store TokenStore
	now   func() time.Time

	mu     sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// Option configures a [Session].
type Option func(*Session)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a session over store.
func New(store TokenStore, opts ...Option) *Session {
	s := &Session{
		store: store,
		now:   time.Now,
		subs:  make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the current token if it is present and unexpired.
func (s *Session) Token() (string, bool) {
	tok, _, ok := s.current()
	return tok, ok
}

// Claims returns the decoded claims of the current valid token.
func (s *Session) Claims() (Claims, bool) {
	_, claims, ok := s.current()
	return claims, ok
}

// IsLoggedIn reports whether a token is present and its expiry is after now.
func (s *Session) IsLoggedIn() bool {
	_, _, ok := s.current()
	return ok
}

// IsAdmin reports whether the session is logged in and carries the admin
// claim.
func (s *Session) IsAdmin() bool {
	_, claims, ok := s.current()
	return ok && claims.IsAdmin
}

// State returns the guard state for the current token.
func (s *Session) State() State {
	_, claims, ok := s.current()
	switch {
	case !ok:
		return Unauthenticated
	case claims.IsAdmin:
		return AuthenticatedAdmin
	default:
		return AuthenticatedUser
	}
}

// Set stores a freshly issued token and notifies subscribers.
func (s *Session) Set(token string) error {
	if err := s.store.Set(token); err != nil {
		return err
	}
	s.notify()
	return nil
}

// Clear removes the token and notifies subscribers. Clearing an empty
// session is a no-op apart from the notification.
func (s *Session) Clear() error {
	if err := s.store.Remove(); err != nil {
		return err
	}
	s.notify()
	return nil
}

// Subscribe registers fn to run after every Set or Clear with the resulting
// state. The returned func removes the subscription.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify() {
	state := s.State()
	s.mu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(state)
	}
}

// current reads and validates the stored token. A token that cannot be
// decoded or has expired is dropped from the store.
func (s *Session) current() (string, Claims, bool) {
	tok, ok := s.store.Get()
	if !ok {
		return "", Claims{}, false
	}
	claims, err := Decode(tok)
	if err != nil || claims.ExpiredAt(s.now()) {
		_ = s.store.Remove()
		return "", Claims{}, false
	}
	return tok, claims, true
}
