// Package apitest runs an in-memory injunweb API for tests. It speaks the
// same JSON wire format as the real service, verifies bearer tokens it
// issued, and can inject failures per route.
package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/injunweb/injunctl/internal/domain"
)

// DefaultVAPIDKey is the public key served by GET /notifications/vapid-public-key.
const DefaultVAPIDKey = "BEl62iUYgUivxIkv69yViEuiBIa-Ib9-SkvMeAtA3LFgDzkrxZJjSgSnfckjBJuBkr3qBUYIHBQFLXYp5Nksh8U"

// Request is one request observed by the server.
type Request struct {
	Method        string
	Route         string
	Path          string
	Authorization string
	RequestID     string
}

type account struct {
	user     domain.User
	password string
}

type failure struct {
	status int
	times  int
}

// Server is a fake injunweb API.
type Server struct {
	*httptest.Server

	key      []byte
	now      func() time.Time
	tokenTTL time.Duration

	mu            sync.Mutex
	nextID        int
	accounts      map[string]*account // by username
	apps          map[string]*domain.Application
	envs          map[string][]domain.EnvVar
	notifications map[string][]domain.Notification // by user id
	subscriptions []domain.PushSubscription
	failures      map[string]*failure // "METHOD route-template"
	revoked       map[string]bool
	requests      []Request
}

// NewServer starts a fake API and closes it when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		key:           []byte("apitest-signing-key"),
		now:           time.Now,
		tokenTTL:      time.Hour,
		accounts:      make(map[string]*account),
		apps:          make(map[string]*domain.Application),
		envs:          make(map[string][]domain.EnvVar),
		notifications: make(map[string][]domain.Notification),
		failures:      make(map[string]*failure),
		revoked:       make(map[string]bool),
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.record, s.injectFailures)

	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)

	r.HandleFunc("/users", s.authed(s.handleGetMe)).Methods(http.MethodGet)
	r.HandleFunc("/users", s.authed(s.handleUpdateMe)).Methods(http.MethodPatch)

	r.HandleFunc("/applications", s.authed(s.handleListApps)).Methods(http.MethodGet)
	r.HandleFunc("/applications", s.authed(s.handleSubmitApp)).Methods(http.MethodPost)
	r.HandleFunc("/applications/{id}", s.authed(s.handleGetApp)).Methods(http.MethodGet)
	r.HandleFunc("/applications/{id}", s.authed(s.handleDeleteApp)).Methods(http.MethodDelete)
	r.HandleFunc("/applications/{id}/extra-hostnames", s.authed(s.handleAddHostname)).Methods(http.MethodPost)
	r.HandleFunc("/applications/{id}/extra-hostnames", s.authed(s.handleRemoveHostname)).Methods(http.MethodDelete)
	r.HandleFunc("/applications/{id}/environments", s.authed(s.handleGetEnv)).Methods(http.MethodGet)
	r.HandleFunc("/applications/{id}/environments", s.authed(s.handleReplaceEnv)).Methods(http.MethodPost)

	r.HandleFunc("/admin/users", s.admin(s.handleAdminUsers)).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id}", s.admin(s.handleAdminUser)).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id}/applications", s.admin(s.handleAdminUserApps)).Methods(http.MethodGet)
	r.HandleFunc("/admin/applications", s.admin(s.handleAdminApps)).Methods(http.MethodGet)
	r.HandleFunc("/admin/applications/{id}", s.admin(s.handleAdminApp)).Methods(http.MethodGet)
	r.HandleFunc("/admin/applications/{id}/approve", s.admin(s.handleApprove)).Methods(http.MethodPost)
	r.HandleFunc("/admin/applications/{id}/cancel-approve", s.admin(s.handleCancelApprove)).Methods(http.MethodPost)
	r.HandleFunc("/admin/applications/{id}/primary-hostname", s.admin(s.handlePrimaryHostname)).Methods(http.MethodPost)

	r.HandleFunc("/notifications/vapid-public-key", s.handleVAPIDKey).Methods(http.MethodGet)
	r.HandleFunc("/notifications/subscribe", s.authed(s.handleSubscribe)).Methods(http.MethodPost)
	r.HandleFunc("/notifications/read", s.authed(s.handleMarkRead)).Methods(http.MethodPost)
	r.HandleFunc("/notifications", s.authed(s.handleListNotifications)).Methods(http.MethodGet)
	r.HandleFunc("/notifications/{id}", s.authed(s.handleDeleteNotification)).Methods(http.MethodDelete)
	return r
}

// SetClock overrides the clock used to stamp tokens and records.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddUser creates an account and returns it.
func (s *Server) AddUser(username, email, password string, admin bool) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{
		ID:        s.newIDLocked(),
		Username:  username,
		Email:     email,
		IsAdmin:   admin,
		CreatedAt: s.now().UTC(),
	}
	s.accounts[username] = &account{user: u, password: password}
	return u
}

// AddApplication stores app for owner, assigning an ID and timestamps.
func (s *Server) AddApplication(owner domain.User, app domain.Application) domain.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	app.ID = s.newIDLocked()
	app.OwnerID = owner.ID
	app.OwnerUsername = owner.Username
	if app.Status == "" {
		app.Status = domain.ApplicationStatusPending
	}
	app.CreatedAt = s.now().UTC()
	s.apps[app.ID] = &app
	return app
}

// SetEnvironment replaces the stored environment of appID.
func (s *Server) SetEnvironment(appID string, vars []domain.EnvVar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envs[appID] = slices.Clone(vars)
}

// Environment returns the stored environment of appID.
func (s *Server) Environment(appID string) []domain.EnvVar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.envs[appID])
}

// Application returns the stored application with id.
func (s *Server) Application(id string) (domain.Application, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return domain.Application{}, false
	}
	return *app, true
}

// SetApplicationStatus changes the stored status of application id, as an
// administrator acting elsewhere would.
func (s *Server) SetApplicationStatus(id, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app, ok := s.apps[id]; ok {
		app.Status = status
	}
}

// AddNotification delivers a message to user's inbox.
func (s *Server) AddNotification(user domain.User, message string) domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addNotificationLocked(user.ID, message)
}

// Subscriptions returns the registered push subscriptions.
func (s *Server) Subscriptions() []domain.PushSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.subscriptions)
}

// Token issues a token for user valid for the server's token TTL.
func (s *Server) Token(user domain.User) string {
	s.mu.Lock()
	exp := s.now().Add(s.tokenTTL)
	s.mu.Unlock()
	return s.TokenExpiring(user, exp)
}

// TokenExpiring issues a token for user that expires at exp.
func (s *Server) TokenExpiring(user domain.User, exp time.Time) string {
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"exp":      exp.Unix(),
	}
	if user.IsAdmin {
		claims["is_admin"] = true
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	return tok
}

// Revoke makes the server reject token with 401 from now on.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
}

// FailNext makes the next n requests matching method and route template
// (for example "DELETE", "/applications/{id}") fail with status.
func (s *Server) FailNext(method, route string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+route] = &failure{status: status, times: n}
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// CountRequests returns how many requests matched method and route template.
func (s *Server) CountRequests(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Route == route {
			n++
		}
	}
	return n
}

func (s *Server) newIDLocked() string {
	s.nextID++
	return strconv.Itoa(s.nextID)
}

func (s *Server) addNotificationLocked(userID, message string) domain.Notification {
	n := domain.Notification{
		ID:        s.newIDLocked(),
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
	s.notifications[userID] = append(s.notifications[userID], n)
	return n
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Route:         routeTemplate(r),
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + routeTemplate(r)
		s.mu.Lock()
		f, ok := s.failures[key]
		if ok {
			f.times--
			if f.times <= 0 {
				delete(s.failures, key)
			}
		}
		s.mu.Unlock()
		if ok {
			writeError(w, f.status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, me domain.User)

func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, err := s.authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h(w, r, me)
	}
}

func (s *Server) admin(h authedHandler) http.HandlerFunc {
	return s.authed(func(w http.ResponseWriter, r *http.Request, me domain.User) {
		if !me.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		h(w, r, me)
	})
}

func (s *Server) authenticate(r *http.Request) (domain.User, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return domain.User{}, errors.New("missing bearer token")
	}
	s.mu.Lock()
	now := s.now
	revoked := s.revoked[raw]
	s.mu.Unlock()
	if revoked {
		return domain.User{}, errors.New("token revoked")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(now))
	if err != nil {
		return domain.User{}, fmt.Errorf("invalid token: %w", err)
	}
	sub, _ := claims.GetSubject()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.ID == sub {
			return acc.user, nil
		}
	}
	return domain.User{}, errors.New("unknown user")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, domain.ErrorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}
