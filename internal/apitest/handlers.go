package apitest

import (
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/injunweb/injunctl/internal/domain"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.mu.Lock()
	acc, ok := s.accounts[req.Username]
	s.mu.Unlock()
	if !ok || acc.password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, domain.LoginResponse{Token: s.Token(acc.user)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Password) == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	s.mu.Lock()
	_, exists := s.accounts[req.Username]
	s.mu.Unlock()
	if exists {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}
	u := s.AddUser(req.Username, req.Email, req.Password, false)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleGetMe(w http.ResponseWriter, _ *http.Request, me domain.User) {
	writeJSON(w, http.StatusOK, me)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request, me domain.User) {
	var req domain.UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[me.Username]
	if req.Username != "" && req.Username != me.Username {
		if _, taken := s.accounts[req.Username]; taken {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		delete(s.accounts, me.Username)
		acc.user.Username = req.Username
		s.accounts[req.Username] = acc
	}
	if req.Email != "" {
		acc.user.Email = req.Email
	}
	if req.Password != "" {
		acc.password = req.Password
	}
	writeJSON(w, http.StatusOK, acc.user)
}

func (s *Server) appsLocked(match func(*domain.Application) bool) []domain.Application {
	out := make([]domain.Application, 0)
	for _, app := range s.apps {
		if match(app) {
			out = append(out, *app)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a < b
	})
	return out
}

func (s *Server) handleListApps(w http.ResponseWriter, _ *http.Request, me domain.User) {
	s.mu.Lock()
	apps := s.appsLocked(func(a *domain.Application) bool { return a.OwnerID == me.ID })
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, domain.ApplicationList{Applications: apps})
}

func (s *Server) handleSubmitApp(w http.ResponseWriter, r *http.Request, me domain.User) {
	var req domain.SubmitApplicationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.GitURL) == "" {
		writeError(w, http.StatusBadRequest, "name and git_url are required")
		return
	}
	if req.Port <= 0 || req.Port > 65535 {
		writeError(w, http.StatusBadRequest, "invalid port")
		return
	}
	app := s.AddApplication(me, domain.Application{
		Name:        req.Name,
		GitURL:      req.GitURL,
		Branch:      req.Branch,
		Port:        req.Port,
		Description: req.Description,
	})
	writeJSON(w, http.StatusCreated, app)
}

// ownedApp returns the application in the route if me may see it.
func (s *Server) ownedApp(w http.ResponseWriter, r *http.Request, me domain.User) (*domain.Application, bool) {
	id := mux.Vars(r)["id"]
	app, ok := s.apps[id]
	if !ok || (app.OwnerID != me.ID && !me.IsAdmin) {
		writeError(w, http.StatusNotFound, "application not found")
		return nil, false
	}
	return app, true
}

func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request, me domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.ownedApp(w, r, me)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, *app)
}

func (s *Server) handleDeleteApp(w http.ResponseWriter, r *http.Request, me domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.ownedApp(w, r, me)
	if !ok {
		return
	}
	delete(s.apps, app.ID)
	delete(s.envs, app.ID)
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "application deleted"})
}

func (s *Server) handleAddHostname(w http.ResponseWriter, r *http.Request, me domain.User) {
	var req domain.HostnameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.ownedApp(w, r, me)
	if !ok {
		return
	}
	if app.IsPending() {
		writeError(w, http.StatusBadRequest, "application is not approved")
		return
	}
	if slices.Contains(app.ExtraHostnames, req.Hostname) || app.PrimaryHostname == req.Hostname {
		writeError(w, http.StatusConflict, "hostname already exists")
		return
	}
	app.ExtraHostnames = append(app.ExtraHostnames, req.Hostname)
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "hostname added"})
}

func (s *Server) handleRemoveHostname(w http.ResponseWriter, r *http.Request, me domain.User) {
	var req domain.HostnameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.ownedApp(w, r, me)
	if !ok {
		return
	}
	idx := slices.Index(app.ExtraHostnames, req.Hostname)
	if idx < 0 {
		writeError(w, http.StatusNotFound, "hostname not found")
		return
	}
	app.ExtraHostnames = slices.Delete(app.ExtraHostnames, idx, idx+1)
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "hostname removed"})
}

func (s *Server) handleGetEnv(w http.ResponseWriter, r *http.Request, me domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.ownedApp(w, r, me)
	if !ok {
		return
	}
	vars := slices.Clone(s.envs[app.ID])
	if vars == nil {
		vars = []domain.EnvVar{}
	}
	writeJSON(w, http.StatusOK, domain.EnvironmentSet{Environments: vars})
}

func (s *Server) handleReplaceEnv(w http.ResponseWriter, r *http.Request, me domain.User) {
	var req domain.EnvironmentSet
	if !decodeBody(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.ownedApp(w, r, me)
	if !ok {
		return
	}
	if app.IsPending() {
		writeError(w, http.StatusBadRequest, "application is not approved")
		return
	}
	seen := make(map[string]bool, len(req.Environments))
	for _, v := range req.Environments {
		if seen[v.Key] {
			writeError(w, http.StatusConflict, "duplicate environment key: "+v.Key)
			return
		}
		seen[v.Key] = true
	}
	s.envs[app.ID] = slices.Clone(req.Environments)
	writeJSON(w, http.StatusOK, domain.EnvironmentSet{Environments: req.Environments})
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, _ *http.Request, _ domain.User) {
	s.mu.Lock()
	users := make([]domain.User, 0, len(s.accounts))
	for _, acc := range s.accounts {
		users = append(users, acc.user)
	}
	s.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	writeJSON(w, http.StatusOK, domain.UserList{Users: users})
}

func (s *Server) userByIDLocked(id string) (domain.User, bool) {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc.user, true
		}
	}
	return domain.User{}, false
}

func (s *Server) handleAdminUser(w http.ResponseWriter, r *http.Request, _ domain.User) {
	s.mu.Lock()
	u, ok := s.userByIDLocked(mux.Vars(r)["id"])
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleAdminUserApps(w http.ResponseWriter, r *http.Request, _ domain.User) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.userByIDLocked(id); !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	apps := s.appsLocked(func(a *domain.Application) bool { return a.OwnerID == id })
	writeJSON(w, http.StatusOK, domain.ApplicationList{Applications: apps})
}

func (s *Server) handleAdminApps(w http.ResponseWriter, _ *http.Request, _ domain.User) {
	s.mu.Lock()
	apps := s.appsLocked(func(*domain.Application) bool { return true })
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, domain.ApplicationList{Applications: apps})
}

func (s *Server) adminApp(w http.ResponseWriter, r *http.Request) (*domain.Application, bool) {
	app, ok := s.apps[mux.Vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "application not found")
		return nil, false
	}
	return app, true
}

func (s *Server) handleAdminApp(w http.ResponseWriter, r *http.Request, _ domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.adminApp(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, *app)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request, _ domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.adminApp(w, r)
	if !ok {
		return
	}
	if !app.IsPending() {
		writeError(w, http.StatusConflict, "application is not pending")
		return
	}
	app.Status = domain.ApplicationStatusApproved
	if app.PrimaryHostname == "" {
		app.PrimaryHostname = app.Name + ".injunweb.com"
	}
	s.addNotificationLocked(app.OwnerID, "Application "+app.Name+" has been approved")
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "application approved"})
}

func (s *Server) handleCancelApprove(w http.ResponseWriter, r *http.Request, _ domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.adminApp(w, r)
	if !ok {
		return
	}
	if !app.IsApproved() {
		writeError(w, http.StatusConflict, "application is not approved")
		return
	}
	app.Status = domain.ApplicationStatusPending
	s.addNotificationLocked(app.OwnerID, "Approval of application "+app.Name+" has been cancelled")
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "approval cancelled"})
}

func (s *Server) handlePrimaryHostname(w http.ResponseWriter, r *http.Request, _ domain.User) {
	var req domain.HostnameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Hostname) == "" {
		writeError(w, http.StatusBadRequest, "hostname is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.adminApp(w, r)
	if !ok {
		return
	}
	app.PrimaryHostname = req.Hostname
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "primary hostname updated"})
}

func (s *Server) handleVAPIDKey(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.VAPIDKeyResponse{VAPIDPublicKey: DefaultVAPIDKey})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request, _ domain.User) {
	var sub domain.PushSubscription
	if !decodeBody(w, r, &sub) {
		return
	}
	if strings.TrimSpace(sub.Endpoint) == "" {
		writeError(w, http.StatusBadRequest, "endpoint is required")
		return
	}
	s.mu.Lock()
	s.subscriptions = append(s.subscriptions, sub)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, domain.MessageResponse{Message: "subscribed"})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, _ *http.Request, me domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[me.ID]
	for i := range list {
		list[i].IsRead = true
	}
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "notifications marked as read"})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, _ *http.Request, me domain.User) {
	s.mu.Lock()
	list := slices.Clone(s.notifications[me.ID])
	s.mu.Unlock()
	if list == nil {
		list = []domain.Notification{}
	}
	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	slices.Reverse(list)
	writeJSON(w, http.StatusOK, domain.NotificationList{Notifications: list, UnreadCount: unread})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request, me domain.User) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[me.ID]
	idx := slices.IndexFunc(list, func(n domain.Notification) bool { return n.ID == id })
	if idx < 0 {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	s.notifications[me.ID] = slices.Delete(list, idx, idx+1)
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "notification deleted"})
}
