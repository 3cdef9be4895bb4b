package domain

// LoginRequest is the JSON body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// LoginResponse carries the session token issued on login.
type LoginResponse struct {
	Token string `json:"token" yaml:"token"`
}

// RegisterRequest is the JSON body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
}

// UpdateUserRequest is the JSON body of PATCH /users. Empty fields are left
// unchanged by the server.
type UpdateUserRequest struct {
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// SubmitApplicationRequest is the JSON body of POST /applications.
type SubmitApplicationRequest struct {
	Name        string `json:"name" yaml:"name"`
	Port        int    `json:"port" yaml:"port"`
	GitURL      string `json:"git_url" yaml:"git_url"`
	Branch      string `json:"branch" yaml:"branch"`
	Description string `json:"description" yaml:"description"`
}

// HostnameRequest is the JSON body of the hostname endpoints.
type HostnameRequest struct {
	Hostname string `json:"hostname" yaml:"hostname"`
}

// ApplicationList is the envelope returned by application list endpoints.
type ApplicationList struct {
	Applications []Application `json:"applications" yaml:"applications"`
}

// UserList is the envelope returned by GET /admin/users.
type UserList struct {
	Users []User `json:"users" yaml:"users"`
}

// EnvironmentSet is both the response of GET and the body of POST
// /applications/{id}/environments. POST replaces the whole set.
type EnvironmentSet struct {
	Environments []EnvVar `json:"environments" yaml:"environments"`
}

// NotificationList is the envelope returned by GET /notifications.
type NotificationList struct {
	Notifications []Notification `json:"notifications" yaml:"notifications"`
	UnreadCount   int            `json:"unread_count" yaml:"unread_count"`
}

// VAPIDKeyResponse is the body of GET /notifications/vapid-public-key.
type VAPIDKeyResponse struct {
	VAPIDPublicKey string `json:"vapidPublicKey" yaml:"vapidPublicKey"`
}

// MessageResponse is the acknowledgement body returned by mutations.
type MessageResponse struct {
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// ErrorResponse is the JSON body returned by the server for structured errors.
type ErrorResponse struct {
	Error     string `json:"error" yaml:"error"`
	ErrorCode string `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
}
