// Package domain defines the injunweb resource types and wire schemas shared
// by the API client, the resource cache, and the command-line front end.
package domain

import (
	"strings"
	"time"
)

// Application status values reported by the server. Anything that is not
// Pending or Approved is treated as rejected/cancelled.
const (
	ApplicationStatusPending  = "Pending"
	ApplicationStatusApproved = "Approved"
	ApplicationStatusRejected = "Rejected"
)

// Application is a user-owned deployable unit backed by a Git repository.
type Application struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	GitURL          string    `json:"git_url" yaml:"git_url"`
	Branch          string    `json:"branch" yaml:"branch"`
	Port            int       `json:"port" yaml:"port"`
	Description     string    `json:"description" yaml:"description"`
	Status          string    `json:"status" yaml:"status"`
	PrimaryHostname string    `json:"primary_hostname,omitempty" yaml:"primary_hostname,omitempty"`
	ExtraHostnames  []string  `json:"extra_hostnames,omitempty" yaml:"extra_hostnames,omitempty"`
	OwnerID         string    `json:"owner_id,omitempty" yaml:"owner_id,omitempty"`
	OwnerUsername   string    `json:"owner_username,omitempty" yaml:"owner_username,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
}

// IsPending reports whether the application still awaits admin approval.
// Environment variables and custom hostnames are only editable once it is not.
func (a Application) IsPending() bool {
	return strings.EqualFold(strings.TrimSpace(a.Status), ApplicationStatusPending)
}

// IsApproved reports whether an admin approved the application.
func (a Application) IsApproved() bool {
	return strings.EqualFold(strings.TrimSpace(a.Status), ApplicationStatusApproved)
}

// EnvVar is one key/value pair of an application's environment.
type EnvVar struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Notification is a server-pushed inbox message.
type Notification struct {
	ID        string    `json:"id" yaml:"id"`
	Message   string    `json:"message" yaml:"message"`
	IsRead    bool      `json:"is_read" yaml:"is_read"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// User is an account record.
type User struct {
	ID        string    `json:"id" yaml:"id"`
	Username  string    `json:"username" yaml:"username"`
	Email     string    `json:"email" yaml:"email"`
	IsAdmin   bool      `json:"is_admin" yaml:"is_admin"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// PushSubscription is a browser push endpoint registered for notifications.
type PushSubscription struct {
	Endpoint string           `json:"endpoint" yaml:"endpoint"`
	Keys     PushSubscribeKey `json:"keys" yaml:"keys"`
}

// PushSubscribeKey holds the client keys of a [PushSubscription].
type PushSubscribeKey struct {
	P256dh string `json:"p256dh" yaml:"p256dh"`
	Auth   string `json:"auth" yaml:"auth"`
}
