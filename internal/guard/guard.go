// Package guard gates dashboard locations on the session state. [Decide]
// is the pure permit-or-redirect rule; [Router] maps locations to routes;
// [Navigator] applies both and remembers where an anonymous visitor was
// heading so login can send them back there.
package guard

import "github.com/injunweb/injunctl/internal/session"

// Well-known locations.
const (
	RootPath    = "/"
	LoginPath   = "/login"
	LandingPath = "/applications"
)

// Kind is the access class of a route.
type Kind int

const (
	// PublicOnly routes are for visitors without a session (login, register).
	PublicOnly Kind = iota
	// Private routes need any valid session.
	Private
	// AdminOnly routes need a session with the admin claim.
	AdminOnly
)

func (k Kind) String() string {
	switch k {
	case PublicOnly:
		return "public"
	case Private:
		return "private"
	case AdminOnly:
		return "admin"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a guard check. When Allow is false the
// visitor goes to RedirectTo. From is set when the requested location must
// be kept for after login.
type Decision struct {
	Allow      bool
	RedirectTo string
	From       string
}

// Decide applies the guard of kind to a visitor in state who requested
// location.
func Decide(kind Kind, state session.State, location string) Decision {
	switch kind {
	case PublicOnly:
		if state != session.Unauthenticated {
			return Decision{RedirectTo: LandingPath}
		}
	case Private:
		if state == session.Unauthenticated {
			return Decision{RedirectTo: LoginPath, From: location}
		}
	case AdminOnly:
		switch state {
		case session.Unauthenticated:
			return Decision{RedirectTo: LoginPath, From: location}
		case session.AuthenticatedUser:
			return Decision{RedirectTo: LandingPath}
		}
	}
	return Decision{Allow: true}
}
