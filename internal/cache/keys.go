package cache

import "strings"

// Key identifies one cached resource.
type Key string

// Fixed resource keys.
const (
	KeyApplications      Key = "applications"
	KeyNotifications     Key = "notifications"
	KeyUser              Key = "user"
	KeyAdminUsers        Key = "admin:users"
	KeyAdminApplications Key = "admin:applications"
	KeyVAPIDPublicKey    Key = "vapid-key"
)

// Application is the key of one of the caller's applications.
func Application(id string) Key { return Key("application:" + id) }

// Environments is the key of an application's environment set.
func Environments(appID string) Key { return Key("environments:" + appID) }

// AdminUser is the key of a user as seen by an administrator.
func AdminUser(id string) Key { return Key("admin:user:" + id) }

// AdminUserApplications is the key of the applications owned by a user, as
// seen by an administrator.
func AdminUserApplications(id string) Key { return Key("admin:user-applications:" + id) }

// AdminApplication is the key of an application as seen by an administrator.
func AdminApplication(id string) Key { return Key("admin:application:" + id) }

// HasPrefix reports whether k starts with prefix.
func (k Key) HasPrefix(prefix string) bool {
	return strings.HasPrefix(string(k), prefix)
}
