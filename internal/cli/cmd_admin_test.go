package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/injunweb/injunctl/internal/apitest"
	"github.com/injunweb/injunctl/internal/domain"
)

func TestAdminReviewFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	alice := h.srv.AddUser("alice", "alice@example.com", "pw", false)
	h.srv.AddUser("root", "root@example.com", "rootpw", true)
	app := h.srv.AddApplication(alice, domain.Application{Name: "blog"})
	h.login("root", "rootpw")

	res := h.mustRun("admin", "apps")
	for _, want := range []string{"OWNER", "alice", "blog", "Pending"} {
		if !strings.Contains(res.stdout, want) {
			t.Fatalf("admin apps missing %q:\n%s", want, res.stdout)
		}
	}
	res = h.mustRun("admin", "users")
	if !strings.Contains(res.stdout, "alice@example.com") || !strings.Contains(res.stdout, "root") {
		t.Fatalf("admin users output:\n%s", res.stdout)
	}

	res = h.mustRun("admin", "approve", app.ID)
	if !strings.Contains(res.stdout, "approved") {
		t.Fatalf("unexpected approve output %q", res.stdout)
	}
	res = h.mustRun("-o", "json", "admin", "app", app.ID)
	var got domain.Application
	if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
		t.Fatal(err)
	}
	if !got.IsApproved() || got.PrimaryHostname == "" {
		t.Fatalf("unexpected application after approve %+v", got)
	}

	h.mustRun("admin", "primary-hostname", app.ID, "Blog.Injunweb.com")
	if stored, _ := h.srv.Application(app.ID); stored.PrimaryHostname != "blog.injunweb.com" {
		t.Fatalf("primary hostname = %q", stored.PrimaryHostname)
	}

	res = h.mustRun("-o", "json", "admin", "user-apps", alice.ID)
	var apps []domain.Application
	if err := json.Unmarshal([]byte(res.stdout), &apps); err != nil {
		t.Fatal(err)
	}
	if len(apps) != 1 || apps[0].PrimaryHostname != "blog.injunweb.com" {
		t.Fatalf("unexpected user applications %+v", apps)
	}

	h.mustRun("admin", "cancel-approve", app.ID)
	if stored, _ := h.srv.Application(app.ID); !stored.IsPending() {
		t.Fatalf("expected pending after cancel, got %q", stored.Status)
	}
	res = h.run("admin", "cancel-approve", app.ID)
	if res.code != 1 || !strings.Contains(res.stderr, "not approved") {
		t.Fatalf("expected conflict, got %d %q", res.code, res.stderr)
	}

	res = h.mustRun("admin", "user", alice.ID)
	if !strings.Contains(res.stdout, "alice@example.com") {
		t.Fatalf("admin user output:\n%s", res.stdout)
	}
	res = h.run("admin", "user", "999")
	if res.code != 1 || !strings.Contains(res.stderr, "not found") {
		t.Fatalf("expected not found, got %d %q", res.code, res.stderr)
	}
}

func TestNotificationsCommands(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	alice := h.srv.AddUser("alice", "alice@example.com", "pw", false)
	first := h.srv.AddNotification(alice, "Application blog has been approved")
	h.srv.AddNotification(alice, "Welcome")
	h.login("alice", "pw")

	res := h.mustRun("notifications", "list")
	if !strings.Contains(res.stdout, "2 unread") || !strings.Contains(res.stdout, "Welcome") {
		t.Fatalf("unexpected list:\n%s", res.stdout)
	}

	h.mustRun("notifications", "read")
	res = h.mustRun("-o", "json", "notifications", "list")
	var list domain.NotificationList
	if err := json.Unmarshal([]byte(res.stdout), &list); err != nil {
		t.Fatal(err)
	}
	if list.UnreadCount != 0 || len(list.Notifications) != 2 {
		t.Fatalf("unexpected list after read %+v", list)
	}

	h.mustRun("notifications", "delete", first.ID)
	res = h.mustRun("notifications", "list")
	if strings.Contains(res.stdout, "approved") {
		t.Fatalf("deleted notification still listed:\n%s", res.stdout)
	}

	res = h.mustRun("notifications", "vapid-key")
	if strings.TrimSpace(res.stdout) != apitest.DefaultVAPIDKey {
		t.Fatalf("vapid key = %q", res.stdout)
	}

	res = h.run("notifications", "subscribe", "--endpoint", "http://push.example.com/x", "--p256dh", "k", "--auth", "a")
	if res.code != 2 {
		t.Fatalf("expected non-https endpoint refusal, got %d %q", res.code, res.stderr)
	}
	h.mustRun("notifications", "subscribe", "--endpoint", "https://push.example.com/x", "--p256dh", "k", "--auth", "a")
	subs := h.srv.Subscriptions()
	if len(subs) != 1 || subs[0].Keys.P256dh != "k" {
		t.Fatalf("unexpected subscriptions %+v", subs)
	}
}
