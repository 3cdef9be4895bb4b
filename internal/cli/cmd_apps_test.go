package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/injunweb/injunctl/internal/domain"
)

func TestAppsListFormats(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	alice := h.srv.AddUser("alice", "alice@example.com", "pw", false)
	h.srv.AddApplication(alice, domain.Application{Name: "blog", Branch: "main", Status: domain.ApplicationStatusApproved, PrimaryHostname: "blog.injunweb.com"})
	h.srv.AddApplication(alice, domain.Application{Name: "shop", Branch: "dev"})
	h.login("alice", "pw")

	res := h.mustRun("apps", "list")
	for _, want := range []string{"NAME", "STATUS", "blog", "blog.injunweb.com", "shop", "Pending"} {
		if !strings.Contains(res.stdout, want) {
			t.Fatalf("text output missing %q:\n%s", want, res.stdout)
		}
	}

	res = h.mustRun("-o", "json", "apps", "list")
	var apps []domain.Application
	if err := json.Unmarshal([]byte(res.stdout), &apps); err != nil {
		t.Fatalf("decode json: %v\n%s", err, res.stdout)
	}
	if len(apps) != 2 {
		t.Fatalf("expected 2 applications, got %d", len(apps))
	}

	res = h.mustRun("--output", "yaml", "apps", "list")
	if !strings.Contains(res.stdout, "name: blog") || !strings.Contains(res.stdout, "git_url:") {
		t.Fatalf("unexpected yaml output:\n%s", res.stdout)
	}
}

func TestAppsSubmitAndValidation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.srv.AddUser("alice", "alice@example.com", "pw", false)
	h.login("alice", "pw")

	for _, args := range [][]string{
		{"apps", "submit", "--git-url", "https://github.com/a/b", "--port", "8080"},
		{"apps", "submit", "--name", "blog", "--git-url", "not a url", "--port", "8080"},
		{"apps", "submit", "--name", "blog", "--git-url", "https://github.com/a/b", "--port", "70000"},
	} {
		if res := h.run(args...); res.code != 2 {
			t.Fatalf("%v: expected exit 2, got %d %q", args, res.code, res.stderr)
		}
	}
	if n := h.srv.CountRequests("POST", "/applications"); n != 0 {
		t.Fatalf("invalid submissions reached the API %d times", n)
	}

	res := h.mustRun("apps", "submit", "--name", "blog", "--git-url", "https://github.com/a/b", "--port", "8080")
	if !strings.Contains(res.stdout, "awaiting approval") {
		t.Fatalf("unexpected submit output %q", res.stdout)
	}
	res = h.mustRun("-o", "json", "apps", "list")
	var apps []domain.Application
	if err := json.Unmarshal([]byte(res.stdout), &apps); err != nil {
		t.Fatal(err)
	}
	if len(apps) != 1 || apps[0].Branch != "main" || !apps[0].IsPending() {
		t.Fatalf("unexpected applications %+v", apps)
	}
}

func TestAppsDelete(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	alice := h.srv.AddUser("alice", "alice@example.com", "pw", false)
	app := h.srv.AddApplication(alice, domain.Application{Name: "blog"})
	h.login("alice", "pw")

	res := h.run("apps", "delete", app.ID)
	if res.code != 2 || !strings.Contains(res.stderr, "--yes") {
		t.Fatalf("expected confirmation refusal, got %d %q", res.code, res.stderr)
	}

	h.srv.FailNext("DELETE", "/applications/{id}", 500, 1)
	res = h.run("apps", "delete", app.ID, "--yes")
	if res.code != 1 {
		t.Fatalf("expected server failure, got %d", res.code)
	}
	if _, ok := h.srv.Application(app.ID); !ok {
		t.Fatal("application should survive a failed delete")
	}

	h.mustRun("apps", "delete", "-y", app.ID)
	if _, ok := h.srv.Application(app.ID); ok {
		t.Fatal("application still present after delete")
	}
	res = h.mustRun("apps", "list")
	if !strings.Contains(res.stdout, "No applications.") {
		t.Fatalf("unexpected list after delete %q", res.stdout)
	}
}

func TestAppsHostnames(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	alice := h.srv.AddUser("alice", "alice@example.com", "pw", false)
	pending := h.srv.AddApplication(alice, domain.Application{Name: "draft"})
	app := h.srv.AddApplication(alice, domain.Application{Name: "blog", Status: domain.ApplicationStatusApproved})
	h.login("alice", "pw")

	res := h.run("apps", "hostname", "add", pending.ID, "draft.example.com")
	if res.code != 1 || !strings.Contains(res.stderr, "pending approval") {
		t.Fatalf("expected pending refusal, got %d %q", res.code, res.stderr)
	}

	h.mustRun("apps", "hostname", "add", app.ID, "Blog.Example.com")
	got, _ := h.srv.Application(app.ID)
	if !slices.Contains(got.ExtraHostnames, "blog.example.com") {
		t.Fatalf("hostname not added: %+v", got.ExtraHostnames)
	}
	res = h.mustRun("apps", "show", app.ID)
	if !strings.Contains(res.stdout, "blog.example.com") {
		t.Fatalf("show missing hostname:\n%s", res.stdout)
	}

	h.mustRun("apps", "hostname", "remove", app.ID, "blog.example.com")
	got, _ = h.srv.Application(app.ID)
	if len(got.ExtraHostnames) != 0 {
		t.Fatalf("hostname not removed: %+v", got.ExtraHostnames)
	}
}

func TestEnvCommands(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	alice := h.srv.AddUser("alice", "alice@example.com", "pw", false)
	app := h.srv.AddApplication(alice, domain.Application{Name: "blog", Status: domain.ApplicationStatusApproved})
	h.login("alice", "pw")

	h.mustRun("env", "set", app.ID, "A=1", "B=x=y")
	want := []domain.EnvVar{{Key: "A", Value: "1"}, {Key: "B", Value: "x=y"}}
	if got := h.srv.Environment(app.ID); !slices.Equal(got, want) {
		t.Fatalf("environment = %+v, want %+v", got, want)
	}

	posts := h.srv.CountRequests("POST", "/applications/{id}/environments")
	res := h.run("env", "add", app.ID, "A=2")
	if res.code != 2 || !strings.Contains(res.stderr, "key already exists") {
		t.Fatalf("expected duplicate key refusal, got %d %q", res.code, res.stderr)
	}
	if n := h.srv.CountRequests("POST", "/applications/{id}/environments"); n != posts {
		t.Fatalf("duplicate key was sent to the server")
	}

	res = h.mustRun("env", "set", app.ID, "A=1")
	if !strings.Contains(res.stdout, "No changes.") {
		t.Fatalf("expected no-op, got %q", res.stdout)
	}
	if n := h.srv.CountRequests("POST", "/applications/{id}/environments"); n != posts {
		t.Fatalf("unchanged environment was sent to the server")
	}

	if res := h.run("env", "unset", app.ID, "MISSING"); res.code != 2 {
		t.Fatalf("expected missing key refusal, got %d %q", res.code, res.stderr)
	}
	h.mustRun("env", "unset", app.ID, "B")

	file := filepath.Join(h.dir, "app.env")
	if err := os.WriteFile(file, []byte("# deploy\nC=3\nA=\"9\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	h.mustRun("env", "import", app.ID, file)
	want = []domain.EnvVar{{Key: "A", Value: "9"}, {Key: "C", Value: "3"}}
	if got := h.srv.Environment(app.ID); !slices.Equal(got, want) {
		t.Fatalf("environment after import = %+v, want %+v", got, want)
	}

	if err := os.WriteFile(file, []byte("ONLY=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	h.mustRun("env", "import", app.ID, file, "--replace")
	res = h.mustRun("env", "show", app.ID)
	if !strings.Contains(res.stdout, "ONLY") || strings.Contains(res.stdout, "C ") {
		t.Fatalf("unexpected environment after replace:\n%s", res.stdout)
	}
}

func TestEnvRefusedWhilePending(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	alice := h.srv.AddUser("alice", "alice@example.com", "pw", false)
	app := h.srv.AddApplication(alice, domain.Application{Name: "draft"})
	h.login("alice", "pw")

	res := h.run("env", "set", app.ID, "A=1")
	if res.code != 1 || !strings.Contains(res.stderr, "pending approval") {
		t.Fatalf("expected pending refusal, got %d %q", res.code, res.stderr)
	}
	if n := h.srv.CountRequests("POST", "/applications/{id}/environments"); n != 0 {
		t.Fatalf("pending environment edit reached the API %d times", n)
	}
}
