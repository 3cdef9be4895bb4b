package cli

import (
	"io"
	"os/exec"
	"strings"
)

func printUsage(w io.Writer) {
	fprintln(w, `injunctl - injunweb platform client

Deploy applications from Git, manage their hostnames and environment,
and, for admins, review submissions.

Usage:
  injunctl [global flags] <command> [flags]

Account:
  injunctl login [-u USER] [--password-file F]   Log in and store the session
  injunctl register -u USER --email E            Create an account
  injunctl logout                                Forget the session and cache
  injunctl whoami                                Show the logged-in user
  injunctl status                                Show session and client state
  injunctl profile show                          Show your profile
  injunctl profile update [--username U] [--email E] [--password-file F]

Applications:
  injunctl apps list [--refresh]                 List your applications
  injunctl apps show ID                          Show one application
  injunctl apps submit --name N --git-url URL --port P [--branch B] [--description D]
  injunctl apps delete ID [--yes]                Delete an application
  injunctl apps hostname add|remove ID HOST      Manage custom hostnames
  injunctl env show ID                           Show environment variables
  injunctl env add|set ID KEY=VALUE...           Add or upsert variables
  injunctl env unset ID KEY...                   Remove variables
  injunctl env import ID FILE [--replace]        Load variables from a dotenv file

Notifications:
  injunctl notifications list|read|delete ID|vapid-key
  injunctl notifications subscribe --endpoint URL --p256dh KEY --auth SECRET

Admin:
  injunctl admin users|user ID|user-apps ID
  injunctl admin apps|app ID|approve ID|cancel-approve ID
  injunctl admin primary-hostname ID HOST

Global Flags:
  --api-url URL         API base URL (default https://api.injunweb.com)
  --log-level LEVEL     debug|info|warn|error (default warn)
  -o, --output FORMAT   text|json|yaml (default text)
  --session-file PATH   Session file
  --no-cache            Skip the persistent cache

Environment Variables:
  INJUNWEB_API_URL        API base URL
  INJUNWEB_SESSION_FILE   Session file (default: user config dir)
  INJUNWEB_CACHE_DB       Cache database path, "off" disables it
  INJUNWEB_CACHE_TTL      Cache freshness window (default: 30s)
  INJUNWEB_TIMEOUT        HTTP timeout (default: 30s)
  INJUNWEB_LOG_LEVEL      Log level
  INJUNWEB_OUTPUT         Output format
  INJUNWEB_USERNAME       Default login username

Settings are also read from INJUNWEB_* entries of ./.env.`)
}

// Version is set at build time via -ldflags.
var Version = "dev"

func init() {
	if Version == "dev" {
		if desc, err := exec.Command("git", "describe", "--tags", "--always").Output(); err == nil {
			if v := strings.TrimSpace(string(desc)); v != "" {
				Version = v + "-dev"
			}
		}
	}
	Version = ensureVPrefix(Version)
}

// ensureVPrefix normalizes release versions to start with "v"; "dev" is
// left alone.
func ensureVPrefix(s string) string {
	if s == "" || s == "dev" || strings.HasPrefix(s, "v") {
		return s
	}
	return "v" + s
}

func printVersion(w io.Writer) {
	fprintln(w, "injunctl", Version)
}
