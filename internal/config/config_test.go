package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"INJUNWEB_API_URL", "INJUNWEB_SESSION_FILE", "INJUNWEB_CACHE_DB",
		"INJUNWEB_CACHE_TTL", "INJUNWEB_TIMEOUT", "INJUNWEB_LOG_LEVEL", "INJUNWEB_OUTPUT",
	} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestParseGlobalFlagsDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	cfg, rest, err := ParseGlobalFlags([]string{"apps", "list"})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(rest, []string{"apps", "list"}) {
		t.Fatalf("unexpected remaining args %v", rest)
	}
	if cfg.APIURL != "https://api.injunweb.com" || cfg.LogLevel != "warn" || cfg.Output != OutputText {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.CacheTTL != 30*time.Second || cfg.Timeout != 30*time.Second {
		t.Fatalf("unexpected durations %+v", cfg)
	}
	if cfg.SessionFile == "" || filepath.Base(cfg.CacheDB) != "cache.db" || !cfg.CacheEnabled() {
		t.Fatalf("unexpected paths %+v", cfg)
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("INJUNWEB_API_URL", "https://env.example.com")
	t.Setenv("INJUNWEB_LOG_LEVEL", "info")
	t.Setenv("INJUNWEB_CACHE_TTL", "2m")

	cfg, rest, err := ParseGlobalFlags([]string{"--api-url", "http://localhost:8080", "-o", "JSON", "--no-cache", "whoami", "--output", "yaml"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "http://localhost:8080" || cfg.Output != OutputJSON || cfg.LogLevel != "info" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.CacheTTL != 2*time.Minute || cfg.CacheEnabled() {
		t.Fatalf("unexpected cache settings %+v", cfg)
	}
	if !slices.Equal(rest, []string{"whoami", "--output", "yaml"}) {
		t.Fatalf("expected parsing to stop at the command, got %v", rest)
	}
}

func TestCacheDisabledByEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("INJUNWEB_CACHE_DB", "OFF")

	cfg, _, err := ParseGlobalFlags(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheEnabled() {
		t.Fatal("expected cache disabled")
	}
}

func TestParseGlobalFlagsValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "bad output", args: []string{"--output", "xml"}},
		{name: "bad level", args: []string{"--log-level", "loud"}},
		{name: "empty api url", args: []string{"--api-url", " "}},
		{name: "zero ttl", env: map[string]string{"INJUNWEB_CACHE_TTL": "0s"}},
		{name: "bad duration", env: map[string]string{"INJUNWEB_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, _, err := ParseGlobalFlags(tt.args); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestHelpFlag(t *testing.T) {
	clearEnv(t)
	_, _, err := ParseGlobalFlags([]string{"--help"})
	if !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("expected pflag.ErrHelp, got %v", err)
	}
}
