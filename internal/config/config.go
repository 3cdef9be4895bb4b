// Package config resolves injunctl settings from the environment and the
// global command-line flags. Flags win over environment variables, which
// win over defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"

	"github.com/injunweb/injunctl/internal/log"
	"github.com/injunweb/injunctl/internal/session"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// CacheDisabled as INJUNWEB_CACHE_DB turns persistent caching off.
const CacheDisabled = "off"

type ClientConfig struct {
	APIURL      string        `env:"INJUNWEB_API_URL" envDefault:"https://api.injunweb.com"`
	SessionFile string        `env:"INJUNWEB_SESSION_FILE"`
	CacheDB     string        `env:"INJUNWEB_CACHE_DB"`
	CacheTTL    time.Duration `env:"INJUNWEB_CACHE_TTL" envDefault:"30s"`
	Timeout     time.Duration `env:"INJUNWEB_TIMEOUT" envDefault:"30s"`
	LogLevel    string        `env:"INJUNWEB_LOG_LEVEL" envDefault:"warn"`
	Output      string        `env:"INJUNWEB_OUTPUT" envDefault:"text"`

	NoCache bool
}

// CacheEnabled reports whether a persistent cache database should be opened.
func (c ClientConfig) CacheEnabled() bool {
	return !c.NoCache && c.CacheDB != "" && !strings.EqualFold(c.CacheDB, CacheDisabled)
}

// Load reads the environment into a config with defaults applied.
func Load() (ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if strings.TrimSpace(cfg.SessionFile) == "" {
		cfg.SessionFile = session.DefaultPath()
	}
	if strings.TrimSpace(cfg.CacheDB) == "" {
		cfg.CacheDB = DefaultCachePath()
	}
	return cfg, nil
}

// ParseGlobalFlags loads the environment, applies the global flags that
// precede the command name in args and returns the remaining arguments.
func ParseGlobalFlags(args []string) (ClientConfig, []string, error) {
	cfg, err := Load()
	if err != nil {
		return cfg, nil, err
	}

	fs := GlobalFlagSet(&cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	return cfg, fs.Args(), nil
}

// GlobalFlagSet binds the global flags to cfg. Parsing stops at the first
// non-flag argument, the command name.
func GlobalFlagSet(cfg *ClientConfig) *pflag.FlagSet {
	fs := pflag.NewFlagSet("injunctl", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)
	fs.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "API base URL")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error")
	fs.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text|json|yaml")
	fs.StringVar(&cfg.SessionFile, "session-file", cfg.SessionFile, "Session file path")
	fs.BoolVar(&cfg.NoCache, "no-cache", cfg.NoCache, "Do not read or write the persistent cache")
	return fs
}

// Validate normalizes cfg and rejects unusable values.
func (c *ClientConfig) Validate() error {
	c.APIURL = strings.TrimSpace(c.APIURL)
	if c.APIURL == "" {
		return errors.New("missing --api-url or INJUNWEB_API_URL")
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if !log.ValidLevel(c.LogLevel) {
		return fmt.Errorf("log level must be one of: debug, info, warn, error (got %q)", c.LogLevel)
	}
	c.Output = strings.ToLower(strings.TrimSpace(c.Output))
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("output must be one of: text, json, yaml (got %q)", c.Output)
	}
	if c.CacheTTL <= 0 {
		return errors.New("cache ttl must be > 0")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be > 0")
	}
	return nil
}

// DefaultCachePath is the persistent cache database location:
// $XDG_CACHE_HOME/injunweb/cache.db or its platform equivalent.
func DefaultCachePath() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "injunweb", "cache.db")
	}
	return filepath.Join(os.TempDir(), "injunweb-cache.db")
}
