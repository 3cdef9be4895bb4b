package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CookieName is the name the session token is persisted under.
const CookieName = "authToken"

// TokenStore persists the session token between runs.
type TokenStore interface {
	// Get returns the stored token, or false when there is none or it
	// has passed its recorded expiry.
	Get() (string, bool)
	// Set stores token with an expiry equal to the token's own exp claim.
	Set(token string) error
	// Remove clears the token. Removing an absent token is not an error.
	Remove() error
}

// cookieRecord mirrors the browser cookie the dashboard used: a named value
// that the jar stops returning once Expires has passed.
type cookieRecord struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires"`
}

type sessionFile struct {
	Cookie   *cookieRecord `json:"cookie,omitempty"`
	Location string        `json:"location,omitempty"`
	ReturnTo string        `json:"return_to,omitempty"`
}

// DefaultPath returns the session file location. INJUNWEB_SESSION_FILE wins,
// then $XDG_CONFIG_HOME/injunweb/session.json, then ~/.config/injunweb.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv("INJUNWEB_SESSION_FILE")); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "injunweb-session.json")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "injunweb", "session.json")
}

// FileStore keeps the token in a JSON session file with 0600 permissions.
// The same file also records the last dashboard location so that a later
// login can resume where the user was sent away from.
type FileStore struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewFileStore returns a store backed by the file at path. A nil now uses
// [time.Now].
func NewFileStore(path string, now func() time.Time) *FileStore {
	if now == nil {
		now = time.Now
	}
	return &FileStore{path: path, now: now}
}

// Path returns the absolute path to the session file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil || f.Cookie == nil || strings.TrimSpace(f.Cookie.Value) == "" {
		return "", false
	}
	if !f.Cookie.Expires.IsZero() && !s.now().Before(f.Cookie.Expires) {
		f.Cookie = nil
		_ = s.write(f)
		return "", false
	}
	return f.Cookie.Value, true
}

func (s *FileStore) Set(token string) error {
	claims, err := Decode(token)
	if err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		f = sessionFile{}
	}
	f.Cookie = &cookieRecord{
		Name:    CookieName,
		Value:   strings.TrimSpace(token),
		Expires: claims.ExpiresAt,
	}
	return s.write(f)
}

func (s *FileStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		// An unreadable file holds no usable token; drop it.
		if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("removing session file %s: %w", s.path, rmErr)
		}
		return nil
	}
	if f.Cookie == nil {
		return nil
	}
	f.Cookie = nil
	return s.write(f)
}

// LoadNavigation returns the persisted dashboard location and the location
// preserved for after login.
func (s *FileStore) LoadNavigation() (location, returnTo string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return "", ""
	}
	return f.Location, f.ReturnTo
}

// SaveNavigation persists the dashboard location and return-to location.
func (s *FileStore) SaveNavigation(location, returnTo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		f = sessionFile{}
	}
	f.Location = location
	f.ReturnTo = returnTo
	return s.write(f)
}

func (s *FileStore) read() (sessionFile, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return sessionFile{}, err
	}
	var f sessionFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return sessionFile{}, fmt.Errorf("parsing session file %s: %w", s.path, err)
	}
	return f, nil
}

func (s *FileStore) write(f sessionFile) error {
	if f.Cookie == nil && f.Location == "" && f.ReturnTo == "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing session file %s: %w", s.path, err)
		}
		return nil
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	b = append(b, '\n')
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating session directory %s: %w", dir, err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("writing session file %s: %w", s.path, err)
	}
	return nil
}

// MemoryStore is an in-process [TokenStore] with the same expiry semantics
// as [FileStore].
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	token   string
	expires time.Time
}

// NewMemoryStore returns an empty store. A nil now uses [time.Now].
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now}
}

func (s *MemoryStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", false
	}
	if !s.now().Before(s.expires) {
		s.token, s.expires = "", time.Time{}
		return "", false
	}
	return s.token, true
}

func (s *MemoryStore) Set(token string) error {
	claims, err := Decode(token)
	if err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
	s.expires = claims.ExpiresAt
	return nil
}

func (s *MemoryStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.expires = "", time.Time{}
	return nil
}
