package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/injunweb/injunctl/internal/domain"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestDecodeClaims(t *testing.T) {
	t.Parallel()

	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	tok := mintToken(t, jwt.MapClaims{"exp": exp.Unix(), "is_admin": true, "sub": "42", "username": "alice"})
	claims, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Fatalf("expires: got %s, want %s", claims.ExpiresAt, exp)
	}
	if !claims.IsAdmin {
		t.Fatal("expected admin claim")
	}
	if claims.Subject != "42" || claims.Username != "alice" {
		t.Fatalf("unexpected identity claims: %+v", claims)
	}
}

func TestDecodeNumericSubject(t *testing.T) {
	t.Parallel()

	tok := mintToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix(), "sub": 42})
	claims, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "42" {
		t.Fatalf("subject = %q, want 42", claims.Subject)
	}
}

func TestDecodeMissingAdminClaimIsNotAdmin(t *testing.T) {
	t.Parallel()

	tok := mintToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	claims, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.IsAdmin {
		t.Fatal("expected missing is_admin to decode as non-admin")
	}
}

func TestDecodeInvalidTokens(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":       "",
		"garbage":     "not-a-token",
		"bad_payload": "eyJhbGciOiJIUzI1NiJ9.!!!.sig",
		"missing_exp": mintToken(t, jwt.MapClaims{"is_admin": true}),
	}
	for name, tok := range cases {
		tok := tok
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := Decode(tok); !errors.Is(err, domain.ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestIsLoggedInExpiryBoundary(t *testing.T) {
	t.Parallel()

	exp := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: exp.Add(-time.Hour)}
	store := NewMemoryStore(clock.Now)
	s := New(store, WithClock(clock.Now))
	if err := s.Set(mintToken(t, jwt.MapClaims{"exp": exp.Unix()})); err != nil {
		t.Fatal(err)
	}

	clock.t = exp.Add(-time.Second)
	if !s.IsLoggedIn() {
		t.Fatal("expected logged in one second before expiry")
	}
	clock.t = exp.Add(time.Second)
	if s.IsLoggedIn() {
		t.Fatal("expected logged out one second after expiry")
	}
	// Expired tokens are dropped on read and do not come back.
	clock.t = exp.Add(-time.Second)
	if s.IsLoggedIn() {
		t.Fatal("expected expired token to stay removed")
	}
}

func TestIsAdminRequiresLoginAndClaim(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Unix()
	cases := []struct {
		name      string
		claims    jwt.MapClaims
		wantAdmin bool
		wantState State
	}{
		{"admin", jwt.MapClaims{"exp": exp, "is_admin": true}, true, AuthenticatedAdmin},
		{"explicit_false", jwt.MapClaims{"exp": exp, "is_admin": false}, false, AuthenticatedUser},
		{"missing", jwt.MapClaims{"exp": exp}, false, AuthenticatedUser},
		{"non_bool", jwt.MapClaims{"exp": exp, "is_admin": "yes"}, false, AuthenticatedUser},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := New(NewMemoryStore(nil))
			if err := s.Set(mintToken(t, tc.claims)); err != nil {
				t.Fatal(err)
			}
			if got := s.IsAdmin(); got != tc.wantAdmin {
				t.Fatalf("IsAdmin: got %v, want %v", got, tc.wantAdmin)
			}
			if got := s.State(); got != tc.wantState {
				t.Fatalf("State: got %s, want %s", got, tc.wantState)
			}
		})
	}

	empty := New(NewMemoryStore(nil))
	if empty.IsAdmin() {
		t.Fatal("expected empty session not to be admin")
	}
}

func TestSetRejectsUndecodableToken(t *testing.T) {
	t.Parallel()

	s := New(NewMemoryStore(nil))
	if err := s.Set("garbage"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if s.IsLoggedIn() {
		t.Fatal("expected no session after rejected token")
	}
}

func TestSubscribeReceivesStateChanges(t *testing.T) {
	t.Parallel()

	s := New(NewMemoryStore(nil))
	var got []State
	unsubscribe := s.Subscribe(func(st State) { got = append(got, st) })

	if err := s.Set(mintToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix(), "is_admin": true})); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	unsubscribe()
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}

	want := []State{AuthenticatedAdmin, Unauthenticated}
	if len(got) != len(want) {
		t.Fatalf("notifications: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notification %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path, nil)
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	tok := mintToken(t, jwt.MapClaims{"exp": exp.Unix(), "is_admin": true})

	if err := store.Set(tok); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := NewFileStore(path, nil).Get()
	if !ok {
		t.Fatal("expected token after reload")
	}
	orig, err := Decode(tok)
	if err != nil {
		t.Fatal(err)
	}
	reloaded, err := Decode(got)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.ExpiresAt.Equal(orig.ExpiresAt) || reloaded.IsAdmin != orig.IsAdmin {
		t.Fatalf("claims changed across round trip: %+v vs %+v", reloaded, orig)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 session file, got %o", perm)
	}
}

func TestFileStoreRemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, nil)
	if err := store.Set(mintToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := store.Remove(); err != nil {
			t.Fatalf("Remove #%d: %v", i+1, err)
		}
		if _, ok := store.Get(); ok {
			t.Fatalf("expected no token after Remove #%d", i+1)
		}
	}
}

func TestFileStoreDropsExpiredCookie(t *testing.T) {
	t.Parallel()

	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: exp.Add(-time.Minute)}
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, clock.Now)
	if err := store.Set(mintToken(t, jwt.MapClaims{"exp": exp.Unix()})); err != nil {
		t.Fatal(err)
	}
	clock.t = exp
	if _, ok := store.Get(); ok {
		t.Fatal("expected expired cookie to be absent")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected session file to be removed, stat err=%v", err)
	}
}

func TestFileStoreCorruptFileReadsAsLoggedOut(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(NewFileStore(path, nil))
	if s.IsLoggedIn() {
		t.Fatal("expected corrupt session file to read as logged out")
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear on corrupt file: %v", err)
	}
}

func TestFileStoreKeepsNavigationAcrossTokenChanges(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, nil)
	if err := store.SaveNavigation("/login", "/admin/users"); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(mintToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(); err != nil {
		t.Fatal(err)
	}
	loc, ret := store.LoadNavigation()
	if loc != "/login" || ret != "/admin/users" {
		t.Fatalf("navigation lost: location=%q return_to=%q", loc, ret)
	}
}

func TestDefaultPathHonoursEnv(t *testing.T) {
	t.Setenv("INJUNWEB_SESSION_FILE", "/tmp/custom-session.json")
	if got := DefaultPath(); got != "/tmp/custom-session.json" {
		t.Fatalf("got %q", got)
	}

	t.Setenv("INJUNWEB_SESSION_FILE", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got, want := DefaultPath(), filepath.Join("/xdg", "injunweb", "session.json"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
