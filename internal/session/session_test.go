package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/connectsphere/cli/internal/api"
	"github.com/golang-jwt/jwt/v5"
	"github.com/zalando/go-keyring"
)

type fakeAuth struct {
	meCalls  int
	me       *api.Identity
	meErr    error
	loginTok string
	loginErr error
}

func (f *fakeAuth) Login(ctx context.Context, cred api.Credential) (string, *api.Identity, error) {
	if f.loginErr != nil {
		return "", nil, f.loginErr
	}
	return f.loginTok, &api.Identity{ID: "u1", DisplayName: "Ada"}, nil
}

func (f *fakeAuth) Register(ctx context.Context, name, email, password string) (string, error) {
	return "registered", nil
}

func (f *fakeAuth) Me(ctx context.Context) (*api.Identity, error) {
	f.meCalls++
	return f.me, f.meErr
}

type memStore struct {
	tok     string
	saveErr error
	cleared int
}

func (m *memStore) Load() (string, error) {
	if m.tok == "" {
		return "", ErrNoToken
	}
	return m.tok, nil
}

func (m *memStore) Save(tok string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.tok = tok
	return nil
}

func (m *memStore) Clear() error {
	m.tok = ""
	m.cleared++
	return nil
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "u1", "exp": exp.Unix()}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestRestore(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name        string
		token       func(t *testing.T) string
		meErr       error
		wantID      bool
		wantMeCalls int
		wantCleared bool
	}{
		{"no token", func(*testing.T) string { return "" }, nil, false, 0, false},
		{"valid token", func(t *testing.T) string { return signed(t, now.Add(time.Hour)) }, nil, true, 1, false},
		{"expired token skips network", func(t *testing.T) string { return signed(t, now.Add(-time.Minute)) }, nil, false, 0, true},
		{"opaque token", func(*testing.T) string { return "opaque" }, nil, true, 1, false},
		{"rejected token", func(t *testing.T) string { return signed(t, now.Add(time.Hour)) }, &api.APIError{StatusCode: 401, Message: "Token invalid"}, false, 1, true},
		{"transient failure keeps token", func(t *testing.T) string { return signed(t, now.Add(time.Hour)) }, errors.New("connection refused"), false, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{tok: tt.token(t)}
			auth := &fakeAuth{me: &api.Identity{ID: "u1"}, meErr: tt.meErr}
			s := New(store, auth, WithClock(func() time.Time { return now }))

			id := s.Restore(context.Background())
			if (id != nil) != tt.wantID {
				t.Fatalf("Restore() = %+v, wantID %v", id, tt.wantID)
			}
			if auth.meCalls != tt.wantMeCalls {
				t.Fatalf("Me calls = %d, want %d", auth.meCalls, tt.wantMeCalls)
			}
			if (store.cleared > 0) != tt.wantCleared {
				t.Fatalf("cleared = %d, wantCleared %v", store.cleared, tt.wantCleared)
			}
			if !tt.wantID && s.Token() != "" {
				t.Fatalf("Token() = %q after failed restore", s.Token())
			}
			if s.LoggedIn() != tt.wantID {
				t.Fatalf("LoggedIn() = %v", s.LoggedIn())
			}
		})
	}
}

func TestLoginPersistsToken(t *testing.T) {
	store := &memStore{}
	s := New(store, &fakeAuth{loginTok: "jwt-1"})

	id, err := s.Login(context.Background(), api.Credential{Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if id.ID != "u1" || s.Token() != "jwt-1" || store.tok != "jwt-1" {
		t.Fatalf("id=%+v token=%q stored=%q", id, s.Token(), store.tok)
	}
}

func TestLoginRejectsInvalidCredential(t *testing.T) {
	s := New(&memStore{}, &fakeAuth{loginTok: "jwt-1"})
	if _, err := s.Login(context.Background(), api.Credential{Email: "not-an-email", Password: "pw"}); err == nil {
		t.Fatal("expected validation error")
	}
	if s.LoggedIn() {
		t.Fatal("session should stay logged out")
	}
}

func TestLoginSurvivesStoreFailure(t *testing.T) {
	s := New(&memStore{saveErr: errors.New("locked")}, &fakeAuth{loginTok: "jwt-1"})
	if _, err := s.Login(context.Background(), api.Credential{Email: "ada@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if !s.LoggedIn() {
		t.Fatal("expected logged in")
	}
}

func TestLogoutClearsAndRunsHooks(t *testing.T) {
	store := &memStore{}
	s := New(store, &fakeAuth{loginTok: "jwt-1"})
	if _, err := s.Login(context.Background(), api.Credential{Email: "ada@example.com", Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	var closed int
	s.OnLogout(func() { closed++ })

	if err := s.Logout(); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if closed != 1 {
		t.Fatalf("hook ran %d times", closed)
	}
	if s.LoggedIn() || s.Token() != "" || store.tok != "" {
		t.Fatal("session state not cleared")
	}
	if _, err := s.Require(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("Require() = %v", err)
	}
	_ = s.Logout()
	if closed != 1 {
		t.Fatal("hooks must run once")
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.token")
	fs := FileStore{Path: path}

	if _, err := fs.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Load() on empty = %v", err)
	}
	if err := fs.Save("jwt-1"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
	tok, err := fs.Load()
	if err != nil || tok != "jwt-1" {
		t.Fatalf("Load() = %q, %v", tok, err)
	}
	if err := fs.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Load() after Clear = %v", err)
	}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	ks := KeyringStore{User: "api.example.com"}

	if _, err := ks.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Load() on empty = %v", err)
	}
	if err := ks.Save("jwt-2"); err != nil {
		t.Fatal(err)
	}
	if tok, err := ks.Load(); err != nil || tok != "jwt-2" {
		t.Fatalf("Load() = %q, %v", tok, err)
	}
	if err := ks.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := ks.Clear(); err != nil {
		t.Fatalf("second Clear() = %v", err)
	}
}

func TestFallbackStore(t *testing.T) {
	keyring.MockInitWithError(errors.New("no keyring daemon"))
	defer keyring.MockInit()

	file := FileStore{Path: filepath.Join(t.TempDir(), "session.token")}
	s := FallbackStore{Primary: KeyringStore{User: "host"}, Secondary: file}

	if err := s.Save("jwt-3"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if tok, err := s.Load(); err != nil || tok != "jwt-3" {
		t.Fatalf("Load() = %q, %v", tok, err)
	}
	if tok, _ := file.Load(); tok != "jwt-3" {
		t.Fatalf("secondary not used, got %q", tok)
	}
}

func TestFallbackStoreWithoutKeyring(t *testing.T) {
	keyring.MockInitWithError(errors.New("org.freedesktop.secrets was not provided"))
	defer keyring.MockInit()

	file := FileStore{Path: filepath.Join(t.TempDir(), "session.token")}
	s := FallbackStore{Primary: KeyringStore{User: "host"}, Secondary: file}

	if _, err := s.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Load() on empty = %v, want ErrNoToken", err)
	}
	if err := s.Save("jwt-4"); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() = %v", err)
	}
	if _, err := s.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Load() after Clear = %v, want ErrNoToken", err)
	}
	if _, err := file.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("token file still present: %v", err)
	}
}

type brokenStore struct{ err error }

func (b brokenStore) Load() (string, error) { return "", b.err }
func (b brokenStore) Save(string) error     { return b.err }
func (b brokenStore) Clear() error          { return b.err }

func TestFallbackStoreBothBroken(t *testing.T) {
	s := FallbackStore{Primary: brokenStore{errors.New("keyring down")}, Secondary: brokenStore{errors.New("disk full")}}
	if err := s.Clear(); err == nil {
		t.Fatal("Clear() should fail when both stores fail")
	}
	if _, err := s.Load(); err == nil || errors.Is(err, ErrNoToken) {
		t.Fatalf("Load() = %v, want a real error", err)
	}
}
