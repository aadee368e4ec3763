// Package session owns the authenticated identity for one cs process: it
// restores a stored token, logs in and out, and tells interested parties
// (the messaging panel's channel) when the session ends.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/connectsphere/cli/internal/api"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNotLoggedIn is returned by operations that need an identity.
var ErrNotLoggedIn = errors.New("not logged in")

// Authenticator is the part of the REST client the session needs.
type Authenticator interface {
	Login(ctx context.Context, cred api.Credential) (string, *api.Identity, error)
	Register(ctx context.Context, name, email, password string) (string, error)
	Me(ctx context.Context) (*api.Identity, error)
}

// Session is created once at startup and passed down explicitly.
type Session struct {
	store TokenStore
	auth  Authenticator
	now   func() time.Time
	logf  func(format string, args ...any)

	mu       sync.RWMutex
	token    string
	identity *api.Identity
	hooks    []func()
}

// Option configures a Session.
type Option func(*Session)

// WithLogger routes debug lines to logf.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(s *Session) { s.logf = logf }
}

// WithClock overrides time.Now for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New returns a logged-out session backed by store.
func New(store TokenStore, auth Authenticator, opts ...Option) *Session {
	s := &Session{
		store: store,
		auth:  auth,
		now:   time.Now,
		logf:  func(string, ...any) {},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Restore resolves a stored token into an identity. Any failure means "not
// logged in" and yields nil. A token the server rejects, or one whose JWT
// exp has passed, is removed from the store; transient failures keep it.
func (s *Session) Restore(ctx context.Context) *api.Identity {
	tok, err := s.store.Load()
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			s.logf("session: load token: %v", err)
		}
		return nil
	}
	if tok == "" {
		return nil
	}
	if expired(tok, s.now()) {
		s.logf("session: stored token expired")
		s.clearStore()
		return nil
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()

	id, err := s.auth.Me(ctx)
	if err != nil || id == nil {
		s.mu.Lock()
		s.token = ""
		s.mu.Unlock()
		if errors.Is(err, api.ErrUnauthorized) {
			s.logf("session: stored token rejected")
			s.clearStore()
		} else {
			s.logf("session: restore failed: %v", err)
		}
		return nil
	}

	s.mu.Lock()
	s.identity = id
	s.mu.Unlock()
	return id
}

// Login exchanges cred for a token, persists it and sets the identity.
// A store failure is logged; the session still works for this process.
func (s *Session) Login(ctx context.Context, cred api.Credential) (*api.Identity, error) {
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	tok, id, err := s.auth.Login(ctx, cred)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(tok); err != nil {
		s.logf("session: save token: %v", err)
	}
	s.mu.Lock()
	s.token = tok
	s.identity = id
	s.mu.Unlock()
	return id, nil
}

// Register creates an account and returns the server's confirmation text.
func (s *Session) Register(ctx context.Context, name, email, password string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	if err := (api.Credential{Email: email, Password: password}).Validate(); err != nil {
		return "", err
	}
	return s.auth.Register(ctx, name, email, password)
}

// OnLogout registers fn to run when the session ends.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Logout clears the stored token and the identity, then runs the teardown
// hooks. It completes before returning.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.identity = nil
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	err := s.store.Clear()
	for _, fn := range hooks {
		fn()
	}
	return err
}

// Token is the bearer token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity is the logged-in user, or nil.
func (s *Session) Identity() *api.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *Session) LoggedIn() bool {
	return s.Identity() != nil
}

// Require returns the identity or ErrNotLoggedIn.
func (s *Session) Require() (*api.Identity, error) {
	if id := s.Identity(); id != nil {
		return id, nil
	}
	return nil, ErrNotLoggedIn
}

func (s *Session) clearStore() {
	if err := s.store.Clear(); err != nil {
		s.logf("session: clear token: %v", err)
	}
}

// expired reports whether tok is a JWT whose exp claim lies before now.
// Opaque tokens are left for the server to judge.
func expired(tok string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
