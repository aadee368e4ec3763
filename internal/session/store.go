package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/zalando/go-keyring"
)

// ErrNoToken is returned by Load when nothing is stored.
var ErrNoToken = errors.New("no stored token")

// TokenStore persists the auth token across runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// KeyringService is the service name used for OS keyring entries.
const KeyringService = "connectsphere"

// KeyringStore keeps the token in the OS keyring, one entry per server.
type KeyringStore struct {
	Service string
	User    string
}

func (k KeyringStore) service() string {
	if k.Service == "" {
		return KeyringService
	}
	return k.Service
}

func (k KeyringStore) Load() (string, error) {
	tok, err := keyring.Get(k.service(), k.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("keyring get: %w", err)
	}
	return tok, nil
}

func (k KeyringStore) Save(token string) error {
	if err := keyring.Set(k.service(), k.User, token); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

func (k KeyringStore) Clear() error {
	err := keyring.Delete(k.service(), k.User)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}

// FileStore keeps the token in a 0600 file. A sibling .lock file serialises
// concurrent cs processes.
type FileStore struct {
	Path string
}

func (f FileStore) lock() *flock.Flock {
	return flock.New(f.Path + ".lock")
}

func (f FileStore) Load() (string, error) {
	if _, err := os.Stat(f.Path); errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	l := f.lock()
	if err := l.RLock(); err != nil {
		return "", fmt.Errorf("lock token file: %w", err)
	}
	defer l.Unlock()

	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

func (f FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	l := f.lock()
	if err := l.Lock(); err != nil {
		return fmt.Errorf("lock token file: %w", err)
	}
	defer l.Unlock()

	if err := os.WriteFile(f.Path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	return os.Chmod(f.Path, 0o600)
}

func (f FileStore) Clear() error {
	if _, err := os.Stat(filepath.Dir(f.Path)); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	l := f.lock()
	if err := l.Lock(); err != nil {
		return fmt.Errorf("lock token file: %w", err)
	}
	defer l.Unlock()

	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// FallbackStore prefers Primary and uses Secondary when Primary is
// unavailable, e.g. a headless box without a keyring daemon.
type FallbackStore struct {
	Primary   TokenStore
	Secondary TokenStore
}

func (s FallbackStore) Load() (string, error) {
	tok, err := s.Primary.Load()
	if err == nil {
		return tok, nil
	}
	tok2, err2 := s.Secondary.Load()
	switch {
	case err2 == nil:
		return tok2, nil
	case errors.Is(err2, ErrNoToken):
		// an unreachable primary holds nothing either
		return "", ErrNoToken
	case errors.Is(err, ErrNoToken):
		return "", err2
	}
	return "", errors.Join(err, err2)
}

func (s FallbackStore) Save(token string) error {
	if err := s.Primary.Save(token); err != nil {
		if err2 := s.Secondary.Save(token); err2 != nil {
			return errors.Join(err, err2)
		}
		return nil
	}
	// drop any older copy so Load cannot resurrect it
	_ = s.Secondary.Clear()
	return nil
}

// Clear fails only when neither store could be cleared.
func (s FallbackStore) Clear() error {
	err := s.Primary.Clear()
	err2 := s.Secondary.Clear()
	if err != nil && err2 != nil {
		return errors.Join(err, err2)
	}
	return err2
}
