package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v2"

	"github.com/connectsphere/cli/internal/api"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultTypingTimeout  = 3 * time.Second

	// EnvPrefix prefixes every environment override (CS_SERVER_URL, ...).
	EnvPrefix = "CS"
)

// ErrNoConfig is returned by FindConfigFile when no candidate exists.
var ErrNoConfig = errors.New("no connectsphere config file (yaml/toml/json) found")

// LoadConfig loads the config file found in configDir.
func LoadConfig(configDir string) (*ConnectSphereConfig, error) {
	if configDir == "" {
		return nil, fmt.Errorf("config directory is required")
	}
	foundFile, err := FindConfigFile(configDir)
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(foundFile)
}

// LoadConfigFile parses a config file, picking the format by extension.
func LoadConfigFile(filePath string) (*ConnectSphereConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	var cfg ConnectSphereConfig
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file %s: %w", filePath, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config file %s: %w", filePath, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config file %s: %w", filePath, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s", ext)
	}
	return &cfg, nil
}

// FindConfigFile returns the first supported config file in searchPath.
func FindConfigFile(searchPath string) (string, error) {
	if searchPath == "" {
		return "", fmt.Errorf("search path is required")
	}
	for _, name := range SupportedConfigFiles {
		fullPath := filepath.Join(searchPath, name)
		if _, err := os.Stat(fullPath); err == nil {
			return fullPath, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoConfig, searchPath)
}

// IsConfigFile reports whether filePath names a config file.
func IsConfigFile(filePath string) bool {
	baseName := filepath.Base(filePath)
	for _, name := range SupportedConfigFiles {
		if baseName == name {
			return true
		}
	}
	return false
}

// Resolve loads the first config found in dirs. When none exists it returns
// an empty config and the path a later SaveConfig should write to, inside
// the last directory.
func Resolve(dirs ...string) (*ConnectSphereConfig, string, error) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path, err := FindConfigFile(dir)
		if err != nil {
			continue
		}
		cfg, err := LoadConfigFile(path)
		if err != nil {
			return nil, path, err
		}
		return cfg, path, nil
	}
	var fallback string
	if n := len(dirs); n > 0 && dirs[n-1] != "" {
		fallback = filepath.Join(dirs[n-1], SupportedConfigFiles[0])
	}
	return &ConnectSphereConfig{}, fallback, nil
}

// SaveConfig writes cfg to configPath in the format its extension names,
// YAML when the extension is unknown.
func SaveConfig(cfg *ConnectSphereConfig, configPath string) error {
	if configPath == "" {
		configPath = SupportedConfigFiles[0]
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		data, err = toml.Marshal(cfg)
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	default:
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// envOverlay mirrors the fields that can be overridden from the environment.
// DarkMode is a pointer so an unset variable keeps the file's choice.
type envOverlay struct {
	ServerURL      string   `envconfig:"SERVER_URL"`
	SocketURL      string   `envconfig:"SOCKET_URL"`
	RequestTimeout Duration `envconfig:"REQUEST_TIMEOUT"`
	TypingTimeout  Duration `envconfig:"TYPING_TIMEOUT"`
	DarkMode       *bool    `envconfig:"DARK_MODE"`
}

// ApplyEnv overlays CS_* environment variables onto cfg.
func ApplyEnv(cfg *ConnectSphereConfig) error {
	var env envOverlay
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	if env.ServerURL != "" {
		cfg.ServerURL = env.ServerURL
	}
	if env.SocketURL != "" {
		cfg.SocketURL = env.SocketURL
	}
	if env.RequestTimeout > 0 {
		cfg.RequestTimeout = env.RequestTimeout
	}
	if env.TypingTimeout > 0 {
		cfg.TypingTimeout = env.TypingTimeout
	}
	if env.DarkMode != nil {
		cfg.Theme.DarkMode = *env.DarkMode
	}
	return nil
}

// WithDefaults returns a copy of cfg with every unset field filled in.
func (c ConnectSphereConfig) WithDefaults() ConnectSphereConfig {
	if c.ServerURL == "" {
		c.ServerURL = api.DefaultBaseURL
	}
	c.ServerURL = strings.TrimSuffix(c.ServerURL, "/")
	if c.SocketURL == "" {
		if u, err := DeriveSocketURL(c.ServerURL); err == nil {
			c.SocketURL = u
		}
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	if c.TypingTimeout <= 0 {
		c.TypingTimeout = Duration(DefaultTypingTimeout)
	}
	return c
}

// DeriveSocketURL maps the REST base to the real-time endpoint on the same
// host: http becomes ws, https becomes wss, and the path is /socket.io/.
func DeriveSocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server url %q: unsupported scheme", serverURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server url %q: missing host", serverURL)
	}
	u.Path = "/socket.io/"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Host returns the server host, used to key the stored token.
func (c ConnectSphereConfig) Host() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Host == "" {
		return c.ServerURL
	}
	return u.Host
}
