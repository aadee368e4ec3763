package config

import (
	"fmt"
	"time"
)

// Config file names, searched in this order
var SupportedConfigFiles = []string{
	"connectsphere.yaml",
	"connectsphere.yml",
	"connectsphere.toml",
	"connectsphere.json",
}

// ConnectSphereConfig is the client configuration file.
type ConnectSphereConfig struct {
	ServerURL         string      `yaml:"server_url,omitempty" toml:"server_url,omitempty" json:"server_url,omitempty"`
	SocketURL         string      `yaml:"socket_url,omitempty" toml:"socket_url,omitempty" json:"socket_url,omitempty"`
	RequestTimeout    Duration    `yaml:"request_timeout,omitempty" toml:"request_timeout,omitempty" json:"request_timeout,omitempty"`
	TypingTimeout     Duration    `yaml:"typing_timeout,omitempty" toml:"typing_timeout,omitempty" json:"typing_timeout,omitempty"`
	Theme             ThemeConfig `yaml:"theme,omitempty" toml:"theme,omitempty" json:"theme,omitempty"`
	LastViewedProfile string      `yaml:"last_viewed_profile,omitempty" toml:"last_viewed_profile,omitempty" json:"last_viewed_profile,omitempty"`
}

// ThemeConfig holds display preferences.
type ThemeConfig struct {
	DarkMode bool `yaml:"dark_mode" toml:"dark_mode" json:"dark_mode"`
}

// Duration is a time.Duration written as "10s", "1m30s" in config files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText is used by go-toml, encoding/json and envconfig.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}
