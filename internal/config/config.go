// Package config handles TOML-based configuration loading and validation.
// Credentials live here as data; no credential storage backend is used.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/samber/mo"

	"grebe/internal/auth"
)

// ProviderConfig holds per-provider settings.
type ProviderConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	// Formats limits which manifest kinds the provider expands
	// (hls, dash, ism, hds). Empty keeps the provider's default policy.
	Formats []string `toml:"formats"`
}

// Config holds all application configuration.
type Config struct {
	SubsLanguage string                    `toml:"subs_language"`
	History      bool                      `toml:"history"`
	Debug        bool                      `toml:"debug"`
	Providers    map[string]ProviderConfig `toml:"providers"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		SubsLanguage: "",
		History:      true,
		Debug:        false,
		Providers:    map[string]ProviderConfig{},
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "grebe"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "grebe"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults. A missing file
// yields defaults.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	validFormats := map[string]bool{
		"hls": true, "dash": true, "ism": true, "hds": true,
	}
	for name, p := range c.Providers {
		for _, f := range p.Formats {
			if !validFormats[strings.ToLower(f)] {
				return fmt.Errorf("provider %s: unsupported format kind %q (valid: hls, dash, ism, hds)", name, f)
			}
		}
		if (p.Username == "") != (p.Password == "") {
			return fmt.Errorf("provider %s: username and password must be set together", name)
		}
	}
	return nil
}

// Credentials returns the configured login for a provider, or None.
func (c *Config) Credentials(provider string) mo.Option[auth.Credentials] {
	p, ok := c.Providers[provider]
	if !ok || p.Username == "" {
		return mo.None[auth.Credentials]()
	}
	return mo.Some(auth.Credentials{Username: p.Username, Password: p.Password})
}

// EnabledFormats returns the configured manifest-kind allowlist for a
// provider, lowercased, or nil when the provider default applies.
func (c *Config) EnabledFormats(provider string) []string {
	p, ok := c.Providers[provider]
	if !ok || len(p.Formats) == 0 {
		return nil
	}
	kinds := make([]string, len(p.Formats))
	for i, f := range p.Formats {
		kinds[i] = strings.ToLower(f)
	}
	return kinds
}

// HistoryPath returns the path to the extraction history database.
func HistoryPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "grebe", "history.db"), nil
}
