package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EndpointsConfig overrides the URLs used by the login flow. Empty values use production.
type EndpointsConfig struct {
	DeviceCode string `toml:"device_code,omitempty"`
	Token      string `toml:"token,omitempty"`
	XboxUser   string `toml:"xbox_user,omitempty"`
	XSTS       string `toml:"xsts,omitempty"`
	Login      string `toml:"login,omitempty"`
	Profile    string `toml:"profile,omitempty"`
}

// Account is a stored Minecraft credential.
type Account struct {
	PlayerName   string    `toml:"player_name"`
	PlayerID     string    `toml:"player_id"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	ObtainedAt   time.Time `toml:"obtained_at"`
	ExpiresAt    time.Time `toml:"expires_at,omitempty"`
}

// Expired reports whether the stored access token has expired at now.
// Accounts without a known expiry are treated as valid.
func (a Account) Expired(now time.Time) bool {
	if a.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(a.ExpiresAt)
}

// Config holds all mclogin configuration.
type Config struct {
	ClientID  string          `toml:"client_id"`
	Scopes    []string        `toml:"scopes,omitempty"`
	LogLevel  string          `toml:"log_level,omitempty"`
	LogFormat string          `toml:"log_format,omitempty"`
	Default   string          `toml:"default_account,omitempty"`
	Endpoints EndpointsConfig `toml:"endpoints"`
	Accounts  []Account       `toml:"accounts"`
}

// Find returns the account whose player name matches name, case-insensitively.
// An empty name selects the default account, or the only account when there is one.
func (c Config) Find(name string) (Account, bool) {
	if name == "" {
		name = c.Default
	}
	if name == "" {
		if len(c.Accounts) == 1 {
			return c.Accounts[0], true
		}
		return Account{}, false
	}
	for _, a := range c.Accounts {
		if strings.EqualFold(a.PlayerName, name) {
			return a, true
		}
	}
	return Account{}, false
}

// Upsert stores acc, replacing an existing account with the same player id.
// The first stored account becomes the default.
func (c *Config) Upsert(acc Account) {
	if c.Default == "" {
		c.Default = acc.PlayerName
	}
	for i, a := range c.Accounts {
		if a.PlayerID == acc.PlayerID {
			if strings.EqualFold(c.Default, a.PlayerName) {
				c.Default = acc.PlayerName
			}
			c.Accounts[i] = acc
			return
		}
	}
	c.Accounts = append(c.Accounts, acc)
}

// Remove deletes the account named name and reports whether one was removed.
func (c *Config) Remove(name string) bool {
	for i, a := range c.Accounts {
		if strings.EqualFold(a.PlayerName, name) {
			c.Accounts = append(c.Accounts[:i], c.Accounts[i+1:]...)
			if strings.EqualFold(c.Default, name) {
				c.Default = ""
				if len(c.Accounts) > 0 {
					c.Default = c.Accounts[0].PlayerName
				}
			}
			return true
		}
	}
	return false
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - MCLOGIN_CLIENT_ID  overrides client_id
//   - MCLOGIN_LOG_LEVEL  overrides log_level
//   - MCLOGIN_LOG_FORMAT overrides log_format
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the mclogin config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mclogin", "config.toml")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MCLOGIN_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("MCLOGIN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MCLOGIN_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. The file holds tokens, so it is written 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return fmt.Errorf("encoding config: %w", encErr)
	}
	return f.Close()
}
