// ABOUTME: Crux configuration: server endpoint, identity, credentials, sync tuning.
// ABOUTME: JSON file under XDG config; also backs the API token source.
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Config stores crux configuration.
type Config struct {
	// ServerURL is the base URL of the remote training service.
	ServerURL string `json:"server_url,omitempty"`

	// Identity is the account the local store is scoped to.
	Identity string `json:"identity,omitempty"`

	// AccessToken is the opaque credential attached to every request.
	// RefreshToken is exchanged for a new access token on expiry.
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// AutoSync enables the background flush loop. Defaults to on.
	AutoSync *bool `json:"auto_sync,omitempty"`

	// FlushIntervalMinutes overrides the periodic flush cadence.
	FlushIntervalMinutes int `json:"flush_interval_minutes,omitempty"`

	// DataDir is the root directory for local data. Badger state and the
	// plan catalog both live here. Supports ~ expansion.
	// Defaults to ~/.local/share/crux.
	DataDir string `json:"data_dir,omitempty"`
}

// IsConfigured reports whether enough is set to talk to a server.
func (c *Config) IsConfigured() bool {
	return c.ServerURL != "" && c.Identity != ""
}

// GetIdentity returns the configured identity, defaulting to "local" so
// the store always has a namespace even before sign-in.
func (c *Config) GetIdentity() string {
	if c.Identity == "" {
		return "local"
	}
	return c.Identity
}

// GetAutoSync reports whether the background flush loop should run.
func (c *Config) GetAutoSync() bool {
	if c.AutoSync == nil {
		return true
	}
	return *c.AutoSync
}

// GetFlushInterval returns the flush cadence, zero meaning engine default.
func (c *Config) GetFlushInterval() time.Duration {
	if c.FlushIntervalMinutes <= 0 {
		return 0
	}
	return time.Duration(c.FlushIntervalMinutes) * time.Minute
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return DataDir()
	}
	return ExpandPath(c.DataDir)
}

// DataDir returns the default XDG data directory for crux.
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, _ := os.UserHomeDir()
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "crux")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "crux", "config.json")
}

// Load reads config from disk. A missing file yields an empty config.
func Load() (*Config, error) {
	return loadFrom(GetConfigPath())
}

func loadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	return c.saveTo(GetConfigPath())
}

func (c *Config) saveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ErrNotSignedIn means no usable credential exists; the user must run
// the login command again.
var ErrNotSignedIn = errors.New("not signed in")

// Tokens is a file-backed token source. Token serves the stored access
// token; Refresh exchanges the stored refresh token at the server's auth
// endpoint and persists the rotated credential so other processes pick
// it up too.
type Tokens struct {
	path string
	http *http.Client

	mu sync.Mutex
}

// NewTokens creates a token source reading from the standard config path.
func NewTokens() *Tokens {
	return &Tokens{
		path: GetConfigPath(),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// Token returns the current access token.
func (t *Tokens) Token(ctx context.Context) (string, error) {
	cfg, err := loadFrom(t.path)
	if err != nil {
		return "", fmt.Errorf("load credentials: %w", err)
	}
	if cfg.AccessToken == "" {
		return "", ErrNotSignedIn
	}
	return cfg.AccessToken, nil
}

// Refresh exchanges the refresh token for a new access token. Re-reads
// the config first: if another process already rotated the credential,
// that token is used without a network round trip.
func (t *Tokens) Refresh(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cfg, err := loadFrom(t.path)
	if err != nil {
		return "", fmt.Errorf("load credentials: %w", err)
	}
	if cfg.RefreshToken == "" || cfg.ServerURL == "" {
		return "", ErrNotSignedIn
	}

	access, refresh, err := t.exchange(ctx, cfg.ServerURL, cfg.RefreshToken)
	if err != nil {
		return "", err
	}

	cfg.AccessToken = access
	if refresh != "" {
		cfg.RefreshToken = refresh
	}
	if err := cfg.saveTo(t.path); err != nil {
		return "", fmt.Errorf("persist rotated credentials: %w", err)
	}
	return access, nil
}

// exchange calls the server's token refresh endpoint.
func (t *Tokens) exchange(ctx context.Context, serverURL, refreshToken string) (access, refresh string, err error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return "", "", err
	}

	url := strings.TrimRight(serverURL, "/") + "/v1/auth/refresh"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("refresh credentials: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("refresh credentials: server returned %d: %w", resp.StatusCode, ErrNotSignedIn)
	}

	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decode refresh response: %w", err)
	}
	if out.AccessToken == "" {
		return "", "", ErrNotSignedIn
	}
	return out.AccessToken, out.RefreshToken, nil
}
