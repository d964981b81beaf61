// Package config loads client configuration and the stable device identity.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the complete client configuration.
type Config struct {
	// ServerURL is the base URL of the REST endpoints.
	ServerURL string
	// StreamURL is the websocket endpoint. Empty derives it from ServerURL.
	StreamURL string
	// APIKey is the static credential sent on every call.
	APIKey string

	// GracePeriod is the streaming-to-fallback wait window.
	GracePeriod time.Duration
	// PingInterval is the streaming liveness probe period.
	PingInterval time.Duration
	// MaxReconnectAttempts caps streaming reconnects before permanent
	// degradation to the REST channel.
	MaxReconnectAttempts int

	// HistorySize bounds the shell command history.
	HistorySize int
	// HistoryFile is where the shell history is persisted.
	HistoryFile string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:            "http://localhost:8080",
		GracePeriod:          3 * time.Second,
		PingInterval:         30 * time.Second,
		MaxReconnectAttempts: 5,
		HistorySize:          100,
		HistoryFile:          filepath.Join(configDir(), "history.zst"),
	}
}

// ResolveStreamURL returns the websocket endpoint, deriving ws(s)://host/ws
// from ServerURL when StreamURL is not set explicitly.
func (c *Config) ResolveStreamURL() string {
	if c.StreamURL != "" {
		return c.StreamURL
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

// DeviceID returns the stable installation identifier sent with session
// creation, generating and persisting one on first use.
func DeviceID() (string, error) {
	dir := configDir()
	path := filepath.Join(dir, "device-id")

	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", err
	}
	return id, nil
}

// configDir resolves the XDG config directory for the client.
func configDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "termlink")
}
