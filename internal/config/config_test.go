package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.GracePeriod != 3*time.Second {
		t.Errorf("GracePeriod = %v", cfg.GracePeriod)
	}
	if cfg.PingInterval != 30*time.Second {
		t.Errorf("PingInterval = %v", cfg.PingInterval)
	}
	if cfg.MaxReconnectAttempts != 5 {
		t.Errorf("MaxReconnectAttempts = %d", cfg.MaxReconnectAttempts)
	}
	if cfg.HistorySize != 100 {
		t.Errorf("HistorySize = %d", cfg.HistorySize)
	}
}

func TestResolveStreamURL(t *testing.T) {
	cases := []struct {
		name      string
		serverURL string
		streamURL string
		want      string
	}{
		{"derived from http", "http://host:8080", "", "ws://host:8080/ws"},
		{"derived from https", "https://host", "", "wss://host/ws"},
		{"trailing slash trimmed", "http://host/", "", "ws://host/ws"},
		{"base path kept", "https://host/api", "", "wss://host/api/ws"},
		{"explicit wins", "http://host", "wss://other/stream", "wss://other/stream"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := &Config{ServerURL: c.serverURL, StreamURL: c.streamURL}
			if got := cfg.ResolveStreamURL(); got != c.want {
				t.Errorf("ResolveStreamURL() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestParseKDLConfig(t *testing.T) {
	data := `
server {
    url "https://remote.example.com"
    stream-url "wss://remote.example.com/stream"
    api-key "k-123"
}
timing {
    grace 5
    ping-interval 15
    max-reconnect-attempts 8
}
history {
    size 250
    file "/tmp/hist.zst"
}
`
	cfg, err := ParseKDLConfig(data)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ServerURL != "https://remote.example.com" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.StreamURL != "wss://remote.example.com/stream" {
		t.Errorf("StreamURL = %q", cfg.StreamURL)
	}
	if cfg.APIKey != "k-123" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.GracePeriod != 5*time.Second {
		t.Errorf("GracePeriod = %v", cfg.GracePeriod)
	}
	if cfg.PingInterval != 15*time.Second {
		t.Errorf("PingInterval = %v", cfg.PingInterval)
	}
	if cfg.MaxReconnectAttempts != 8 {
		t.Errorf("MaxReconnectAttempts = %d", cfg.MaxReconnectAttempts)
	}
	if cfg.HistorySize != 250 {
		t.Errorf("HistorySize = %d", cfg.HistorySize)
	}
	if cfg.HistoryFile != "/tmp/hist.zst" {
		t.Errorf("HistoryFile = %q", cfg.HistoryFile)
	}
}

func TestParseKDLConfigPartialKeepsDefaults(t *testing.T) {
	cfg, err := ParseKDLConfig(`
server {
    url "http://partial"
}
`)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "http://partial" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.GracePeriod != 3*time.Second {
		t.Errorf("GracePeriod = %v, want default", cfg.GracePeriod)
	}
	if cfg.MaxReconnectAttempts != 5 {
		t.Errorf("MaxReconnectAttempts = %d, want default", cfg.MaxReconnectAttempts)
	}
}

func TestParseKDLConfigInvalid(t *testing.T) {
	if _, err := ParseKDLConfig(`server { url `); err == nil {
		t.Fatal("malformed kdl parsed without error")
	}
}

func TestLoadGlobalConfigMissingFileGivesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
}

func TestLoadGlobalConfigReadsFile(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	dir := filepath.Join(base, "termlink")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `server { url "http://from-file"; }`
	if err := os.WriteFile(filepath.Join(dir, GlobalConfigFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "http://from-file" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
}

func TestDeviceIDStable(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	first, err := DeviceID()
	if err != nil {
		t.Fatal(err)
	}
	if first == "" {
		t.Fatal("empty device id")
	}

	second, err := DeviceID()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("device id changed: %q vs %q", first, second)
	}
}
