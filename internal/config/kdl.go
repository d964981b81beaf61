package config

import (
	"os"
	"path/filepath"
	"time"

	kdl "github.com/sblinch/kdl-go"
)

// GlobalConfigFile is the config file name under the XDG config directory.
const GlobalConfigFile = "config.kdl"

// KDLConfig mirrors the on-disk KDL structure.
type KDLConfig struct {
	Server  KDLServer  `kdl:"server"`
	Timing  KDLTiming  `kdl:"timing"`
	History KDLHistory `kdl:"history"`
}

// KDLServer holds endpoint and credential settings.
type KDLServer struct {
	URL       string `kdl:"url"`
	StreamURL string `kdl:"stream-url"`
	APIKey    string `kdl:"api-key"`
}

// KDLTiming holds timing knobs, in seconds.
type KDLTiming struct {
	Grace                int `kdl:"grace"`
	PingInterval         int `kdl:"ping-interval"`
	MaxReconnectAttempts int `kdl:"max-reconnect-attempts"`
}

// KDLHistory holds shell-history settings.
type KDLHistory struct {
	Size int    `kdl:"size"`
	File string `kdl:"file"`
}

// LoadGlobalConfig loads ~/.config/termlink/config.kdl, returning defaults
// when the file does not exist.
func LoadGlobalConfig() (*Config, error) {
	path := filepath.Join(configDir(), GlobalConfigFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseKDLConfig(string(data))
}

// ParseKDLConfig parses KDL configuration data, merging it over defaults.
func ParseKDLConfig(data string) (*Config, error) {
	var kdlCfg KDLConfig
	if err := kdl.Unmarshal([]byte(data), &kdlCfg); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if kdlCfg.Server.URL != "" {
		cfg.ServerURL = kdlCfg.Server.URL
	}
	if kdlCfg.Server.StreamURL != "" {
		cfg.StreamURL = kdlCfg.Server.StreamURL
	}
	if kdlCfg.Server.APIKey != "" {
		cfg.APIKey = kdlCfg.Server.APIKey
	}
	if kdlCfg.Timing.Grace > 0 {
		cfg.GracePeriod = time.Duration(kdlCfg.Timing.Grace) * time.Second
	}
	if kdlCfg.Timing.PingInterval > 0 {
		cfg.PingInterval = time.Duration(kdlCfg.Timing.PingInterval) * time.Second
	}
	if kdlCfg.Timing.MaxReconnectAttempts > 0 {
		cfg.MaxReconnectAttempts = kdlCfg.Timing.MaxReconnectAttempts
	}
	if kdlCfg.History.Size > 0 {
		cfg.HistorySize = kdlCfg.History.Size
	}
	if kdlCfg.History.File != "" {
		cfg.HistoryFile = kdlCfg.History.File
	}
	return cfg, nil
}
