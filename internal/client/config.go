package client

import (
	"encoding/json"
	"os"
	"path/filepath"
)

var configProfile string

// SetProfile sets the config profile for multiple instances.
func SetProfile(profile string) {
	configProfile = profile
}

// Config holds client configuration.
type Config struct {
	// Connection settings
	LastServer   string `json:"last_server"`
	LastInstance string `json:"last_instance"`

	// Player identity (persisted id for resuming a dropped session)
	PlayerName string `json:"player_name"`
	PlayerID   uint64 `json:"player_id,omitempty"`

	// Playback
	TickRate    int `json:"tick_rate"`
	ReplayDepth int `json:"replay_depth"`

	// Offline games
	LocalPreset string `json:"local_preset"`
	LocalBots   int    `json:"local_bots"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		LastServer:  "localhost:30000",
		PlayerName:  "Captain",
		TickRate:    20,
		ReplayDepth: 32,
		LocalPreset: "standard",
		LocalBots:   2,
	}
}

// LoadConfig loads config from the user's config directory.
func LoadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return DefaultConfig(), err
	}
	return loadConfigFile(path)
}

func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return DefaultConfig(), err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), err
	}

	return cfg, nil
}

// Save saves the config to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	return c.saveFile(path)
}

func (c *Config) saveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Remote returns the remote client settings of this config.
func (c *Config) Remote() RemoteConfig {
	return RemoteConfig{
		Server:      c.LastServer,
		Instance:    c.LastInstance,
		Name:        c.PlayerName,
		TickRate:    c.TickRate,
		ReplayDepth: c.ReplayDepth,
	}
}

// configPath returns the path to the config file.
func configPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	filename := "config.json"
	if configProfile != "" {
		filename = "config-" + configProfile + ".json"
	}

	return filepath.Join(configDir, "isles-of-conquest", filename), nil
}
