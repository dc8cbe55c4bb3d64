package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// SyncConfig holds the timing knobs of the debounced remote sync. The
// defaults match production behavior; tests and development builds may
// shrink them.
type SyncConfig struct {
	// WindowSec is the minimum interval between remote pushes.
	WindowSec int64 `mapstructure:"window_sec" yaml:"window_sec"`

	// RetrySec is the self-check cadence when a push is deferred.
	RetrySec int64 `mapstructure:"retry_sec" yaml:"retry_sec"`
}

// RemoteConfig holds the connection settings for the remote state store.
type RemoteConfig struct {
	// DSN is the Postgres connection string. Empty means offline mode:
	// local cache only, sync deferred indefinitely.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// DisplayConfig holds UI preferences.
type DisplayConfig struct {
	Theme    string `mapstructure:"theme" yaml:"theme"`
	Language string `mapstructure:"language" yaml:"language"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// CachePath is the SQLite file backing the local cache store.
	CachePath string `mapstructure:"cache_path" yaml:"cache_path"`

	// UserID identifies the account all cache keys are scoped under.
	UserID string `mapstructure:"user_id" yaml:"user_id"`

	Remote  RemoteConfig  `mapstructure:"remote" yaml:"remote"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/habitflow/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "habitflow", "config.yaml")
}

// DefaultCachePath returns the default SQLite cache location.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "habitflow.db")
	}
	return filepath.Join(home, ".local", "share", "habitflow", "cache.db")
}

func defaultAppConfig() *AppConfig {
	return &AppConfig{
		CachePath: DefaultCachePath(),
		Sync: SyncConfig{
			WindowSec: 600,
			RetrySec:  300,
		},
		Display: DisplayConfig{
			Theme:    "dark",
			Language: "system",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("cache_path", DefaultCachePath())
	v.SetDefault("sync.window_sec", 600)
	v.SetDefault("sync.retry_sec", 300)
	v.SetDefault("display.theme", "dark")
	v.SetDefault("display.language", "system")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("cache_path", cfg.CachePath)
	v.Set("user_id", cfg.UserID)
	v.Set("remote", cfg.Remote)
	v.Set("sync", cfg.Sync)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
