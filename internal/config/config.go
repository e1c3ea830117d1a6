package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	DefaultDeck string `toml:"default_deck"`
	Locale      string `toml:"locale"`
	AssetRoot   string `toml:"asset_root"` // URL or directory holding pre-generated card art

	Oracle  OracleConfig  `toml:"oracle"`
	Quota   QuotaConfig   `toml:"quota"`
	Session SessionConfig `toml:"session"`
	Cache   CacheConfig   `toml:"cache"`
	Server  ServerConfig  `toml:"server"`
}

// OracleConfig configures the generation backend
type OracleConfig struct {
	APIKeyEnv       string        `toml:"api_key_env"`
	TextModel       string        `toml:"text_model"`
	ImageModel      string        `toml:"image_model"`
	ClassifyTimeout time.Duration `toml:"classify_timeout"`
	ReadingTimeout  time.Duration `toml:"reading_timeout"`
	ImageTimeout    time.Duration `toml:"image_timeout"`
}

// APIKey returns the API key from the configured environment variable
func (c OracleConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// QuotaConfig configures the usage quota profile store
type QuotaConfig struct {
	Backend       string `toml:"backend"` // sqlite, redis or memory
	Limit         int    `toml:"limit"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// SessionConfig holds reading session constants
type SessionConfig struct {
	TargetCount int           `toml:"target_count"` // 0 means the deck variant's default
	InvertRatio float64       `toml:"invert_ratio"`
	LockWindow  time.Duration `toml:"lock_window"`
	SettleDelay time.Duration `toml:"settle_delay"`
	HistoryCap  int           `toml:"history_cap"`
}

// CacheConfig bounds the local image override store
type CacheConfig struct {
	OverrideCapacity int `toml:"override_capacity"`
}

// ServerConfig configures lumen serve
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		DefaultDeck: "TAROT",
		Locale:      "EN",
		AssetRoot:   filepath.Join(GetDataDir(), "assets", "cards"),
		Oracle: OracleConfig{
			APIKeyEnv:       "GEMINI_API_KEY",
			TextModel:       "gemini-3-flash-preview",
			ImageModel:      "gemini-2.5-flash-image",
			ClassifyTimeout: 15 * time.Second,
			ReadingTimeout:  60 * time.Second,
			ImageTimeout:    90 * time.Second,
		},
		Quota: QuotaConfig{
			Backend:   "sqlite",
			Limit:     10,
			RedisAddr: "localhost:6379",
		},
		Session: SessionConfig{
			InvertRatio: 0.3,
			LockWindow:  500 * time.Millisecond,
			SettleDelay: 500 * time.Millisecond,
			HistoryCap:  50,
		},
		Cache: CacheConfig{
			OverrideCapacity: 512,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// GetXDGDataHome returns XDG_DATA_HOME or default path
func GetXDGDataHome() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return xdgData
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".local", "share")
}

// GetXDGConfigHome returns XDG_CONFIG_HOME or default path
func GetXDGConfigHome() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// GetCacheDir returns the directory for rendered terminal art
func GetCacheDir() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, "lumen")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".cache", "lumen")
}

// GetDataDir returns the directory holding lumen's durable local state
func GetDataDir() string {
	return filepath.Join(GetXDGDataHome(), "lumen")
}

// GetDeckLibraryPath returns the path to the deck pack library
func GetDeckLibraryPath() string {
	return filepath.Join(GetDataDir(), "decks")
}

// GetDatabasePath returns the path to the local state database
func GetDatabasePath() string {
	return filepath.Join(GetDataDir(), "lumen.db")
}

// GetConfigFilePath returns the path to the config file
func GetConfigFilePath() string {
	if p := os.Getenv("LUMEN_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(GetXDGConfigHome(), "lumen", "config.toml")
}

// LoadConfig loads the config file, creating it with defaults if missing.
// Keys absent from the file keep their default values.
func LoadConfig() (*Config, error) {
	configPath := GetConfigFilePath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig()
	}

	config := Default()
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, fmt.Errorf("error decoding config file: %w", err)
	}

	return config, nil
}

// createDefaultConfig creates a default config file
func createDefaultConfig() (*Config, error) {
	config := Default()
	if err := writeConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func writeConfig(config *Config) error {
	configPath := GetConfigFilePath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("error opening config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(config); err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}

	return nil
}

// SetDefaultDeck sets the default deck in the config
func SetDefaultDeck(deckName string) error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}

	config.DefaultDeck = deckName

	return writeConfig(config)
}
