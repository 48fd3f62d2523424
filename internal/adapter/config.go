package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Playback PlaybackConfig `mapstructure:"playback"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Session  SessionConfig  `mapstructure:"session"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PlaybackConfig holds playback parameters
type PlaybackConfig struct {
	FrameRate float64 `mapstructure:"frame_rate"` // frames per second
}

// CacheConfig holds image cache sizing. Zero values resolve from host
// capacity at startup (memory/8 bytes, cores clamped to [2, 4]).
type CacheConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
	Workers  int   `mapstructure:"workers"`
}

// SessionConfig holds the per-directory resume store location
type SessionConfig struct {
	File string `mapstructure:"file"` // empty disables persistence
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Playback: PlaybackConfig{
			FrameRate: 25.0,
		},
		Cache: CacheConfig{
			MaxBytes: 0,
			Workers:  0,
		},
		Session: SessionConfig{
			File: filepath.Join(defaultDataPath(), "session.db"),
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "filmstrip.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "filmstrip")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "filmstrip")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "filmstrip")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "filmstrip")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("FILMSTRIP")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}
