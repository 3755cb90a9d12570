// Package config provides configuration management for the price history tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	apperrors "pricebook/internal/errors"
	"pricebook/internal/logging"
	"pricebook/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Adjust   AdjustConfig   `mapstructure:"adjust"`
	Rolling  RollingConfig  `mapstructure:"rolling"`
}

// DatabaseConfig holds price store configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// AdjustConfig holds corporate-action adjustment configuration.
type AdjustConfig struct {
	NoticesDir  string `mapstructure:"notices_dir"`
	AutoConfirm bool   `mapstructure:"auto_confirm"`
}

// RollingConfig holds rolling-window configuration.
type RollingConfig struct {
	Windows   []int `mapstructure:"windows"`
	Overwrite bool  `mapstructure:"overwrite"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/pricebook"
	}
	return filepath.Join(home, ".config", "pricebook")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by a template and defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("database.path", filepath.Join(configDir, "pricebook.db"))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "pricebook.log"))
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("adjust.notices_dir", filepath.Join(configDir, "corporate_action"))
	v.SetDefault("adjust.auto_confirm", false)
	v.SetDefault("rolling.windows", []int{4, 12, 52})
	v.SetDefault("rolling.overwrite", false)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PRICEBOOK_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PRICEBOOK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PRICEBOOK_NOTICES_DIR"); v != "" {
		cfg.Adjust.NoticesDir = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return apperrors.NewValidationError("database.path", c.Database.Path, "must be set")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return apperrors.NewValidationError("logging.level", c.Logging.Level, "must be debug, info, warn or error")
	}
	for _, w := range c.Rolling.Windows {
		if !models.Window(w).Valid() {
			return apperrors.NewValidationError("rolling.windows", w, "must be 4, 12 or 52")
		}
	}
	return nil
}

// LogConfig converts the logging section for the logging package.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}

// RollingWindows returns the configured windows.
func (c *Config) RollingWindows() []models.Window {
	windows := make([]models.Window, len(c.Rolling.Windows))
	for i, w := range c.Rolling.Windows {
		windows[i] = models.Window(w)
	}
	return windows
}
