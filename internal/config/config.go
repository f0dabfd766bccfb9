// Package config provides configuration management for trademind.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/DieselDot/Trademind/internal/errors"
	"github.com/DieselDot/Trademind/internal/logging"
	"github.com/DieselDot/Trademind/internal/notify"
)

// Config holds all application configuration.
type Config struct {
	User     UserConfig     `mapstructure:"user"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Server   ServerConfig   `mapstructure:"server"`
	UI       UIConfig       `mapstructure:"ui"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	Notifications NotificationsConfig `mapstructure:"notifications"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// UserConfig identifies the local user.
type UserConfig struct {
	ID       string `mapstructure:"id"`
	Timezone string `mapstructure:"timezone"` // IANA name, decides session dates
}

// DatabaseConfig holds the data store configuration.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite3", "postgres"
	DSN    string `mapstructure:"dsn"`
}

// CacheConfig holds the dashboard cache configuration.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	DevMode        bool          `mapstructure:"dev_mode"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled   bool   `mapstructure:"color_enabled"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
	DateFormat     string `mapstructure:"date_format"`
}

// NotificationsConfig holds notification delivery configuration.
type NotificationsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Level      string `mapstructure:"level"` // "all", "alerts_only", "summaries_only"
	WebhookURL string `mapstructure:"webhook_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trademind"
	}
	return filepath.Join(home, ".config", "trademind")
}

// Path returns the path of the main configuration file.
func (c *Config) Path() string {
	return filepath.Join(c.Dir, "config.toml")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by a commented template and defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{Dir: configDir}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if cfg.Database.Driver == "sqlite3" && cfg.Database.DSN == "" {
		cfg.Database.DSN = filepath.Join(configDir, "trademind.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("user.id", "local")
	v.SetDefault("user.timezone", "Local")

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", "5m")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.level", "all")

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.currency_symbol", "$")
	v.SetDefault("ui.date_format", "Jan 2, 2006")

	defaults := logging.DefaultLogConfig()
	v.SetDefault("logging.level", defaults.Level)
	v.SetDefault("logging.console", defaults.Console)
	v.SetDefault("logging.file", defaults.File)
	v.SetDefault("logging.file_path", defaults.FilePath)
	v.SetDefault("logging.max_size", defaults.MaxSize)
	v.SetDefault("logging.max_backups", defaults.MaxBackups)
	v.SetDefault("logging.max_age", defaults.MaxAge)
}

func loadConfigFile(configDir, name string, target *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

// loadDotEnv reads KEY=value pairs into the environment. Variables that are
// already set win. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADEMIND_USER_ID"); v != "" {
		cfg.User.ID = v
	}
	if v := os.Getenv("TRADEMIND_TIMEZONE"); v != "" {
		cfg.User.Timezone = v
	}

	// Database
	if v := os.Getenv("TRADEMIND_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("TRADEMIND_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Redis
	if v := os.Getenv("TRADEMIND_REDIS_ADDR"); v != "" {
		cfg.Cache.Addr = v
		cfg.Cache.Enabled = true
	}
	if v := os.Getenv("TRADEMIND_REDIS_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}

	if v := os.Getenv("TRADEMIND_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TRADEMIND_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TRADEMIND_WEBHOOK_URL"); v != "" {
		cfg.Notifications.WebhookURL = v
		cfg.Notifications.Enabled = true
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.User.ID == "" {
		return invalid("user.id must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return invalid("unknown timezone: %s", c.User.Timezone)
	}

	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return invalid("invalid database driver: %s (must be 'sqlite3' or 'postgres')", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return invalid("database.dsn is required for postgres")
	}

	if c.Cache.Enabled {
		if c.Cache.Addr == "" {
			return invalid("cache.addr is required when the cache is enabled")
		}
		if c.Cache.TTL <= 0 {
			return invalid("cache.ttl must be positive")
		}
	}

	if c.Server.RequestTimeout < 0 {
		return invalid("server.request_timeout must be non-negative")
	}

	if c.Notifications.Enabled {
		if c.Notifications.WebhookURL == "" {
			return invalid("notifications.webhook_url is required when notifications are enabled")
		}
		if !notify.ValidLevel(c.Notifications.Level) {
			return invalid("invalid notification level: %s", c.Notifications.Level)
		}
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return invalid("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", apperrors.ErrConfigInvalid, fmt.Sprintf(format, args...))
}

// Location returns the time zone that decides session dates.
func (c *Config) Location() (*time.Location, error) {
	if c.User.Timezone == "" || c.User.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.User.Timezone)
}

// NotifyConfig converts the notifications section for the notify package.
func (c *Config) NotifyConfig() notify.Config {
	return notify.Config{
		Level:      c.Notifications.Level,
		WebhookURL: c.Notifications.WebhookURL,
	}
}

// LogConfig converts the logging section for the logging package.
func (c *Config) LogConfig() logging.LogConfig {
	cfg := logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
	if cfg.FilePath == "" {
		cfg.FilePath = logging.DefaultLogConfig().FilePath
	}
	return cfg
}
