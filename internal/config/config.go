// Package config provides configuration management for tvdeck using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultHTTPTimeout        = 60 * time.Second
	defaultRetryAttempts      = 3
	defaultRetryDelay         = 1 * time.Second
	defaultProgrammeBatchSize = 1000
	defaultStreamWatchdog     = 30 * time.Second
	defaultOnlinePollInterval = 5 * time.Second
	defaultManifestTimeout    = 10 * time.Second
	defaultFragmentTimeout    = 20 * time.Second
	defaultRouterDebounce     = 50 * time.Millisecond
)

// Config holds all configuration for the application.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Client   ClientConfig   `mapstructure:"client"`
	EPG      EPGConfig      `mapstructure:"epg"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Router   RouterConfig   `mapstructure:"router"`
}

// DatabaseConfig holds the cache database configuration.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// ClientConfig holds provider HTTP client configuration.
type ClientConfig struct {
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// EPGConfig holds EPG ingestion configuration.
type EPGConfig struct {
	// RefreshCron is the cron expression for scheduled guide refreshes.
	// Empty disables the schedule.
	RefreshCron string `mapstructure:"refresh_cron"`
	// XMLTVURL overrides the provider's xmltv.php endpoint with an
	// arbitrary http(s):// or file:// XMLTV document.
	XMLTVURL string `mapstructure:"xmltv_url"`
	// Timezone is the default display timezone; the user preference
	// overrides it once set.
	Timezone string `mapstructure:"timezone"`
	// ProgrammeBatchSize is how many programmes are processed between
	// cooperative yield points.
	ProgrammeBatchSize int `mapstructure:"programme_batch_size"`
}

// PlaybackConfig holds playback controller configuration.
type PlaybackConfig struct {
	// PlayerBinary is the external player executable (empty = auto-detect).
	PlayerBinary string `mapstructure:"player_binary"`
	// StreamWatchdog is the end-to-end deadline for reaching the playing
	// state before "slow or offline" is surfaced.
	StreamWatchdog time.Duration `mapstructure:"stream_watchdog"`
	// OnlinePollInterval is how often connectivity is polled while loading.
	OnlinePollInterval time.Duration `mapstructure:"online_poll_interval"`
	ManifestTimeout    time.Duration `mapstructure:"manifest_timeout"`
	FragmentTimeout    time.Duration `mapstructure:"fragment_timeout"`
}

// RouterConfig holds navigation configuration.
type RouterConfig struct {
	// Debounce collapses bursty fragment changes into one dispatch.
	Debounce time.Duration `mapstructure:"debounce"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration and are
// prefixed with TVDECK_, using underscores for nesting.
// Example: TVDECK_LOGGING_LEVEL=debug.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/tvdeck")
		v.AddConfigPath("$HOME/.tvdeck")
	}

	v.SetEnvPrefix("TVDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "tvdeck.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("client.http_timeout", defaultHTTPTimeout)
	v.SetDefault("client.retry_attempts", defaultRetryAttempts)
	v.SetDefault("client.retry_delay", defaultRetryDelay)

	v.SetDefault("epg.refresh_cron", "0 */6 * * *") // every six hours
	v.SetDefault("epg.xmltv_url", "")
	v.SetDefault("epg.timezone", "Local")
	v.SetDefault("epg.programme_batch_size", defaultProgrammeBatchSize)

	v.SetDefault("playback.player_binary", "")
	v.SetDefault("playback.stream_watchdog", defaultStreamWatchdog)
	v.SetDefault("playback.online_poll_interval", defaultOnlinePollInterval)
	v.SetDefault("playback.manifest_timeout", defaultManifestTimeout)
	v.SetDefault("playback.fragment_timeout", defaultFragmentTimeout)

	v.SetDefault("router.debounce", defaultRouterDebounce)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.EPG.ProgrammeBatchSize < 1 {
		return fmt.Errorf("epg.programme_batch_size must be at least 1")
	}
	if _, err := time.LoadLocation(c.EPG.Timezone); err != nil {
		return fmt.Errorf("epg.timezone: %w", err)
	}

	if c.Playback.StreamWatchdog <= 0 {
		return fmt.Errorf("playback.stream_watchdog must be positive")
	}
	if c.Router.Debounce < 0 {
		return fmt.Errorf("router.debounce must not be negative")
	}

	return nil
}
