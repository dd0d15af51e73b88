package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/vfinder/pkg/adapter/httpapi"
	"github.com/marmos91/vfinder/pkg/adapter/lambda"
	"github.com/spf13/viper"
)

// Config represents the complete vfinder configuration.
//
// This structure captures all configurable aspects of the server including:
//   - Logging configuration
//   - Server-wide settings and the metrics endpoint
//   - The ordered list of storages (store-specific options per type)
//   - Public URL rules
//   - Action tuning (temp directory, thumbnails)
//   - Transport adapter configurations
//
// Configuration sources (in order of precedence):
//  1. Environment variables (VFINDER_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Storage Configuration Pattern:
// Each storage type defines its own option map (local, s3, badger) and only
// the map matching the selected type is used by the factory.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// AppURL is the externally reachable base URL used for public file URLs.
	// Empty means "derive it from each request".
	AppURL string `mapstructure:"app_url" validate:"omitempty,url"`

	// Storages lists the storages in display order. The first one is the
	// default for paths without a storage prefix.
	Storages []StorageConfig `mapstructure:"storages" validate:"dive"`

	// PublicLinks map path prefixes to public base URLs, first match wins
	PublicLinks []PublicLinkConfig `mapstructure:"public_links" validate:"dive"`

	// PublicExclusions are path prefixes that never get a public URL
	PublicExclusions []string `mapstructure:"public_exclusions"`

	// Action tunes the action handlers
	Action ActionConfig `mapstructure:"action"`

	// Adapters contains transport adapter configurations
	Adapters AdaptersConfig `mapstructure:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig configures the Prometheus metrics server.
type MetricsConfig struct {
	// Enabled starts the /metrics endpoint
	Enabled bool `mapstructure:"enabled"`

	// Port is the TCP port of the metrics server
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// StorageConfig defines a single storage.
type StorageConfig struct {
	// Name is the storage key used in "name://path". It must not contain
	// ':' or '/'.
	Name string `mapstructure:"name" validate:"required,excludesall=:/"`

	// Type selects the backend implementation
	// Valid values: local, memory, s3, badger
	Type string `mapstructure:"type" validate:"required,oneof=local memory s3 badger"`

	// ReadOnly rejects every mutating action on this storage
	ReadOnly bool `mapstructure:"read_only"`

	// Public forces (true) or suppresses (false) public URLs. Unset leaves
	// the decision to the global rules.
	Public *bool `mapstructure:"public"`

	// PublicBaseURL is the base URL the storage content is served from
	PublicBaseURL string `mapstructure:"public_base_url" validate:"omitempty,url"`

	// PublicPrefix is appended to AppURL, default "storage/<name>"
	PublicPrefix string `mapstructure:"public_prefix"`

	// Local contains options for Type = "local" (root)
	Local map[string]any `mapstructure:"local"`

	// S3 contains options for Type = "s3" (bucket, region, endpoint, ...)
	S3 map[string]any `mapstructure:"s3"`

	// Badger contains options for Type = "badger" (db_path, ...)
	Badger map[string]any `mapstructure:"badger"`
}

// PublicLinkConfig maps a path prefix to a public base URL.
type PublicLinkConfig struct {
	// Prefix is a storage path prefix, e.g. "media://public/"
	Prefix string `mapstructure:"prefix" validate:"required"`

	// URL replaces the prefix in the public URL
	URL string `mapstructure:"url" validate:"required,url"`
}

// ActionConfig tunes the action handlers.
type ActionConfig struct {
	// TempDir holds archive scratch files. Default: the OS temp dir.
	TempDir string `mapstructure:"temp_dir"`

	// ThumbnailWidth is the default thumbnail width in pixels
	ThumbnailWidth int `mapstructure:"thumbnail_width" validate:"min=0,max=2048"`
}

// AdaptersConfig contains all transport adapter configurations.
type AdaptersConfig struct {
	// HTTP contains the standalone HTTP server configuration.
	// Uses the httpapi.HTTPConfig type directly to avoid duplication.
	HTTP httpapi.HTTPConfig `mapstructure:"http"`

	// Lambda contains the API Gateway adapter configuration
	Lambda lambda.Config `mapstructure:"lambda"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (VFINDER_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// envKeys are bound explicitly so that environment variables work even
// when the file does not mention the key. AutomaticEnv alone only
// overrides keys viper already knows about.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"server.shutdown_timeout",
	"server.metrics.enabled",
	"server.metrics.port",
	"app_url",
	"action.temp_dir",
	"action.thumbnail_width",
	"adapters.http.enabled",
	"adapters.http.port",
	"adapters.http.base_path",
	"adapters.http.max_upload_size",
	"adapters.http.cors_origin",
	"adapters.http.rate_limit",
	"adapters.lambda.enabled",
	"adapters.lambda.base_path",
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: VFINDER_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("VFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/vfinder/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			// A missing file is fine, defaults apply.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "vfinder")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "vfinder")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
