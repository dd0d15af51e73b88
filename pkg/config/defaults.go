package config

import (
	"strings"
	"time"

	"github.com/marmos91/vfinder/pkg/adapter/httpapi"
	"github.com/marmos91/vfinder/pkg/adapter/lambda"
)

// DefaultStorageRoot is the root of the local storage created when no
// storage is configured.
const DefaultStorageRoot = "/tmp/vfinder-storage"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific defaults are handled by the storage factories
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyActionDefaults(&cfg.Action)

	// Add a default local storage if none configured
	if len(cfg.Storages) == 0 {
		cfg.Storages = []StorageConfig{
			{
				Name: "local",
				Type: "local",
				Local: map[string]any{
					"root": DefaultStorageRoot,
				},
			},
		}
	}

	applyStorageDefaults(cfg.Storages)
	applyAdaptersDefaults(&cfg.Adapters)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

func applyActionDefaults(cfg *ActionConfig) {
	if cfg.ThumbnailWidth == 0 {
		cfg.ThumbnailWidth = 256
	}
}

// applyStorageDefaults initializes the option map of each storage's type.
func applyStorageDefaults(storages []StorageConfig) {
	for i := range storages {
		s := &storages[i]
		s.Type = strings.ToLower(s.Type)

		switch s.Type {
		case "local":
			if s.Local == nil {
				s.Local = make(map[string]any)
			}
		case "s3":
			if s.S3 == nil {
				s.S3 = make(map[string]any)
			}
			if _, ok := s.S3["region"]; !ok {
				s.S3["region"] = "us-east-1"
			}
		case "badger":
			if s.Badger == nil {
				s.Badger = make(map[string]any)
			}
		}
	}
}

// applyAdaptersDefaults sets adapter defaults.
func applyAdaptersDefaults(cfg *AdaptersConfig) {
	// Standalone HTTP is the default transport. An untouched HTTP section
	// (no port) with Lambda disabled turns it on.
	untouched := cfg.HTTP.Port == 0 && !cfg.HTTP.Enabled
	if untouched && !cfg.Lambda.Enabled {
		cfg.HTTP.Enabled = true
	}

	applyHTTPDefaults(&cfg.HTTP)
	applyLambdaDefaults(&cfg.Lambda)
}

const defaultHTTPPort = 8080

// applyHTTPDefaults sets HTTP adapter defaults.
//
// Mirrors the adapter's own defaults so that generated config files and
// validation see the effective values.
func applyHTTPDefaults(cfg *httpapi.HTTPConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultHTTPPort
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/api"
	}
	if cfg.MaxUploadSize == "" {
		cfg.MaxUploadSize = "100MiB"
	}
	if cfg.RateLimit > 0 && cfg.RateBurst == 0 {
		cfg.RateBurst = cfg.RateLimit * 2
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyLambdaDefaults(cfg *lambda.Config) {
	if cfg.BasePath == "" {
		cfg.BasePath = "/api"
	}
	if cfg.MaxUploadSize == "" {
		cfg.MaxUploadSize = "6MB"
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
