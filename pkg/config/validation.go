package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Validate at least one storage exists
	if len(cfg.Storages) == 0 {
		return fmt.Errorf("storages: at least one storage must be configured")
	}

	// Validate storage names are unique
	names := make(map[string]bool)
	for i, s := range cfg.Storages {
		if names[s.Name] {
			return fmt.Errorf("storages[%d]: duplicate storage name %q", i, s.Name)
		}
		names[s.Name] = true
	}

	for i, link := range cfg.PublicLinks {
		key, _, found := strings.Cut(link.Prefix, "://")
		if !found {
			return fmt.Errorf("public_links[%d]: prefix %q must have the form storage://path", i, link.Prefix)
		}
		if !names[key] {
			return fmt.Errorf("public_links[%d]: prefix %q references an unknown storage", i, link.Prefix)
		}
	}

	// Validate at least one adapter is enabled
	http, lambda := cfg.Adapters.HTTP, cfg.Adapters.Lambda
	if !http.Enabled && !lambda.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	if http.Enabled {
		if _, err := humanize.ParseBytes(http.MaxUploadSize); err != nil {
			return fmt.Errorf("adapters.http.max_upload_size: %q is not a size: %w", http.MaxUploadSize, err)
		}
		if cfg.Server.Metrics.Enabled && cfg.Server.Metrics.Port == http.Port {
			return fmt.Errorf("server.metrics.port: %d is already used by the HTTP adapter", http.Port)
		}
	}
	if lambda.Enabled {
		if _, err := humanize.ParseBytes(lambda.MaxUploadSize); err != nil {
			return fmt.Errorf("adapters.lambda.max_upload_size: %q is not a size: %w", lambda.MaxUploadSize, err)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
