package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/registry"
)

// InitializeRegistry creates a fully configured Registry from the provided configuration.
//
// Storages are created and registered in configuration order, so the first
// configured storage becomes the default one. When a storage fails to
// initialize, the storages already opened are closed before returning.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Complete configuration loaded from config file
//
// Returns:
//   - *registry.Registry: Fully initialized registry
//   - error: If a storage cannot be created or registered
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	reg, err := config.InitializeRegistry(ctx, cfg)
//	if err != nil {
//	    log.Fatalf("Failed to initialize registry: %v", err)
//	}
//	defer reg.Close()
func InitializeRegistry(ctx context.Context, cfg *Config) (*registry.Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	if len(cfg.Storages) == 0 {
		return nil, fmt.Errorf("no storages configured: at least one storage is required")
	}

	logger.Debug("Initializing registry from configuration")

	reg := registry.NewRegistry()
	for i := range cfg.Storages {
		storageCfg := &cfg.Storages[i]
		logger.Debug("Creating storage %q (type: %s)", storageCfg.Name, storageCfg.Type)

		backend, err := CreateStorage(ctx, storageCfg)
		if err != nil {
			return nil, errors.Join(
				fmt.Errorf("failed to create storage %q: %w", storageCfg.Name, err),
				reg.Close(),
			)
		}

		opts := registry.Options{
			ReadOnly:      storageCfg.ReadOnly,
			Public:        storageCfg.Public,
			PublicBaseURL: storageCfg.PublicBaseURL,
			PublicPrefix:  storageCfg.PublicPrefix,
		}
		if err := reg.Register(storageCfg.Name, backend, opts); err != nil {
			return nil, errors.Join(
				fmt.Errorf("failed to register storage %q: %w", storageCfg.Name, err),
				backend.Close(),
				reg.Close(),
			)
		}

		logger.Debug("Storage %q registered (read_only: %v)", storageCfg.Name, storageCfg.ReadOnly)
	}

	logger.Info("Registered %d storage(s), default %q", reg.Count(), reg.Default())
	return reg, nil
}
