// Command vfinder-lambda serves the file manager from AWS Lambda behind an
// API Gateway proxy integration.
//
// The configuration is read from the file named by VFINDER_CONFIG (optional,
// usually bundled with the function) and VFINDER_* environment variables.
// The Lambda adapter is always enabled and the standalone HTTP server
// always disabled.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/config"
	"github.com/marmos91/vfinder/pkg/server"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig(os.Getenv("VFINDER_CONFIG"))
	if err != nil {
		return err
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	// Storages are opened once per execution environment and reused by
	// every invocation it serves.
	reg, err := config.InitializeRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	handler, err := config.CreateHandler(cfg, reg)
	if err != nil {
		return err
	}

	// There is no long-lived listener to scrape, so metrics stay no-op.
	adapters, err := config.CreateAdapters(cfg, nil)
	if err != nil {
		return err
	}

	srv := server.New(handler, server.Config{StopTimeout: cfg.Server.ShutdownTimeout})
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return err
		}
	}

	return srv.Serve(ctx)
}

// loadConfig loads the configuration and switches it to Lambda mode.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		// Never fall back to a file in the (read-only) home directory.
		_ = os.Setenv("XDG_CONFIG_HOME", os.TempDir())
	}

	_ = os.Setenv("VFINDER_ADAPTERS_LAMBDA_ENABLED", "true")
	_ = os.Setenv("VFINDER_ADAPTERS_HTTP_ENABLED", "false")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.Server.Metrics.Enabled = false
	return cfg, nil
}
