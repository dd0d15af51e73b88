package config

import (
	"sync"

	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/metrics"
)

// MetricsResult holds what the metrics section of the configuration
// produces.
type MetricsResult struct {
	// Server serves /metrics, nil when metrics are disabled
	Server *metrics.Server

	// ActionMetrics is handed to every adapter, a no-op when disabled
	ActionMetrics metrics.ActionMetrics
}

// The collectors live on the process-wide registry and can be registered
// only once.
var (
	actionMetricsOnce sync.Once
	actionMetrics     metrics.ActionMetrics
)

// InitializeMetrics builds the metrics server and the action collectors
// when server.metrics.enabled is set. Calling it again reuses the
// collectors created by the first call.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{ActionMetrics: metrics.NewNoopActionMetrics()}
	}

	metrics.InitRegistry()
	actionMetricsOnce.Do(func() {
		actionMetrics = metrics.NewActionMetrics()
	})

	logger.Debug("Metrics enabled on port %d", cfg.Server.Metrics.Port)
	return &MetricsResult{
		Server:        metrics.NewServer(metrics.ServerConfig{Port: cfg.Server.Metrics.Port}),
		ActionMetrics: actionMetrics,
	}
}
