// Package metrics exposes vfinder's Prometheus instrumentation.
//
// Metrics are opt-in. Until InitRegistry runs, GetRegistry returns nil and
// every constructor hands out a no-op implementation, so the action path
// never checks whether metrics are on:
//
//	metrics.InitRegistry()
//	m := metrics.NewActionMetrics()   // Prometheus backed
//	api := httpapi.NewAPI(h, cfg, m)
//
//	api := httpapi.NewAPI(h, cfg, nil) // no-op
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the process-wide registry with the Go runtime and
// process collectors. Later calls do nothing.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registry = reg
	})
}

// GetRegistry returns the registry, nil while metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has run.
func IsEnabled() bool {
	return GetRegistry() != nil
}
