package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ActionMetrics provides observability for file manager actions.
//
// The HTTP and Lambda adapters record every dispatched verb. This interface
// is optional - if not provided, a no-op implementation is used with zero
// overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := metrics.NewActionMetrics()
//	adapter := http.New(config, m)
//
//	// Without metrics (no-op)
//	adapter := http.New(config, nil)
type ActionMetrics interface {
	// RecordAction records a completed action.
	//
	// Parameters:
	//   - action: verb name (e.g. "index", "upload", "move")
	//   - storage: storage key the request addressed
	//   - status: HTTP status code of the response
	//   - duration: time taken to process the request
	RecordAction(action, storage string, status int, duration time.Duration)

	// RecordActionStart increments the in-flight counter for action.
	RecordActionStart(action string)

	// RecordActionEnd decrements the in-flight counter for action.
	RecordActionEnd(action string)

	// RecordBytesTransferred records payload bytes.
	//
	// Parameters:
	//   - direction: "upload" or "download"
	//   - bytes: number of bytes transferred
	RecordBytesTransferred(direction string, bytes int64)
}

// actionMetrics is the Prometheus implementation of ActionMetrics.
type actionMetrics struct {
	actionsTotal     *prometheus.CounterVec
	actionDuration   *prometheus.HistogramVec
	actionsInFlight  *prometheus.GaugeVec
	bytesTransferred *prometheus.CounterVec
}

// NewActionMetrics creates a new Prometheus-backed ActionMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewActionMetrics() ActionMetrics {
	if !IsEnabled() {
		return noopActionMetrics{}
	}

	reg := GetRegistry()

	return &actionMetrics{
		actionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfinder_actions_total",
				Help: "Total number of file manager actions by verb, storage and status class",
			},
			[]string{"action", "storage", "status"},
		),
		actionDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "vfinder_action_duration_seconds",
				Help: "Duration of file manager actions in seconds",
				Buckets: []float64{
					0.005, // 5ms
					0.025, // 25ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					5.0,   // 5s
					30.0,  // 30s
					120.0, // 2min, large archives
				},
			},
			[]string{"action"},
		),
		actionsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vfinder_actions_in_flight",
				Help: "Current number of file manager actions being processed",
			},
			[]string{"action"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfinder_bytes_transferred_total",
				Help: "Total payload bytes received by uploads and sent by downloads",
			},
			[]string{"direction"},
		),
	}
}

func (m *actionMetrics) RecordAction(action, storage string, status int, duration time.Duration) {
	m.actionsTotal.WithLabelValues(action, storage, statusClass(status)).Inc()
	m.actionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

func (m *actionMetrics) RecordActionStart(action string) {
	m.actionsInFlight.WithLabelValues(action).Inc()
}

func (m *actionMetrics) RecordActionEnd(action string) {
	m.actionsInFlight.WithLabelValues(action).Dec()
}

func (m *actionMetrics) RecordBytesTransferred(direction string, bytes int64) {
	if bytes > 0 {
		m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
	}
}

// statusClass collapses a status code to "2xx", "4xx" or "5xx" to keep the
// label cardinality bounded.
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// noopActionMetrics is a no-op implementation of ActionMetrics with zero overhead.
type noopActionMetrics struct{}

func (noopActionMetrics) RecordAction(action, storage string, status int, duration time.Duration) {}

func (noopActionMetrics) RecordActionStart(action string) {}

func (noopActionMetrics) RecordActionEnd(action string) {}

func (noopActionMetrics) RecordBytesTransferred(direction string, bytes int64) {}

// NewNoopActionMetrics returns the no-op implementation.
func NewNoopActionMetrics() ActionMetrics {
	return noopActionMetrics{}
}
