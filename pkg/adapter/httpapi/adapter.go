package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/vfinder/internal/action"
	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/metrics"
)

// HTTPAdapter implements the adapter.Adapter interface as a standalone HTTP
// server.
//
// The adapter owns the listener and the http.Server, the request handling
// itself lives in API so that other transports (Lambda) can reuse it.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. http.Server.Shutdown stops accepting connections
//  3. In-flight requests get up to ShutdownTimeout to complete
//  4. Remaining connections are closed
//
// Thread safety:
// All methods are safe for concurrent use. Shutdown is guarded by sync.Once.
type HTTPAdapter struct {
	config  HTTPConfig
	metrics metrics.ActionMetrics

	api    *API
	server *http.Server

	// port is the bound port, set once the listener is up.
	port atomic.Int32

	ready        chan struct{}
	readyOnce    sync.Once
	shutdownOnce sync.Once
	shutdownErr  error
}

// HTTPConfig holds configuration parameters for the HTTP server.
//
// Default values (applied by New if zero):
//   - Port: 8080 (-1 binds an ephemeral port)
//   - BasePath: "/api"
//   - MaxUploadSize: "100MiB"
//   - ReadTimeout: 5m (uploads)
//   - WriteTimeout: 5m (downloads, archives)
//   - IdleTimeout: 2m
//   - ShutdownTimeout: 30s
type HTTPConfig struct {
	// Enabled controls whether the HTTP adapter is active.
	Enabled bool `mapstructure:"enabled"`

	// Port is the TCP port to listen on. -1 binds an ephemeral port.
	Port int `mapstructure:"port" validate:"min=-1,max=65535"`

	// BasePath is the URL prefix of the API.
	BasePath string `mapstructure:"base_path"`

	// MaxUploadSize caps request bodies, in human readable form ("100MiB",
	// "2GB"). "0" disables the limit.
	MaxUploadSize string `mapstructure:"max_upload_size"`

	// CORSOrigin is the Access-Control-Allow-Origin value. Default "*".
	CORSOrigin string `mapstructure:"cors_origin"`

	// RateLimit is the sustained requests per second allowed per client
	// address. 0 disables rate limiting.
	RateLimit uint `mapstructure:"rate_limit"`

	// RateBurst is the number of requests a client may send at once.
	// Defaults to twice RateLimit.
	RateBurst uint `mapstructure:"rate_burst"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout bounds graceful shutdown. Must be > 0.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *HTTPConfig) applyDefaults() {
	// Enabled is defaulted in pkg/config so that an explicit false survives.

	if c.Port == 0 {
		c.Port = 8080
	}
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "100MiB"
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		c.RateBurst = c.RateLimit * 2
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// validate checks the configuration and returns the upload limit in bytes.
func (c *HTTPConfig) validate() (int64, error) {
	if c.Port < -1 || c.Port > 65535 {
		return 0, fmt.Errorf("invalid port %d: must be -1-65535", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return 0, fmt.Errorf("invalid timeouts: must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		return 0, fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}

	limit, err := humanize.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return 0, fmt.Errorf("invalid max_upload_size %q: %w", c.MaxUploadSize, err)
	}
	return int64(limit), nil
}

// New creates a new HTTPAdapter with the specified configuration.
//
// The adapter is created in a stopped state. Call SetHandler() to inject
// the action handler, then Serve() to start accepting connections.
//
// Parameters:
//   - config: server configuration (port, base path, limits, timeouts)
//   - m: optional metrics collector (nil for no metrics)
//
// Returns an error when the configuration is invalid.
func New(config HTTPConfig, m metrics.ActionMetrics) (*HTTPAdapter, error) {
	config.applyDefaults()

	maxUpload, err := config.validate()
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP config: %w", err)
	}
	config.MaxUploadSize = humanize.IBytes(uint64(maxUpload))

	if m == nil {
		m = metrics.NewNoopActionMetrics()
	}

	a := &HTTPAdapter{
		config:  config,
		metrics: m,
		ready:   make(chan struct{}),
	}
	a.api = NewAPI(nil, APIConfig{
		BasePath:      config.BasePath,
		MaxUploadSize: maxUpload,
		CORSOrigin:    config.CORSOrigin,
		RateLimit:     config.RateLimit,
		RateBurst:     config.RateBurst,
	}, m)
	return a, nil
}

// SetHandler injects the shared action handler.
//
// Thread safety:
// Called exactly once before Serve(), no synchronization needed.
func (s *HTTPAdapter) SetHandler(h *action.Handler) {
	s.api.SetHandler(h)
	logger.Debug("HTTP action handler configured")
}

// Handler returns the API handler, mostly useful for tests.
func (s *HTTPAdapter) Handler() http.Handler {
	return s.api
}

// Serve starts the HTTP server and blocks until the context is cancelled
// or the listener fails.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener fails to start or shutdown times out
func (s *HTTPAdapter) Serve(ctx context.Context) error {
	if !s.api.HasHandler() {
		return errors.New("HTTP adapter has no action handler")
	}

	port := s.config.Port
	if port < 0 {
		port = 0
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener on port %d: %w", port, err)
	}

	bound := listener.Addr().(*net.TCPAddr).Port
	s.port.Store(int32(bound))

	s.server = &http.Server{
		Handler:           s.api,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.readyOnce.Do(func() { close(s.ready) })

	logger.Info("HTTP server listening on port %d (base path %s)", bound, s.api.config.BasePath)
	logger.Debug("HTTP config: max_upload_size=%s rate_limit=%d/s read_timeout=%v write_timeout=%v idle_timeout=%v",
		s.config.MaxUploadSize, s.config.RateLimit, s.config.ReadTimeout, s.config.WriteTimeout, s.config.IdleTimeout)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logger.Info("HTTP shutdown signal received: %v", ctx.Err())
		return s.shutdown()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			// Stop() got there first, wait for it to finish.
			return s.shutdown()
		}
		return fmt.Errorf("HTTP server error: %w", err)
	}
}

// Stop initiates graceful shutdown of the HTTP server.
func (s *HTTPAdapter) Stop(ctx context.Context) error {
	select {
	case <-s.ready:
	default:
		// Serve never bound a listener.
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- s.shutdown() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("HTTP shutdown timeout: %w", ctx.Err())
	}
}

func (s *HTTPAdapter) shutdown() error {
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			logger.Warn("HTTP graceful shutdown timed out, closing connections: %v", err)
			_ = s.server.Close()
			s.shutdownErr = fmt.Errorf("HTTP shutdown: %w", err)
			return
		}
		logger.Info("HTTP server stopped")
	})
	return s.shutdownErr
}

// Protocol returns "HTTP".
func (s *HTTPAdapter) Protocol() string {
	return "HTTP"
}

// Port returns the bound port once Serve started, the configured one
// before.
func (s *HTTPAdapter) Port() int {
	if p := s.port.Load(); p > 0 {
		return int(p)
	}
	if s.config.Port < 0 {
		return 0
	}
	return s.config.Port
}

// Ready is closed once the listener is bound.
func (s *HTTPAdapter) Ready() <-chan struct{} {
	return s.ready
}
