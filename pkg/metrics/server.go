package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/vfinder/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultPort     = 9090
	shutdownTimeout = 5 * time.Second
)

// Server serves the scrape endpoint next to the file manager transports.
//
// Endpoints:
//   - GET /metrics: Prometheus text or OpenMetrics exposition
//   - GET /healthz: 200 "ok" while the process serves
type Server struct {
	server *http.Server
	port   int

	mu       sync.Mutex
	listener net.Listener

	stopOnce sync.Once
	stopErr  error
}

// ServerConfig configures the metrics HTTP server.
type ServerConfig struct {
	// Port to listen on. 0 means 9090, a negative value binds an ephemeral
	// port (see Addr).
	Port int
}

// NewServer creates a stopped metrics server. Start serves it.
func NewServer(config ServerConfig) *Server {
	port := config.Port
	if port == 0 {
		port = defaultPort
	}

	addr := fmt.Sprintf(":%d", port)
	if port < 0 {
		addr = ":0"
	}

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       time.Minute,
		},
		port: port,
	}
}

// Handler returns the mux served by Server, usable on its own in tests or
// behind another server.
func Handler() http.Handler {
	mux := http.NewServeMux()

	if reg := GetRegistry(); reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorLog:          errorLogger{},
		}))
	} else {
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics collection is disabled", http.StatusServiceUnavailable)
		})
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "ok\n")
	})

	return mux
}

// errorLogger routes promhttp gathering errors to the application logger.
type errorLogger struct{}

func (errorLogger) Println(v ...any) {
	logger.Error("Metrics gathering failed: %s", fmt.Sprint(v...))
}

// Start binds the port and serves until ctx is cancelled, then shuts down
// gracefully. A bind failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("metrics server: listen on %s: %w", s.server.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logger.Info("Metrics server listening on %s", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		// ctx is already done, shutdown gets its own deadline
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return s.Stop(stopCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

// Stop shuts the server down. Safe to call more than once and concurrently
// with Start.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			s.stopErr = fmt.Errorf("metrics server shutdown: %w", err)
			logger.Error("Metrics server shutdown error: %v", err)
			return
		}
		logger.Info("Metrics server stopped")
	})
	return s.stopErr
}

// Port returns the configured port, negative for an ephemeral one.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the bound address once Start has bound the listener, nil
// before.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
