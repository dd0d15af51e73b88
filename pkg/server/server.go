package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/vfinder/internal/action"
	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/adapter"
)

// DefaultStopTimeout bounds the Stop() calls issued during shutdown.
const DefaultStopTimeout = 30 * time.Second

// ErrAlreadyServed is returned by a second call to Serve.
var ErrAlreadyServed = errors.New("server: Serve() has already been called")

// Server manages the lifecycle of the transport adapters that share one
// action handler.
//
// Architecture:
// Every transport (standalone HTTP, Lambda) is an adapter.Adapter. All of
// them receive the same action.Handler, and therefore the same storage
// registry, so a file uploaded through one transport is immediately visible
// through the others.
//
// Lifecycle:
//  1. Creation: New() with the action handler
//  2. Registration: AddAdapter() for each transport
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: Context cancellation triggers graceful shutdown of all adapters
//
// Thread safety:
// Server is safe for concurrent use. Serve() may only be called once.
//
// Example usage:
//
//	srv := server.New(handler, server.Config{})
//	srv.AddAdapter(httpAdapter)
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && err != context.Canceled {
//	    log.Fatal(err)
//	}
type Server struct {
	handler *action.Handler
	config  Config

	// mu protects adapters and served
	mu       sync.Mutex
	adapters []adapter.Adapter
	served   bool
}

// Config tunes the server lifecycle.
type Config struct {
	// StopTimeout bounds the Stop() calls issued on shutdown.
	// Default 30s.
	StopTimeout time.Duration
}

// New creates a Server around the shared action handler.
//
// Panics if h is nil (indicates programmer error).
func New(h *action.Handler, config Config) *Server {
	if h == nil {
		panic("action handler cannot be nil")
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = DefaultStopTimeout
	}

	return &Server{
		handler:  h,
		config:   config,
		adapters: make([]adapter.Adapter, 0, 2),
	}
}

// AddAdapter registers a transport adapter and injects the shared handler.
//
// Each adapter must implement a different protocol. Adapters with a
// listener must not share a port, adapters reporting port 0 (Lambda, or
// an ephemeral port) are never considered in conflict.
//
// Returns an error for a nil adapter, a duplicate protocol, a port conflict
// or when Serve() has already been called.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		return errors.New("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return errors.New("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetHandler(s.handler)
	s.adapters = append(s.adapters, a)

	if port != 0 {
		logger.Info("Registered %s adapter on port %d", protocol, port)
	} else {
		logger.Info("Registered %s adapter", protocol)
	}
	return nil
}

// Serve starts all registered adapters and blocks until the context is
// cancelled or an adapter fails.
//
// Shutdown behavior:
// When the context is cancelled or an adapter fails, every adapter receives
// Stop() in reverse registration order, then Serve waits for all of them to
// return.
//
// Returns:
//   - context.Canceled (or the context's error) after a requested shutdown
//   - the first adapter error otherwise
//   - ErrAlreadyServed on a second call
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrAlreadyServed
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return errors.New("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting vfinder with %d adapter(s)", len(adapters))

	// serveCtx is also cancelled when an adapter fails, so that the others
	// unwind even if their Stop() is a no-op.
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so that failing adapters never block.
	errChan := make(chan adapterError, len(adapters))

	var wg sync.WaitGroup
	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Debug("Starting %s adapter", protocol)

			err := a.Serve(serveCtx)
			switch {
			case err == nil:
				logger.Info("%s adapter stopped", protocol)
				if serveCtx.Err() == nil {
					// Returning before cancellation is fatal.
					errChan <- adapterError{protocol: protocol, err: errors.New("stopped unexpectedly")}
				}
			case errors.Is(err, context.Canceled) || serveCtx.Err() != nil:
				logger.Debug("%s adapter stopped gracefully", protocol)
			default:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			}
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	cancel()
	s.stopAllAdapters(adapters)

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	logger.Info("vfinder stopped")
	return shutdownErr
}

// adapterError pairs an adapter protocol name with its error.
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters calls Stop() on every adapter in reverse registration
// order. Errors are logged and do not interrupt the sequence.
func (s *Server) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.StopTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		protocol := adp.Protocol()

		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		} else {
			logger.Debug("%s adapter stop signal sent", protocol)
		}
	}
}

// Adapters returns a snapshot of the registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}

// Handler returns the shared action handler.
func (s *Server) Handler() *action.Handler {
	return s.handler
}
