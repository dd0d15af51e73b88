// Package adapter defines the transports that expose the file manager
// actions (a standalone HTTP server, AWS Lambda behind API Gateway).
package adapter

import (
	"context"

	"github.com/marmos91/vfinder/internal/action"
)

// Adapter represents a transport-specific front end managed by the Server.
//
// Each adapter turns its own wire format into action requests and hands them
// to the shared action handler, so every transport sees the same storages.
//
// Lifecycle:
//  1. Creation: Adapter is created with transport-specific configuration
//  2. Handler injection: SetHandler() provides the shared action handler
//  3. Startup: Serve() starts the transport and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetHandler() is called
// once before Serve(), but Stop() may be called concurrently with Serve().
type Adapter interface {
	// Serve starts the transport and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must stop accepting requests,
	// wait for in-flight ones (bounded by the shutdown timeout) and return
	// nil or context.Canceled.
	//
	// If Serve returns before context cancellation, the Server treats it as
	// a fatal error and stops all other adapters.
	Serve(ctx context.Context) error

	// SetHandler injects the shared action handler.
	//
	// Called exactly once by the Server before Serve().
	SetHandler(h *action.Handler)

	// Stop initiates graceful shutdown.
	//
	// Implementations must be idempotent, safe to call concurrently with
	// Serve(), and must respect the context deadline.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable transport name for logging and
	// metrics, e.g. "HTTP" or "Lambda".
	Protocol() string

	// Port returns the TCP port the adapter is listening on, 0 for
	// transports without a listener or before Serve() bound one.
	Port() int
}
