// Package action implements the file manager verbs on top of the mounted
// storages: listing, search, transfers, mutations and archives.
//
// Transports parse an HTTP call into a Request and hand it to
// Handler.Dispatch, which validates the verb and method, enforces read-only
// storages and runs the matching handler.
package action

import (
	"errors"
	"os"

	"github.com/marmos91/vfinder/pkg/mount"
	"github.com/marmos91/vfinder/pkg/node"
	"github.com/marmos91/vfinder/pkg/registry"
)

// DefaultThumbnailWidth is used when a thumbnail request carries no width.
const DefaultThumbnailWidth = 256

// maxThumbnailWidth caps the requested thumbnail width.
const maxThumbnailWidth = 2048

// Config tunes the handlers.
type Config struct {
	// TempDir holds the scratch files of archive and unarchive.
	// Empty means os.TempDir().
	TempDir string

	// ThumbnailWidth is the default thumbnail width, 0 for 256.
	ThumbnailWidth int
}

// Handler executes actions against the registered storages.
//
// Thread Safety:
// Safe for concurrent use. The registry is immutable once serving starts
// and every call works on request-local state.
type Handler struct {
	reg  *registry.Registry
	fs   *mount.Manager
	urls node.URLResolver
	cfg  Config
}

// NewHandler creates a handler. The registry must hold at least one storage,
// the first registered one is the default for paths without a prefix.
// urls may be nil, in which case no node carries a public URL.
func NewHandler(reg *registry.Registry, urls node.URLResolver, cfg Config) (*Handler, error) {
	if reg == nil || reg.Count() == 0 {
		return nil, errors.New("at least one storage must be registered")
	}

	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.ThumbnailWidth <= 0 {
		cfg.ThumbnailWidth = DefaultThumbnailWidth
	}

	return &Handler{
		reg:  reg,
		fs:   mount.NewManager(reg),
		urls: urls,
		cfg:  cfg,
	}, nil
}

// Registry returns the storages served by the handler.
func (h *Handler) Registry() *registry.Registry {
	return h.reg
}
