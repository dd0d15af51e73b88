package registry

import (
	"fmt"

	"github.com/marmos91/vfinder/pkg/storage"
)

// Storage is a registered backend together with its per-storage options.
type Storage struct {
	Name    string
	Backend storage.Backend
	Options Options
}

// Options are the per-storage settings fixed at startup.
type Options struct {
	// ReadOnly rejects every mutating action on this storage
	ReadOnly bool

	// Public controls whether files get a public URL. nil means "not set",
	// which leaves the decision to the global URL configuration.
	Public *bool

	// PublicBaseURL is the base URL files of this storage are served from
	PublicBaseURL string

	// PublicPrefix is the path segment appended to the application URL.
	// Defaults to "storage/<name>" when empty.
	PublicPrefix string
}

// UnknownStorageError is returned when a key is not registered.
type UnknownStorageError struct {
	Key string
}

func (e *UnknownStorageError) Error() string {
	return fmt.Sprintf("storage %q is not registered", e.Key)
}

// Unwrap lets callers match with errors.Is(err, storage.ErrUnknownStorage).
func (e *UnknownStorageError) Unwrap() error {
	return storage.ErrUnknownStorage
}
