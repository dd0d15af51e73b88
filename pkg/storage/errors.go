package storage

import "errors"

// ============================================================================
// Standard Storage Errors
// ============================================================================

// These errors provide a consistent way to indicate common failure conditions
// across all backends. The action layer checks for them with errors.Is and
// maps them to client-facing status codes.
//
// Implementations wrap them with additional context:
//
//	if !exists {
//	    return fmt.Errorf("file %s: %w", path, storage.ErrNotFound)
//	}

var (
	// ErrNotFound indicates the requested file or directory does not exist.
	//
	// HTTP mapping: 404 Not Found
	ErrNotFound = errors.New("not found")

	// ErrReadOnly indicates a write operation was attempted against a
	// storage configured as read-only.
	//
	// HTTP mapping: 403 Forbidden
	ErrReadOnly = errors.New("storage is read-only")

	// ErrUnknownStorage indicates a path addressed a storage key that is not
	// registered.
	//
	// HTTP mapping: 404 Not Found
	ErrUnknownStorage = errors.New("unknown storage")

	// ErrNotDirectory indicates a directory operation was attempted on a file.
	ErrNotDirectory = errors.New("not a directory")
)
