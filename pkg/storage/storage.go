// Package storage defines the capability set every file manager backend
// implements, together with the raw entry type and the sentinel errors the
// action layer translates into client responses.
//
// Paths passed to a Backend are always relative to the backend root, use
// forward slashes and carry no storage prefix. The empty string and "/" both
// address the root. Prefix handling lives in pkg/mount.
package storage

import (
	"context"
	"io"
	"time"
)

// EntryType distinguishes files from directories.
type EntryType string

const (
	TypeFile EntryType = "file"
	TypeDir  EntryType = "dir"
)

// Entry is a raw listing record as reported by a backend.
type Entry struct {
	// Type is either TypeFile or TypeDir
	Type EntryType

	// Path is relative to the backend root (no leading slash)
	Path string

	// FileSize is set for files only
	FileSize *int64

	// LastModified is the modification time, zero when unknown
	LastModified time.Time
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Type == TypeDir
}

// Backend is the filesystem capability set a storage must provide.
//
// Implementations must be safe for concurrent use. Write operations create
// missing parent directories implicitly, which mirrors how object stores
// behave and keeps the handlers backend-agnostic.
//
// Error contract:
//   - Operations on missing paths return an error wrapping ErrNotFound
//   - FileExists / DirectoryExists never return ErrNotFound, they return false
type Backend interface {
	// FileExists reports whether a regular file exists at path.
	FileExists(ctx context.Context, path string) (bool, error)

	// DirectoryExists reports whether a directory exists at path.
	// The root always exists.
	DirectoryExists(ctx context.Context, path string) (bool, error)

	// ListContents lists the entries under path. When deep is true the
	// listing is recursive and includes every nested file and directory.
	ListContents(ctx context.Context, path string, deep bool) ([]Entry, error)

	// FileSize returns the size in bytes of the file at path.
	FileSize(ctx context.Context, path string) (int64, error)

	// LastModified returns the modification time of the file at path.
	LastModified(ctx context.Context, path string) (time.Time, error)

	// MimeType returns the detected media type of the file at path.
	MimeType(ctx context.Context, path string) (string, error)

	// ReadStream opens the file at path for reading. The returned reader
	// also implements io.Seeker when the backend supports random access.
	ReadStream(ctx context.Context, path string) (io.ReadCloser, error)

	// WriteStream writes the content of r to path, replacing any existing file.
	WriteStream(ctx context.Context, path string, r io.Reader) error

	// Write writes data to path, replacing any existing file.
	Write(ctx context.Context, path string, data []byte) error

	// CreateDirectory creates the directory at path and any missing parents.
	CreateDirectory(ctx context.Context, path string) error

	// Move renames a file or directory from src to dst.
	Move(ctx context.Context, src, dst string) error

	// Copy duplicates a file or directory from src to dst.
	Copy(ctx context.Context, src, dst string) error

	// Delete removes the file at path.
	Delete(ctx context.Context, path string) error

	// DeleteDirectory removes the directory at path and everything below it.
	DeleteDirectory(ctx context.Context, path string) error

	// Close releases resources held by the backend.
	Close() error
}

// Int64 returns a pointer to v. Convenience for building entries.
func Int64(v int64) *int64 {
	return &v
}
