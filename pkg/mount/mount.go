// Package mount exposes every registered storage through a single
// filesystem addressed with storage-prefixed paths ("local://docs/a.txt").
//
// The Manager routes each call to the backend named by the prefix, enforces
// the read-only flag on every mutation and handles operations whose source
// and destination live on different storages by streaming between backends.
package mount

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/registry"
	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/marmos91/vfinder/pkg/storagepath"
)

// Manager is the storage-prefixed filesystem service.
//
// Thread Safety:
// Safe for concurrent use. The Manager holds no state beyond the registry.
type Manager struct {
	reg *registry.Registry
}

// NewManager creates a manager over the storages of reg.
func NewManager(reg *registry.Registry) *Manager {
	return &Manager{reg: reg}
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *registry.Registry {
	return m.reg
}

// target is a resolved prefixed path.
type target struct {
	key     string
	rel     string
	backend storage.Backend
}

func (t target) String() string {
	return t.key + storagepath.Separator + t.rel
}

// resolve maps a prefixed path to its backend. Paths without a prefix
// address the default storage. Unknown prefixes fail with
// storage.ErrUnknownStorage.
func (m *Manager) resolve(p string) (target, error) {
	key, rel, ok := storagepath.Split(p)
	if !ok {
		key = m.reg.Default()
	}

	backend, err := m.reg.Get(key)
	if err != nil {
		return target{}, err
	}
	return target{key: key, rel: rel, backend: backend}, nil
}

// resolveWritable is resolve plus the read-only check.
func (m *Manager) resolveWritable(p string) (target, error) {
	t, err := m.resolve(p)
	if err != nil {
		return target{}, err
	}
	if m.reg.IsReadOnly(t.key) {
		return target{}, fmt.Errorf("storage %q: %w", t.key, storage.ErrReadOnly)
	}
	return t, nil
}

// ============================================================================
// Queries
// ============================================================================

func (m *Manager) FileExists(ctx context.Context, p string) (bool, error) {
	t, err := m.resolve(p)
	if err != nil {
		return false, err
	}
	return t.backend.FileExists(ctx, t.rel)
}

func (m *Manager) DirectoryExists(ctx context.Context, p string) (bool, error) {
	t, err := m.resolve(p)
	if err != nil {
		return false, err
	}
	return t.backend.DirectoryExists(ctx, t.rel)
}

// Exists reports whether a file or a directory exists at p.
func (m *Manager) Exists(ctx context.Context, p string) (bool, error) {
	isFile, err := m.FileExists(ctx, p)
	if err != nil || isFile {
		return isFile, err
	}
	return m.DirectoryExists(ctx, p)
}

// ListContents lists p. Returned entry paths carry the storage prefix.
func (m *Manager) ListContents(ctx context.Context, p string, deep bool) ([]storage.Entry, error) {
	t, err := m.resolve(p)
	if err != nil {
		return nil, err
	}

	entries, err := t.backend.ListContents(ctx, t.rel, deep)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Path = storagepath.Qualify(entries[i].Path, t.key)
	}
	return entries, nil
}

func (m *Manager) FileSize(ctx context.Context, p string) (int64, error) {
	t, err := m.resolve(p)
	if err != nil {
		return 0, err
	}
	return t.backend.FileSize(ctx, t.rel)
}

func (m *Manager) LastModified(ctx context.Context, p string) (time.Time, error) {
	t, err := m.resolve(p)
	if err != nil {
		return time.Time{}, err
	}
	return t.backend.LastModified(ctx, t.rel)
}

func (m *Manager) MimeType(ctx context.Context, p string) (string, error) {
	t, err := m.resolve(p)
	if err != nil {
		return "", err
	}
	return t.backend.MimeType(ctx, t.rel)
}

func (m *Manager) ReadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	t, err := m.resolve(p)
	if err != nil {
		return nil, err
	}
	return t.backend.ReadStream(ctx, t.rel)
}

// ============================================================================
// Mutations
// ============================================================================

func (m *Manager) WriteStream(ctx context.Context, p string, r io.Reader) error {
	t, err := m.resolveWritable(p)
	if err != nil {
		return err
	}
	return t.backend.WriteStream(ctx, t.rel, r)
}

func (m *Manager) Write(ctx context.Context, p string, data []byte) error {
	t, err := m.resolveWritable(p)
	if err != nil {
		return err
	}
	return t.backend.Write(ctx, t.rel, data)
}

func (m *Manager) CreateDirectory(ctx context.Context, p string) error {
	t, err := m.resolveWritable(p)
	if err != nil {
		return err
	}
	return t.backend.CreateDirectory(ctx, t.rel)
}

func (m *Manager) Delete(ctx context.Context, p string) error {
	t, err := m.resolveWritable(p)
	if err != nil {
		return err
	}
	return t.backend.Delete(ctx, t.rel)
}

func (m *Manager) DeleteDirectory(ctx context.Context, p string) error {
	t, err := m.resolveWritable(p)
	if err != nil {
		return err
	}
	return t.backend.DeleteDirectory(ctx, t.rel)
}

// Copy duplicates src at dst. Both paths may live on different storages.
func (m *Manager) Copy(ctx context.Context, src, dst string) error {
	from, err := m.resolve(src)
	if err != nil {
		return err
	}
	to, err := m.resolveWritable(dst)
	if err != nil {
		return err
	}

	if from.key == to.key {
		return from.backend.Copy(ctx, from.rel, to.rel)
	}

	logger.Debug("Cross-storage copy %s -> %s", from, to)
	_, err = m.transfer(ctx, from, to)
	return err
}

// Move relocates src to dst. Moves across storages copy then delete the
// source, which requires the source storage to be writable too.
func (m *Manager) Move(ctx context.Context, src, dst string) error {
	from, err := m.resolveWritable(src)
	if err != nil {
		return err
	}
	to, err := m.resolveWritable(dst)
	if err != nil {
		return err
	}

	if from.key == to.key {
		return from.backend.Move(ctx, from.rel, to.rel)
	}

	logger.Debug("Cross-storage move %s -> %s", from, to)
	isDir, err := m.transfer(ctx, from, to)
	if err != nil {
		return err
	}

	if isDir {
		return from.backend.DeleteDirectory(ctx, from.rel)
	}
	return from.backend.Delete(ctx, from.rel)
}

// transfer streams a file or a directory tree between two backends.
// It reports whether the source was a directory.
func (m *Manager) transfer(ctx context.Context, from, to target) (bool, error) {
	isFile, err := from.backend.FileExists(ctx, from.rel)
	if err != nil {
		return false, err
	}
	if isFile {
		return false, streamFile(ctx, from.backend, from.rel, to.backend, to.rel)
	}

	isDir, err := from.backend.DirectoryExists(ctx, from.rel)
	if err != nil {
		return false, err
	}
	if !isDir {
		return false, fmt.Errorf("%s: %w", from, storage.ErrNotFound)
	}

	if err := to.backend.CreateDirectory(ctx, to.rel); err != nil {
		return true, err
	}

	entries, err := from.backend.ListContents(ctx, from.rel, true)
	if err != nil {
		return true, err
	}

	for _, e := range entries {
		dst := storagepath.Join(to.rel, storagepath.Rel(from.rel, e.Path))
		if e.IsDir() {
			if err := to.backend.CreateDirectory(ctx, dst); err != nil {
				return true, err
			}
			continue
		}
		if err := streamFile(ctx, from.backend, e.Path, to.backend, dst); err != nil {
			return true, err
		}
	}

	return true, nil
}

func streamFile(ctx context.Context, src storage.Backend, srcPath string, dst storage.Backend, dstPath string) error {
	r, err := src.ReadStream(ctx, srcPath)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	if err := dst.WriteStream(ctx, dstPath, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", dstPath, err)
	}
	return nil
}
