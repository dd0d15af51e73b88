// Package aferofs implements storage.Backend over an afero filesystem.
//
// Two flavours are provided:
//   - NewLocal: a directory on the local disk, jailed with afero.BasePathFs
//   - NewMemory: an ephemeral in-memory filesystem, used for tests and demos
//
// Any other afero.Fs can be wrapped with New.
package aferofs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/spf13/afero"
)

// Store is an afero-backed storage.Backend.
//
// Thread Safety:
// Safe for concurrent use as long as the wrapped afero.Fs is. Both OsFs and
// MemMapFs are.
type Store struct {
	fs afero.Fs

	// renameDirs is true when the filesystem moves directory trees atomically
	// with Rename. MemMapFs only renames the directory node itself, so
	// directory moves fall back to copy and remove.
	renameDirs bool
}

// New wraps an arbitrary afero filesystem.
func New(fsys afero.Fs) *Store {
	_, isMem := fsys.(*afero.MemMapFs)
	return &Store{fs: fsys, renameDirs: !isMem}
}

// NewLocal creates a backend rooted at a directory of the local disk.
//
// The root directory is created if missing. All paths are resolved inside
// root; attempts to escape it with ".." are rejected by BasePathFs.
func NewLocal(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage: root path is required")
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory %q: %w", root, err)
	}

	return New(afero.NewBasePathFs(afero.NewOsFs(), root)), nil
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Store {
	return New(afero.NewMemMapFs())
}

// Fs exposes the underlying filesystem.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// abs converts a backend-relative path into the absolute form afero expects.
func abs(p string) string {
	return path.Clean("/" + strings.TrimLeft(p, "/"))
}

// rel converts an absolute afero path back to the backend-relative form.
func rel(p string) string {
	return strings.TrimLeft(path.Clean(p), "/")
}

func mapErr(p string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", p, storage.ErrNotFound)
	}
	return err
}

func (s *Store) stat(p string) (os.FileInfo, error) {
	info, err := s.fs.Stat(abs(p))
	return info, mapErr(p, err)
}

// ============================================================================
// Queries
// ============================================================================

func (s *Store) FileExists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := s.stat(p)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *Store) DirectoryExists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if abs(p) == "/" {
		return true, nil
	}

	info, err := s.stat(p)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// ListContents lists a directory. Shallow listings preserve afero's name
// order; deep listings follow the walk order (lexical, parents first).
func (s *Store) ListContents(ctx context.Context, p string, deep bool) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := abs(p)
	info, err := s.stat(p)
	if err != nil {
		if root != "/" || !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		// An empty in-memory filesystem has no root node yet
		return []storage.Entry{}, nil
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", p, storage.ErrNotDirectory)
	}

	if !deep {
		infos, err := afero.ReadDir(s.fs, root)
		if err != nil {
			return nil, mapErr(p, err)
		}
		entries := make([]storage.Entry, 0, len(infos))
		for _, fi := range infos {
			entries = append(entries, toEntry(path.Join(root, fi.Name()), fi))
		}
		return entries, nil
	}

	var entries []storage.Entry
	err = afero.Walk(s.fs, root, func(walkPath string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path.Clean(walkPath) == root {
			return nil
		}
		entries = append(entries, toEntry(walkPath, fi))
		return nil
	})
	if err != nil {
		return nil, mapErr(p, err)
	}

	if entries == nil {
		entries = []storage.Entry{}
	}
	return entries, nil
}

func toEntry(absPath string, fi os.FileInfo) storage.Entry {
	e := storage.Entry{
		Type:         storage.TypeFile,
		Path:         rel(absPath),
		LastModified: fi.ModTime(),
	}
	if fi.IsDir() {
		e.Type = storage.TypeDir
	} else {
		e.FileSize = storage.Int64(fi.Size())
	}
	return e
}

func (s *Store) FileSize(ctx context.Context, p string) (int64, error) {
	info, err := s.fileInfo(ctx, p)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *Store) LastModified(ctx context.Context, p string) (time.Time, error) {
	info, err := s.fileInfo(ctx, p)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (s *Store) fileInfo(ctx context.Context, p string) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := s.stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", p, storage.ErrNotFound)
	}
	return info, nil
}

func (s *Store) MimeType(ctx context.Context, p string) (string, error) {
	r, err := s.ReadStream(ctx, p)
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	return storage.DetectMimeType(p, r)
}

// ============================================================================
// Content
// ============================================================================

// ReadStream opens a file. The returned afero.File is also an io.Seeker.
func (s *Store) ReadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	if _, err := s.fileInfo(ctx, p); err != nil {
		return nil, err
	}

	f, err := s.fs.Open(abs(p))
	if err != nil {
		return nil, mapErr(p, err)
	}
	return f, nil
}

func (s *Store) WriteStream(ctx context.Context, p string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := abs(p)
	if target == "/" {
		return fmt.Errorf("cannot write to storage root")
	}

	if err := s.fs.MkdirAll(path.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", p, err)
	}

	f, err := s.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s for writing: %w", p, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", p, err)
	}

	return f.Close()
}

func (s *Store) Write(ctx context.Context, p string, data []byte) error {
	return s.WriteStream(ctx, p, bytes.NewReader(data))
}

// ============================================================================
// Structure
// ============================================================================

func (s *Store) CreateDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(abs(p), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", p, err)
	}
	return nil
}

func (s *Store) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := s.stat(src)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(path.Dir(abs(dst)), 0755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", dst, err)
	}

	if info.IsDir() && !s.renameDirs {
		if err := s.copyTree(ctx, abs(src), abs(dst)); err != nil {
			return err
		}
		return s.fs.RemoveAll(abs(src))
	}

	if err := s.fs.Rename(abs(src), abs(dst)); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, mapErr(src, err))
	}
	return nil
}

func (s *Store) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := s.stat(src)
	if err != nil {
		return err
	}

	if info.IsDir() {
		return s.copyTree(ctx, abs(src), abs(dst))
	}
	return s.copyFile(ctx, abs(src), abs(dst))
}

// copyTree recreates the directory src at dst, parents before children.
func (s *Store) copyTree(ctx context.Context, src, dst string) error {
	type item struct {
		path  string
		isDir bool
	}

	// Walk yields parents before children. Collect first so copying into a
	// subdirectory of src cannot loop.
	var items []item
	err := afero.Walk(s.fs, src, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		items = append(items, item{path: p, isDir: fi.IsDir()})
		return nil
	})
	if err != nil {
		return mapErr(src, err)
	}

	for _, it := range items {
		target := path.Join(dst, strings.TrimPrefix(it.path, src))
		if it.isDir {
			if err := s.fs.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", rel(target), err)
			}
			continue
		}
		if err := s.copyFile(ctx, it.path, target); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) copyFile(ctx context.Context, src, dst string) error {
	in, err := s.fs.Open(src)
	if err != nil {
		return mapErr(rel(src), err)
	}
	defer func() { _ = in.Close() }()

	return s.WriteStream(ctx, rel(dst), in)
}

func (s *Store) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := s.stat(p)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", p)
	}

	return mapErr(p, s.fs.Remove(abs(p)))
}

func (s *Store) DeleteDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if abs(p) == "/" {
		return fmt.Errorf("cannot delete storage root")
	}

	info, err := s.stat(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", p, storage.ErrNotDirectory)
	}

	return s.fs.RemoveAll(abs(p))
}

func (s *Store) Close() error {
	return nil
}
