// Package badger implements storage.Backend on top of an embedded BadgerDB
// database, suitable for single-node deployments that want a self-contained
// data directory instead of a plain folder tree.
package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/vfinder/pkg/storage"
)

// Store is a BadgerDB-backed storage.Backend.
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use. Multi-entry operations
// (directory move and copy) apply one transaction per entry and are not
// atomic as a whole.
type Store struct {
	db *badger.DB
}

// Config contains configuration for the badger storage.
type Config struct {
	// DBPath is the database directory. Ignored when InMemory is set.
	DBPath string

	// InMemory keeps the whole database in RAM (no files are written)
	InMemory bool

	// BlockCacheSizeMB and IndexCacheSizeMB override Badger's cache sizes
	BlockCacheSizeMB int64
	IndexCacheSizeMB int64
}

// node is the JSON value stored under each n: key.
type node struct {
	Type  storage.EntryType `json:"type"`
	Size  int64             `json:"size,omitempty"`
	MTime time.Time         `json:"mtime"`

	// Gen and Chunks locate the content of a file, see keys.go
	Gen    string `json:"gen,omitempty"`
	Chunks int    `json:"chunks,omitempty"`
}

// New opens (or creates) a badger storage.
//
// Parameters:
//   - ctx: Context for cancellation
//   - cfg: Database location and tuning
//
// Returns:
//   - *Store: Opened store, must be closed by the caller
//   - error: If the database cannot be opened
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("badger storage: db_path is required")
		}
		opts = badger.DefaultOptions(cfg.DBPath)
	}

	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.Snappy)
	if cfg.BlockCacheSizeMB > 0 {
		opts = opts.WithBlockCacheSize(cfg.BlockCacheSizeMB << 20)
	}
	if cfg.IndexCacheSizeMB > 0 {
		opts = opts.WithIndexCacheSize(cfg.IndexCacheSizeMB << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	return &Store{db: db}, nil
}

// NewInMemory opens an in-memory badger storage.
func NewInMemory(ctx context.Context) (*Store, error) {
	return New(ctx, Config{InMemory: true})
}

// ============================================================================
// Node helpers
// ============================================================================

func getNode(txn *badger.Txn, p string) (*node, error) {
	item, err := txn.Get(keyNode(p))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", p, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var n node
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &n)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode node %s: %w", p, err)
	}
	return &n, nil
}

func setNode(txn *badger.Txn, p string, n node) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return txn.Set(keyNode(p), data)
}

// ensureParents materializes every missing ancestor directory of p.
func ensureParents(txn *badger.Txn, p string, now time.Time) error {
	for _, dir := range ancestors(p) {
		n, err := getNode(txn, dir)
		if errors.Is(err, storage.ErrNotFound) {
			if err := setNode(txn, dir, node{Type: storage.TypeDir, MTime: now}); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if n.Type != storage.TypeDir {
			return fmt.Errorf("%s: %w", dir, storage.ErrNotDirectory)
		}
	}
	return nil
}

func (s *Store) lookup(ctx context.Context, p string) (*node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var n *node
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		n, err = getNode(txn, p)
		return err
	})
	return n, err
}

func (s *Store) lookupFile(ctx context.Context, p string) (*node, error) {
	p = clean(p)
	n, err := s.lookup(ctx, p)
	if err != nil {
		return nil, err
	}
	if n.Type != storage.TypeFile {
		return nil, fmt.Errorf("%s is a directory: %w", p, storage.ErrNotFound)
	}
	return n, nil
}

// ============================================================================
// Queries
// ============================================================================

func (s *Store) FileExists(ctx context.Context, p string) (bool, error) {
	return s.exists(ctx, clean(p), storage.TypeFile)
}

func (s *Store) DirectoryExists(ctx context.Context, p string) (bool, error) {
	p = clean(p)
	if p == "" {
		return true, ctx.Err()
	}
	return s.exists(ctx, p, storage.TypeDir)
}

func (s *Store) exists(ctx context.Context, p string, want storage.EntryType) (bool, error) {
	if p == "" {
		return false, nil
	}
	n, err := s.lookup(ctx, p)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n.Type == want, nil
}

func (s *Store) ListContents(ctx context.Context, p string, deep bool) ([]storage.Entry, error) {
	p = clean(p)
	if p != "" {
		n, err := s.lookup(ctx, p)
		if err != nil {
			return nil, err
		}
		if n.Type != storage.TypeDir {
			return nil, fmt.Errorf("%s: %w", p, storage.ErrNotDirectory)
		}
	}

	entries := []storage.Entry{}
	prefix := childPrefix(p)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			entryPath := strings.TrimPrefix(string(item.Key()), prefixNode)
			rest := entryPath[len(prefix)-len(prefixNode):]
			if !deep && strings.Contains(rest, "/") {
				continue
			}

			var n node
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &n) }); err != nil {
				return fmt.Errorf("failed to decode node %s: %w", entryPath, err)
			}
			entries = append(entries, toEntry(entryPath, n))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func toEntry(p string, n node) storage.Entry {
	e := storage.Entry{Type: n.Type, Path: p, LastModified: n.MTime}
	if n.Type == storage.TypeFile {
		e.FileSize = storage.Int64(n.Size)
	}
	return e
}

func (s *Store) FileSize(ctx context.Context, p string) (int64, error) {
	n, err := s.lookupFile(ctx, p)
	if err != nil {
		return 0, err
	}
	return n.Size, nil
}

func (s *Store) LastModified(ctx context.Context, p string) (time.Time, error) {
	n, err := s.lookupFile(ctx, p)
	if err != nil {
		return time.Time{}, err
	}
	return n.MTime, nil
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

// ReadStream returns a seekable reader that loads one chunk at a time.
func (s *Store) ReadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	n, err := s.lookupFile(ctx, p)
	if err != nil {
		return nil, err
	}
	return newChunkReader(s.db, clean(p), *n), nil
}

func (s *Store) WriteStream(ctx context.Context, p string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p = clean(p)
	if p == "" {
		return fmt.Errorf("cannot write to storage root")
	}

	return s.writeFile(ctx, p, r, time.Now())
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

	p = clean(p)
	if p == "" {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		now := time.Now()
		if err := ensureParents(txn, p, now); err != nil {
			return err
		}
		n, err := getNode(txn, p)
		if err == nil {
			if n.Type != storage.TypeDir {
				return fmt.Errorf("%s exists and is a file", p)
			}
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return setNode(txn, p, node{Type: storage.TypeDir, MTime: now})
	})
}

// subtree returns p itself followed by every entry below it.
func (s *Store) subtree(ctx context.Context, p string) ([]storage.Entry, error) {
	n, err := s.lookup(ctx, p)
	if err != nil {
		return nil, err
	}

	entries := []storage.Entry{toEntry(p, *n)}
	if n.Type != storage.TypeDir {
		return entries, nil
	}

	children, err := s.ListContents(ctx, p, true)
	if err != nil {
		return nil, err
	}
	return append(entries, children...), nil
}

func (s *Store) Copy(ctx context.Context, src, dst string) error {
	src, dst = clean(src), clean(dst)

	entries, err := s.subtree(ctx, src)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		target := dst + strings.TrimPrefix(e.Path, src)
		if err := s.copyEntry(ctx, e, target, now); err != nil {
			return fmt.Errorf("failed to copy %s: %w", e.Path, err)
		}
	}

	return nil
}

func (s *Store) copyEntry(ctx context.Context, e storage.Entry, target string, now time.Time) error {
	if e.IsDir() {
		return s.db.Update(func(txn *badger.Txn) error {
			if err := ensureParents(txn, target, now); err != nil {
				return err
			}
			return setNode(txn, target, node{Type: storage.TypeDir, MTime: now})
		})
	}

	n, err := s.lookupFile(ctx, e.Path)
	if err != nil {
		return err
	}
	return s.writeFile(ctx, target, newChunkReader(s.db, e.Path, *n), now)
}

func (s *Store) Move(ctx context.Context, src, dst string) error {
	if err := s.Copy(ctx, src, dst); err != nil {
		return err
	}
	return s.remove(ctx, clean(src))
}

func (s *Store) Delete(ctx context.Context, p string) error {
	p = clean(p)
	n, err := s.lookup(ctx, p)
	if err != nil {
		return err
	}
	if n.Type == storage.TypeDir {
		return fmt.Errorf("%s is a directory", p)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(keyNode(p))
	}); err != nil {
		return err
	}
	return s.deleteKeys(chunkPrefix(p))
}

func (s *Store) DeleteDirectory(ctx context.Context, p string) error {
	p = clean(p)
	if p == "" {
		return fmt.Errorf("cannot delete storage root")
	}

	n, err := s.lookup(ctx, p)
	if err != nil {
		return err
	}
	if n.Type != storage.TypeDir {
		return fmt.Errorf("%s: %w", p, storage.ErrNotDirectory)
	}

	return s.remove(ctx, p)
}

// remove deletes p and everything below it: the nodes in one write batch,
// then the chunks of every removed file.
func (s *Store) remove(ctx context.Context, p string) error {
	entries, err := s.subtree(ctx, p)
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	var files []string
	for _, e := range entries {
		if err := wb.Delete(keyNode(e.Path)); err != nil {
			return err
		}
		if !e.IsDir() {
			files = append(files, e.Path)
		}
	}
	if err := wb.Flush(); err != nil {
		return err
	}

	for _, f := range files {
		if err := s.deleteKeys(chunkPrefix(f)); err != nil {
			return fmt.Errorf("failed to delete content of %s: %w", f, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
