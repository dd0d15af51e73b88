package badger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/storage"
)

// chunkSize is the largest value written under a chunk key.
const chunkSize = 512 << 10

// writeFile stores the content of r as a new generation of p and then
// points the node of p at it. The previous generation, if any, is dropped
// afterwards.
func (s *Store) writeFile(ctx context.Context, p string, r io.Reader, now time.Time) error {
	gen := uuid.NewString()

	size, chunks, err := s.writeChunks(ctx, p, gen, r)
	if err != nil {
		s.dropChunks(genPrefix(p, gen))
		return err
	}

	var previous string
	err = s.db.Update(func(txn *badger.Txn) error {
		existing, err := getNode(txn, p)
		switch {
		case err == nil && existing.Type == storage.TypeDir:
			return fmt.Errorf("%s is a directory", p)
		case err == nil:
			previous = existing.Gen
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}

		if err := ensureParents(txn, p, now); err != nil {
			return err
		}
		return setNode(txn, p, node{Type: storage.TypeFile, Size: size, MTime: now, Gen: gen, Chunks: chunks})
	})
	if err != nil {
		s.dropChunks(genPrefix(p, gen))
		return err
	}

	if previous != "" && previous != gen {
		s.dropChunks(genPrefix(p, previous))
	}
	return nil
}

// writeChunks splits r into chunk values of generation gen.
func (s *Store) writeChunks(ctx context.Context, p, gen string, r io.Reader) (int64, int, error) {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	buf := make([]byte, chunkSize)
	var size int64
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}

		read, err := io.ReadFull(r, buf)
		if read > 0 {
			// The batch keeps the slice until Flush, buf is reused
			value := append([]byte(nil), buf[:read]...)
			if err := wb.Set(keyChunk(p, gen, n), value); err != nil {
				return 0, 0, fmt.Errorf("failed to store chunk %d of %s: %w", n, p, err)
			}
			n++
			size += int64(read)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read content for %s: %w", p, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return 0, 0, fmt.Errorf("failed to store content of %s: %w", p, err)
	}
	return size, n, nil
}

// chunkKeys returns every key below prefix.
func (s *Store) chunkKeys(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

// dropChunks deletes every chunk below prefix. A failure leaves
// unreachable chunks behind and is only logged.
func (s *Store) dropChunks(prefix []byte) {
	if err := s.deleteKeys(prefix); err != nil {
		logger.Warn("badger: failed to drop chunks %q: %v", prefix, err)
	}
}

func (s *Store) deleteKeys(prefix []byte) error {
	keys, err := s.chunkKeys(prefix)
	if err != nil || len(keys) == 0 {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// chunkReader reads one generation of a file chunk by chunk, loading at
// most one chunk at a time.
type chunkReader struct {
	db   *badger.DB
	path string
	n    node

	off    int64
	cur    []byte
	curIdx int
}

func newChunkReader(db *badger.DB, p string, n node) *chunkReader {
	return &chunkReader{db: db, path: p, n: n, curIdx: -1}
}

func (r *chunkReader) load(idx int) error {
	if idx == r.curIdx {
		return nil
	}
	return r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyChunk(r.path, r.n.Gen, idx))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%s: chunk %d: %w", r.path, idx, storage.ErrNotFound)
		}
		if err != nil {
			return err
		}
		r.cur, err = item.ValueCopy(r.cur[:0])
		if err != nil {
			return err
		}
		r.curIdx = idx
		return nil
	})
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.off >= r.n.Size {
		return 0, io.EOF
	}

	idx := int(r.off / chunkSize)
	if err := r.load(idx); err != nil {
		return 0, err
	}

	start := int(r.off - int64(idx)*chunkSize)
	if start >= len(r.cur) {
		return 0, io.ErrUnexpectedEOF
	}
	n := copy(p, r.cur[start:])
	r.off += int64(n)
	return n, nil
}

func (r *chunkReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.off + offset
	case io.SeekEnd:
		abs = r.n.Size + offset
	default:
		return 0, errors.New("badger: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("badger: negative position")
	}
	r.off = abs
	return abs, nil
}

func (r *chunkReader) Close() error {
	r.cur, r.curIdx = nil, -1
	return nil
}
