package action

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/marmos91/vfinder/pkg/storagepath"
)

// archive zips the selected items into path/<name>.zip. Directories are
// walked recursively, entry names are relative to path.
func (h *Handler) archive(ctx context.Context, req *Request, key string) (*Response, error) {
	base := storagepath.TrimExt(req.Payload.Name)
	if err := validName(base); err != nil {
		return nil, err
	}

	items := req.Payload.selection()
	if len(items) == 0 {
		return nil, fmt.Errorf("archive requires at least one item: %w", ErrInvalidRequest)
	}

	dir := dirname(req, key)
	target := storagepath.Join(dir, base+".zip")
	exists, err := h.fs.Exists(ctx, target)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("the archive %s already exists, try another name: %w", target, ErrFileExists)
	}

	scratch, err := os.CreateTemp(h.cfg.TempDir, "vfinder-archive-*.zip")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	defer removeScratch(scratch)

	if err := h.writeZip(ctx, scratch, dir, items); err != nil {
		return nil, err
	}

	if _, err := scratch.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind scratch file: %w", err)
	}
	if err := h.fs.WriteStream(ctx, target, scratch); err != nil {
		return nil, fmt.Errorf("failed to store archive %s: %w", target, err)
	}

	logger.Info("Archived %d item(s) into %s", len(items), target)
	return h.relist(ctx, req, key)
}

// writeZip streams every selected file into a zip written to w.
func (h *Handler) writeZip(ctx context.Context, w io.Writer, root string, items []Item) error {
	zw := zip.NewWriter(w)

	for _, item := range items {
		if item.Type != storage.TypeDir {
			if err := h.addZipEntry(ctx, zw, root, storage.Entry{Type: storage.TypeFile, Path: item.Path}); err != nil {
				return err
			}
			continue
		}

		entries, err := h.fs.ListContents(ctx, item.Path, true)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", item.Path, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if err := h.addZipEntry(ctx, zw, root, e); err != nil {
				return err
			}
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func (h *Handler) addZipEntry(ctx context.Context, zw *zip.Writer, root string, e storage.Entry) error {
	modified := e.LastModified
	if modified.IsZero() {
		modified = time.Now()
	}

	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     storagepath.Rel(root, e.Path),
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", e.Path, err)
	}

	r, err := h.fs.ReadStream(ctx, e.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", e.Path, err)
	}
	defer func() { _ = r.Close() }()

	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("failed to compress %s: %w", e.Path, err)
	}
	return nil
}

// removeScratch closes and deletes a scratch file. It runs on every exit
// path of archive and unarchive.
func removeScratch(f *os.File) {
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove scratch file %s: %v", name, err)
	}
}
