package action

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/storagepath"
	"github.com/spf13/afero"
	"github.com/spf13/afero/zipfs"
)

// unarchive extracts the zip named by item into path/<zip base name>/.
//
// The archive is copied to a local scratch file first since zip needs random
// access. The scratch file is removed whatever the outcome.
func (h *Handler) unarchive(ctx context.Context, req *Request, key string) (*Response, error) {
	item := req.Payload.Item
	if item == "" {
		return nil, fmt.Errorf("unarchive requires an item: %w", ErrInvalidRequest)
	}

	scratch, err := os.CreateTemp(h.cfg.TempDir, "vfinder-unarchive-*.zip")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	defer removeScratch(scratch)

	size, err := h.fetch(ctx, item, scratch)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(scratch, size)
	if err != nil {
		return nil, fmt.Errorf("%s is not a valid zip archive: %w", item, ErrInvalidRequest)
	}

	dest := storagepath.Join(dirname(req, key), storagepath.TrimExt(storagepath.Base(item)))
	n, err := h.extract(ctx, zipfs.New(zr), zr, dest)
	if err != nil {
		return nil, err
	}

	logger.Info("Extracted %d file(s) from %s into %s", n, item, dest)
	return h.relist(ctx, req, key)
}

// fetch copies p from its storage into w and returns the byte count.
func (h *Handler) fetch(ctx context.Context, p string, w io.Writer) (int64, error) {
	r, err := h.fs.ReadStream(ctx, p)
	if err != nil {
		return 0, notFound(p, err)
	}
	defer func() { _ = r.Close() }()

	n, err := io.Copy(w, r)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s: %w", p, err)
	}
	return n, nil
}

// extract writes every file of the archive under dest. Entry names are
// cleaned so that none can land outside dest.
func (h *Handler) extract(ctx context.Context, zfs afero.Fs, zr *zip.Reader, dest string) (int, error) {
	count := 0
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		name := cleanRelative(f.Name)
		if name == "" {
			continue
		}

		if err := h.extractFile(ctx, zfs, f.Name, storagepath.Join(dest, name)); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (h *Handler) extractFile(ctx context.Context, zfs afero.Fs, name, target string) error {
	src, err := zfs.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", name, err)
	}
	defer func() { _ = src.Close() }()

	if err := h.fs.WriteStream(ctx, target, src); err != nil {
		return fmt.Errorf("failed to extract %s: %w", target, err)
	}
	return nil
}
