package action

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/storagepath"
)

// upload writes the "file" part to path/<name>. The name comes from the
// payload when given, otherwise from the uploaded filename. Folder uploads
// send a relative name such as "photos/a.jpg", it is kept but cannot climb
// above path.
func (h *Handler) upload(ctx context.Context, req *Request, key string) (*Response, error) {
	if req.File == nil || req.File.Reader == nil {
		return nil, fmt.Errorf("no file uploaded: %w", ErrInvalidFilename)
	}

	name := req.Payload.Name
	if name == "" {
		name = req.File.Filename
	}
	name = cleanRelative(name)
	if name == "" {
		return nil, fmt.Errorf("upload without a name: %w", ErrInvalidFilename)
	}

	target := storagepath.Join(dirname(req, key), name)
	if err := h.fs.WriteStream(ctx, target, req.File.Reader); err != nil {
		return nil, fmt.Errorf("failed to store upload %s: %w", target, err)
	}

	logger.Info("Uploaded %s (%s)", target, humanize.IBytes(uint64(max(req.File.Size, 0))))
	return JSON(map[string]bool{"ok": true}), nil
}

// cleanRelative normalizes a client supplied relative path so that it stays
// below the directory it is joined to.
func cleanRelative(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimLeft(path.Clean("/"+p), "/")
}
