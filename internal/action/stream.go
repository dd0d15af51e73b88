package action

import (
	"context"
	"fmt"

	"github.com/marmos91/vfinder/internal/logger"
)

func (h *Handler) preview(ctx context.Context, req *Request, _ string) (*Response, error) {
	return h.stream(ctx, req.Path, false)
}

func (h *Handler) download(ctx context.Context, req *Request, _ string) (*Response, error) {
	return h.stream(ctx, req.Path, true)
}

// save overwrites path with the payload content and answers like preview.
func (h *Handler) save(ctx context.Context, req *Request, key string) (*Response, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("save requires a path: %w", ErrInvalidRequest)
	}
	if err := h.fs.Write(ctx, req.Path, []byte(req.Payload.Content)); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", req.Path, err)
	}
	return h.preview(ctx, req, key)
}

// stream opens p for sending back to the client. The MIME type is best
// effort and falls back to application/octet-stream.
func (h *Handler) stream(ctx context.Context, p string, attachment bool) (*Response, error) {
	if p == "" {
		return nil, fmt.Errorf("missing path: %w", ErrInvalidRequest)
	}

	isFile, err := h.fs.FileExists(ctx, p)
	if err != nil {
		return nil, notFound(p, err)
	}
	if !isFile {
		return nil, fmt.Errorf("%s: %w", p, ErrPathNotFound)
	}

	size, err := h.fs.FileSize(ctx, p)
	if err != nil {
		return nil, notFound(p, err)
	}

	contentType, err := h.fs.MimeType(ctx, p)
	if err != nil || contentType == "" {
		logger.Debug("MIME detection failed for %s: %v", p, err)
		contentType = "application/octet-stream"
	}

	// A failure here only loses the Last-Modified header.
	modTime, _ := h.fs.LastModified(ctx, p)

	r, err := h.fs.ReadStream(ctx, p)
	if err != nil {
		return nil, notFound(p, err)
	}

	return &Response{Stream: &Stream{
		Reader:      r,
		Path:        p,
		ContentType: contentType,
		Size:        size,
		ModTime:     modTime,
		Attachment:  attachment,
	}}, nil
}
