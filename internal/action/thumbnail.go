package action

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const thumbnailQuality = 82

// thumbnail answers with a JPEG of the image at path scaled down to the
// requested width. Images already narrower than the width keep their size.
func (h *Handler) thumbnail(ctx context.Context, req *Request, _ string) (*Response, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("missing path: %w", ErrInvalidRequest)
	}

	width := req.Width
	if width <= 0 {
		width = h.cfg.ThumbnailWidth
	}
	width = min(width, maxThumbnailWidth)

	r, err := h.fs.ReadStream(ctx, req.Path)
	if err != nil {
		return nil, notFound(req.Path, err)
	}
	defer func() { _ = r.Close() }()

	data, err := scaleImage(r, width)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Path, err)
	}

	modTime, _ := h.fs.LastModified(ctx, req.Path)

	return &Response{Stream: &Stream{
		Reader:      nopSeekCloser{bytes.NewReader(data)},
		Path:        req.Path,
		ContentType: "image/jpeg",
		Size:        int64(len(data)),
		ModTime:     modTime,
	}}, nil
}

// scaleImage decodes any registered format and encodes a JPEG no wider
// than width.
func scaleImage(r io.Reader, width int) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("unsupported image: %v: %w", err, ErrInvalidRequest)
	}

	b := src.Bounds()
	dst := src
	if b.Dx() > width {
		height := max(1, b.Dy()*width/b.Dx())
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, b, draw.Over, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }
