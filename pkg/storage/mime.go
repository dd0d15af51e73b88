package storage

import (
	"io"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLimit is how many leading bytes are inspected for content detection.
const sniffLimit = 3072

// DetectMimeType detects the media type of a file from its leading bytes,
// falling back to the file extension when the content is inconclusive.
//
// Parameters are stripped from the result ("text/plain; charset=utf-8"
// becomes "text/plain").
func DetectMimeType(name string, r io.Reader) (string, error) {
	detected, err := mimetype.DetectReader(io.LimitReader(r, sniffLimit))
	if err != nil {
		return "", err
	}

	mt := baseType(detected.String())

	// Generic detections are less useful than what the extension says
	if mt == "application/octet-stream" || mt == "text/plain" {
		if byExt := MimeTypeByExtension(name); byExt != "" {
			return byExt, nil
		}
	}

	return mt, nil
}

// MimeTypeByExtension maps a file extension to a media type, "" when unknown.
func MimeTypeByExtension(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}
	if mt := mime.TypeByExtension(strings.ToLower(ext)); mt != "" {
		return baseType(mt)
	}
	return ""
}

func baseType(mt string) string {
	if idx := strings.IndexByte(mt, ';'); idx >= 0 {
		return strings.TrimSpace(mt[:idx])
	}
	return mt
}
