// Package node builds the file manager's view of directory entries: raw
// backend records decorated with basename, extension, MIME type and public
// URL.
package node

import (
	"context"

	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/marmos91/vfinder/pkg/storagepath"
)

// Node is one file or directory as returned to the client.
type Node struct {
	Type         storage.EntryType `json:"type"`
	Path         string            `json:"path"`
	Storage      string            `json:"storage"`
	Basename     string            `json:"basename"`
	Extension    string            `json:"extension"`
	FileSize     *int64            `json:"file_size,omitempty"`
	LastModified *int64            `json:"last_modified,omitempty"`
	MimeType     string            `json:"mime_type,omitempty"`
	URL          string            `json:"url,omitempty"`
	Dir          string            `json:"dir,omitempty"`
}

// IsDir reports whether the node is a directory.
func (n Node) IsDir() bool {
	return n.Type == storage.TypeDir
}

// MimeDetector reports the media type of a storage-prefixed path.
type MimeDetector interface {
	MimeType(ctx context.Context, path string) (string, error)
}

// URLResolver decides on and computes public URLs.
type URLResolver interface {
	ResolveURL(ctx context.Context, path string) string
	ShouldHavePublicURL(path string) bool
}

// Enrich converts a raw entry (with a storage-prefixed path) into a Node.
//
// MIME detection is attempted only for files with an extension, a failure
// leaves MimeType empty instead of failing the listing. urls may be nil.
func Enrich(ctx context.Context, e storage.Entry, mime MimeDetector, urls URLResolver) Node {
	key, _, _ := storagepath.Split(e.Path)

	n := Node{
		Type:     e.Type,
		Path:     e.Path,
		Storage:  key,
		Basename: storagepath.Base(e.Path),
	}

	if !e.LastModified.IsZero() {
		ts := e.LastModified.Unix()
		n.LastModified = &ts
	}

	if e.IsDir() {
		return n
	}

	n.Extension = storagepath.Ext(e.Path)
	n.FileSize = e.FileSize

	if n.Extension != "" && mime != nil {
		if mt, err := mime.MimeType(ctx, e.Path); err == nil {
			n.MimeType = mt
		}
	}

	if urls != nil && urls.ShouldHavePublicURL(e.Path) {
		n.URL = urls.ResolveURL(ctx, e.Path)
	}

	return n
}

// EnrichAll enriches a listing, preserving order.
func EnrichAll(ctx context.Context, entries []storage.Entry, mime MimeDetector, urls URLResolver) []Node {
	nodes := make([]Node, 0, len(entries))
	for _, e := range entries {
		nodes = append(nodes, Enrich(ctx, e, mime, urls))
	}
	return nodes
}
