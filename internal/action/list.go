package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/vfinder/pkg/node"
	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/marmos91/vfinder/pkg/storagepath"
)

// Listing is the body of index and of every mutating verb that answers
// with a fresh listing.
type Listing struct {
	Adapter  string      `json:"adapter"`
	Dirname  string      `json:"dirname"`
	Files    []node.Node `json:"files"`
	ReadOnly bool        `json:"read_only"`
	Storages []string    `json:"storages"`
}

// Folder is one entry of a subfolders response.
type Folder struct {
	Path     string `json:"path"`
	Basename string `json:"basename"`
	Storage  string `json:"storage"`
}

// dirname returns the working directory of req, the storage root when no
// path was given.
func dirname(req *Request, key string) string {
	if req.Path != "" {
		return req.Path
	}
	return storagepath.Root(key)
}

func (h *Handler) index(ctx context.Context, req *Request, key string) (*Response, error) {
	listing, err := h.list(ctx, req, key)
	if err != nil {
		return nil, err
	}
	return JSON(listing), nil
}

// list builds the listing of the request's directory. An explicit path must
// exist and be a directory.
func (h *Handler) list(ctx context.Context, req *Request, key string) (*Listing, error) {
	dir := dirname(req, key)

	entries, err := h.listDirectory(ctx, dir, req.Path != "", false)
	if err != nil {
		return nil, err
	}

	dirs := make([]storage.Entry, 0, len(entries))
	files := make([]storage.Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}

	return &Listing{
		Adapter:  key,
		Dirname:  dir,
		Files:    node.EnrichAll(ctx, append(dirs, files...), h.fs, h.urls),
		ReadOnly: h.reg.IsReadOnly(key),
		Storages: h.reg.Keys(),
	}, nil
}

// listDirectory lists dir. When validate is set a missing path or a file
// fails with ErrPathNotFound instead of a backend error.
func (h *Handler) listDirectory(ctx context.Context, dir string, validate, deep bool) ([]storage.Entry, error) {
	if validate {
		isDir, err := h.fs.DirectoryExists(ctx, dir)
		if err != nil {
			return nil, notFound(dir, err)
		}
		if !isDir {
			isFile, _ := h.fs.FileExists(ctx, dir)
			if isFile {
				return nil, fmt.Errorf("%s is not a directory: %w", dir, ErrPathNotFound)
			}
			return nil, fmt.Errorf("%s: %w", dir, ErrPathNotFound)
		}
	}

	entries, err := h.fs.ListContents(ctx, dir, deep)
	if err != nil {
		return nil, notFound(dir, err)
	}
	return entries, nil
}

// notFound turns backend lookup failures into ErrPathNotFound and passes
// anything else through.
func notFound(p string, err error) error {
	if errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrNotDirectory) ||
		errors.Is(err, storage.ErrUnknownStorage) {
		return fmt.Errorf("%s: %w", p, ErrPathNotFound)
	}
	return err
}

func (h *Handler) subfolders(ctx context.Context, req *Request, key string) (*Response, error) {
	dir := dirname(req, key)

	entries, err := h.listDirectory(ctx, dir, req.Path != "", false)
	if err != nil {
		return nil, err
	}

	folders := make([]Folder, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		folders = append(folders, Folder{
			Path:     e.Path,
			Basename: storagepath.Base(e.Path),
			Storage:  key,
		})
	}

	return JSON(map[string]any{
		"folders":  folders,
		"storages": h.reg.Keys(),
	}), nil
}
