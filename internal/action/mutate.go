package action

import (
	"context"
	"fmt"

	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/marmos91/vfinder/pkg/storagepath"
)

// validName checks a single file or folder name.
func validName(name string) error {
	if !storagepath.IsValidName(name) {
		return fmt.Errorf("%q: %w", name, ErrInvalidFilename)
	}
	return nil
}

// ensureAbsent fails with ErrFileExists when something lives at p.
func (h *Handler) ensureAbsent(ctx context.Context, p string) error {
	exists, err := h.fs.Exists(ctx, p)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s: %w", p, ErrFileExists)
	}
	return nil
}

// relist answers a mutation with the listing of the request's directory.
func (h *Handler) relist(ctx context.Context, req *Request, key string) (*Response, error) {
	return h.index(ctx, req, key)
}

func (h *Handler) createFolder(ctx context.Context, req *Request, key string) (*Response, error) {
	name := req.Payload.Name
	if err := validName(name); err != nil {
		return nil, err
	}

	target := storagepath.Join(dirname(req, key), name)
	if err := h.ensureAbsent(ctx, target); err != nil {
		return nil, err
	}

	if err := h.fs.CreateDirectory(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to create folder %s: %w", target, err)
	}
	return h.relist(ctx, req, key)
}

func (h *Handler) createFile(ctx context.Context, req *Request, key string) (*Response, error) {
	name := req.Payload.Name
	if err := validName(name); err != nil {
		return nil, err
	}

	target := storagepath.Join(dirname(req, key), name)
	if err := h.ensureAbsent(ctx, target); err != nil {
		return nil, err
	}

	if err := h.fs.Write(ctx, target, nil); err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", target, err)
	}
	return h.relist(ctx, req, key)
}

// rename moves item to path/<name>.
func (h *Handler) rename(ctx context.Context, req *Request, key string) (*Response, error) {
	name := req.Payload.Name
	if err := validName(name); err != nil {
		return nil, err
	}

	from := req.Payload.Item
	if from == "" {
		return nil, fmt.Errorf("rename requires an item: %w", ErrInvalidRequest)
	}

	to := storagepath.Join(dirname(req, key), name)
	if err := h.ensureAbsent(ctx, to); err != nil {
		return nil, err
	}

	if err := h.fs.Move(ctx, from, to); err != nil {
		return nil, fmt.Errorf("failed to rename %s: %w", from, err)
	}
	return h.relist(ctx, req, key)
}

func (h *Handler) move(ctx context.Context, req *Request, key string) (*Response, error) {
	return h.transfer(ctx, req, key, "move", h.fs.Move)
}

func (h *Handler) copy(ctx context.Context, req *Request, key string) (*Response, error) {
	return h.transfer(ctx, req, key, "copy", h.fs.Copy)
}

// transfer moves or copies every selected item into the destination
// directory. All targets are checked before the first item is touched, so
// a collision leaves the storages unchanged.
func (h *Handler) transfer(ctx context.Context, req *Request, key, op string, apply func(ctx context.Context, src, dst string) error) (*Response, error) {
	destination := req.Payload.target()
	if destination == "" {
		return nil, fmt.Errorf("%s requires a destination: %w", op, ErrInvalidRequest)
	}

	items := req.Payload.selection()
	if len(items) == 0 {
		return nil, fmt.Errorf("%s requires at least one item: %w", op, ErrInvalidRequest)
	}

	type pair struct{ src, dst string }
	pairs := make([]pair, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		dst := storagepath.Join(destination, storagepath.Base(item.Path))
		if storagepath.Within(dst, item.Path) {
			return nil, fmt.Errorf("cannot %s %s into itself: %w", op, item.Path, ErrInvalidRequest)
		}
		if seen[dst] {
			return nil, fmt.Errorf("two items share the target %s: %w", dst, ErrFileExists)
		}
		seen[dst] = true

		exists, err := h.fs.Exists(ctx, dst)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("one of the files already exists (%s): %w", dst, ErrFileExists)
		}
		pairs = append(pairs, pair{src: item.Path, dst: dst})
	}

	for _, p := range pairs {
		if err := apply(ctx, p.src, p.dst); err != nil {
			return nil, fmt.Errorf("failed to %s %s: %w", op, p.src, err)
		}
	}

	return h.relist(ctx, req, key)
}

// delete removes every selected item, recursively for declared directories.
// The declared type is trusted.
func (h *Handler) delete(ctx context.Context, req *Request, key string) (*Response, error) {
	for _, item := range req.Payload.selection() {
		var err error
		if item.Type == storage.TypeDir {
			err = h.fs.DeleteDirectory(ctx, item.Path)
		} else {
			err = h.fs.Delete(ctx, item.Path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to delete %s: %w", item.Path, err)
		}
	}

	return h.relist(ctx, req, key)
}
