package action

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/storagepath"
)

type handlerFunc func(h *Handler, ctx context.Context, req *Request, key string) (*Response, error)

// route binds a verb to its handler and its only accepted HTTP method.
type route struct {
	method string

	// readOnlySafe verbs never mutate and are allowed on read-only storages.
	readOnlySafe bool

	fn handlerFunc
}

var routes = map[string]route{
	"index":      {http.MethodGet, true, (*Handler).index},
	"list":       {http.MethodGet, true, (*Handler).index},
	"subfolders": {http.MethodGet, true, (*Handler).subfolders},
	"search":     {http.MethodGet, true, (*Handler).search},
	"download":   {http.MethodGet, true, (*Handler).download},
	"preview":    {http.MethodGet, true, (*Handler).preview},
	"thumbnail":  {http.MethodGet, true, (*Handler).thumbnail},

	"upload":        {http.MethodPost, false, (*Handler).upload},
	"create-file":   {http.MethodPost, false, (*Handler).createFile},
	"newfile":       {http.MethodPost, false, (*Handler).createFile},
	"create-folder": {http.MethodPost, false, (*Handler).createFolder},
	"newfolder":     {http.MethodPost, false, (*Handler).createFolder},
	"rename":        {http.MethodPost, false, (*Handler).rename},
	"move":          {http.MethodPost, false, (*Handler).move},
	"copy":          {http.MethodPost, false, (*Handler).copy},
	"delete":        {http.MethodPost, false, (*Handler).delete},
	"archive":       {http.MethodPost, false, (*Handler).archive},
	"unarchive":     {http.MethodPost, false, (*Handler).unarchive},
	"save":          {http.MethodPost, false, (*Handler).save},
}

// Verbs lists the accepted verbs.
func Verbs() []string {
	out := make([]string, 0, len(routes))
	for verb := range routes {
		out = append(out, verb)
	}
	return out
}

// IsVerb reports whether verb is accepted by Dispatch.
func IsVerb(verb string) bool {
	_, ok := routes[strings.ToLower(verb)]
	return ok
}

// IsReadOnlySafe reports whether verb can run against a read-only storage.
func IsReadOnlySafe(verb string) bool {
	r, ok := routes[strings.ToLower(verb)]
	return ok && r.readOnlySafe
}

// Dispatch validates req and runs the matching handler.
//
// The checks run in a fixed order: OPTIONS short-circuits with an empty
// response, then the verb and method must match the route table
// (ErrInvalidMethod), then a mutating verb addressed to a read-only storage
// is rejected (ErrReadOnlyStorage). Only then does the handler run.
//
// A Response carrying a Stream must be closed by the caller.
func (h *Handler) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	if req.Method == http.MethodOptions {
		return &Response{}, nil
	}

	verb := strings.ToLower(req.Action)
	r, ok := routes[verb]
	if !ok || r.method != req.Method {
		return nil, fmt.Errorf("%s %q: %w", req.Method, req.Action, ErrInvalidMethod)
	}

	key := h.StorageKey(req)
	if !r.readOnlySafe && h.reg.IsReadOnly(key) {
		return nil, fmt.Errorf("%s on %q: %w", verb, key, ErrReadOnlyStorage)
	}

	h.qualifyPaths(req, key)

	logger.Debug("Dispatching %s on %s (path=%q)", verb, key, req.Path)
	return r.fn(h, ctx, req, key)
}

// StorageKey returns the storage addressed by req: the prefix of its path,
// or the adapter parameter when the path has none, or the default storage.
func (h *Handler) StorageKey(req *Request) string {
	keys := h.reg.Keys()
	if _, _, ok := storagepath.Split(req.Path); !ok && req.Adapter != "" {
		return storagepath.ResolveStorage(storagepath.Root(req.Adapter), keys)
	}
	return storagepath.ResolveStorage(req.Path, keys)
}

// qualifyPaths gives every client supplied path an explicit storage prefix
// so that responses always carry one.
func (h *Handler) qualifyPaths(req *Request, key string) {
	q := func(p string) string {
		if p == "" {
			return p
		}
		return storagepath.Qualify(p, key)
	}

	req.Path = q(req.Path)
	req.Payload.Path = q(req.Payload.Path)
	req.Payload.Item = q(req.Payload.Item)
	req.Payload.Destination = q(req.Payload.Destination)
	for i := range req.Payload.Items {
		req.Payload.Items[i].Path = q(req.Payload.Items[i].Path)
	}
	for i := range req.Payload.Sources {
		req.Payload.Sources[i].Path = q(req.Payload.Sources[i].Path)
	}
}
