package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/marmos91/vfinder/internal/action"
)

// multipartMemory is the part of a multipart body kept in memory, the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// parseRequest builds the action request from r. The returned cleanup
// releases multipart temporary files and is never nil.
func (a *API) parseRequest(r *http.Request) (*action.Request, func(), error) {
	cleanup := func() {}

	q := r.URL.Query()
	req := &action.Request{
		Action:  q.Get("q"),
		Method:  r.Method,
		Path:    q.Get("path"),
		Filter:  q.Get("filter"),
		Size:    q.Get("size"),
		Deep:    action.ParseBool(q.Get("deep")),
		Adapter: q.Get("adapter"),
		Width:   action.ParseInt(q.Get("w")),
	}
	if req.Action == "" {
		req.Action = a.verbFromPath(r.URL.Path)
	}

	if r.Method != http.MethodPost || r.Body == nil || r.Body == http.NoBody {
		return req, cleanup, nil
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "application/json"
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return req, cleanup, bodyError(err)
		}
		form := r.MultipartForm
		cleanup = func() { _ = form.RemoveAll() }

		if err := fillFromForm(req, r.MultipartForm.Value); err != nil {
			return req, cleanup, err
		}

		if files := form.File["file"]; len(files) > 0 {
			fh := files[0]
			f, err := fh.Open()
			if err != nil {
				return req, cleanup, fmt.Errorf("open upload: %w", err)
			}
			prev := cleanup
			cleanup = func() {
				_ = f.Close()
				prev()
			}
			req.File = &action.UploadedFile{Filename: fh.Filename, Size: fh.Size, Reader: f}
		}

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return req, cleanup, bodyError(err)
		}
		if err := fillFromForm(req, r.PostForm); err != nil {
			return req, cleanup, err
		}

	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return req, cleanup, bodyError(err)
		}
		if len(strings.TrimSpace(string(body))) == 0 {
			break
		}
		if err := json.Unmarshal(body, &req.Payload); err != nil {
			return req, cleanup, fmt.Errorf("decode body: %v: %w", err, action.ErrInvalidRequest)
		}
		if req.Path == "" {
			req.Path = req.Payload.Path
		}
	}

	return req, cleanup, nil
}

// fillFromForm copies form fields into req. items and sources carry JSON
// arrays, every other field is a plain string.
func fillFromForm(req *action.Request, form map[string][]string) error {
	get := func(k string) string {
		if v := form[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	p := &req.Payload
	p.Name = get("name")
	p.Path = get("path")
	p.Item = get("item")
	p.Destination = get("destination")
	p.Content = get("content")

	var err error
	if p.Items, err = formItems(form["items"]); err != nil {
		return err
	}
	if p.Sources, err = formItems(form["sources"]); err != nil {
		return err
	}

	if req.Path == "" {
		req.Path = p.Path
	}
	if req.Action == "" {
		req.Action = get("q")
	}
	if req.Adapter == "" {
		req.Adapter = get("adapter")
	}
	return nil
}

// formItems accepts a single JSON array value or repeated plain paths.
func formItems(values []string) ([]action.Item, error) {
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var items []action.Item
		if err := json.Unmarshal([]byte(values[0]), &items); err != nil {
			return nil, fmt.Errorf("decode items: %v: %w", err, action.ErrInvalidRequest)
		}
		return items, nil
	}

	var items []action.Item
	for _, v := range values {
		if v != "" {
			items = append(items, action.Item{Path: v})
		}
	}
	return items, nil
}

// bodyError keeps *http.MaxBytesError visible to errors.As and marks
// everything else as a malformed request.
func bodyError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return fmt.Errorf("read body: %v: %w", err, action.ErrInvalidRequest)
}
