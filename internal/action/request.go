package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/marmos91/vfinder/pkg/storage"
)

// Request is one parsed call from the file manager client.
//
// Transports fill it from query parameters and from the JSON, urlencoded or
// multipart body. Query parameters and body fields share names, the query
// takes precedence for Path.
type Request struct {
	// Action is the verb, taken from the "q" parameter or the URL.
	Action string

	// Method is the HTTP method, upper case.
	Method string

	// Path is the "path" parameter: the working directory for most verbs,
	// the target file for download, preview and save.
	Path string

	Filter  string
	Size    string
	Deep    bool
	Adapter string

	// Width is the requested thumbnail width in pixels, 0 for the default.
	Width int

	Payload Payload

	// File is the uploaded file for the upload verb, nil when absent.
	File *UploadedFile
}

// Payload holds the body fields used by the mutating verbs.
type Payload struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Item        string `json:"item"`
	Items       []Item `json:"items"`
	Sources     []Item `json:"sources"`
	Destination string `json:"destination"`
	Content     string `json:"content"`
}

// Item is a selected entry. Clients send either {"path": ..., "type": ...}
// or a bare path string.
type Item struct {
	Path string            `json:"path"`
	Type storage.EntryType `json:"type"`
}

// UnmarshalJSON accepts both item encodings.
func (i *Item) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var p string
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*i = Item{Path: p}
		return nil
	}

	type plain Item
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid item: %w", err)
	}
	*i = Item(v)
	return nil
}

// UploadedFile is the "file" part of an upload.
type UploadedFile struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// selection returns the items of a move, copy, delete or archive call:
// "items" when present, otherwise "sources".
func (p Payload) selection() []Item {
	if len(p.Items) > 0 {
		return p.Items
	}
	return p.Sources
}

// target returns the destination directory of a move or copy call.
// Older clients send it as "item".
func (p Payload) target() string {
	if p.Destination != "" {
		return p.Destination
	}
	return p.Item
}

// ParseBool interprets the truthy values clients send for flags such as
// "deep": "1", "true", "yes" and "on", in any case.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// ParseInt parses a non-negative integer parameter, 0 when unset or invalid.
func ParseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
