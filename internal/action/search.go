package action

import (
	"context"
	"regexp"
	"strings"

	"github.com/marmos91/vfinder/pkg/node"
	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/marmos91/vfinder/pkg/storagepath"
)

// SearchResult is the body of a search response.
type SearchResult struct {
	Adapter  string      `json:"adapter"`
	Dirname  string      `json:"dirname"`
	Files    []node.Node `json:"files"`
	Storages []string    `json:"storages"`
}

func (h *Handler) search(ctx context.Context, req *Request, key string) (*Response, error) {
	dir := dirname(req, key)

	entries, err := h.listDirectory(ctx, dir, false, req.Deep)
	if err != nil {
		return nil, err
	}

	match := compileFilter(req.Filter)

	files := make([]storage.Entry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && match(e.Path) {
			files = append(files, e)
		}
	}

	nodes := node.EnrichAll(ctx, files, h.fs, h.urls)
	for i := range nodes {
		nodes[i].Dir = storagepath.Dirname(nodes[i].Path)
	}

	if isSizeCategory(req.Size) {
		nodes = node.FilterBySize(nodes, req.Size)
	}

	return JSON(&SearchResult{
		Adapter:  key,
		Dirname:  dir,
		Files:    nodes,
		Storages: h.reg.Keys(),
	}), nil
}

func isSizeCategory(s string) bool {
	switch s {
	case node.SizeSmall, node.SizeMedium, node.SizeLarge, node.SizeAll:
		return true
	}
	return false
}

// compileFilter returns a matcher for the shell pattern "*filter*" applied
// to a whole path, case-insensitively. "*" matches any run of characters,
// "/" included, "?" matches one character and "[...]" a class. An empty
// filter matches everything.
func compileFilter(filter string) func(string) bool {
	if filter == "" {
		return func(string) bool { return true }
	}

	re, err := regexp.Compile("(?is)^" + globToRegexp("*"+filter+"*") + "$")
	if err != nil {
		// An unbalanced class is matched literally.
		re = regexp.MustCompile("(?is)^.*" + regexp.QuoteMeta(filter) + ".*$")
	}
	return re.MatchString
}

func globToRegexp(glob string) string {
	var b strings.Builder
	runes := []rune(glob)

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			end := classEnd(runes, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := runes[i+1 : end]
			b.WriteByte('[')
			if len(class) > 0 && class[0] == '!' {
				b.WriteByte('^')
				class = class[1:]
			}
			for _, r := range class {
				if r == '\\' || r == '[' {
					b.WriteByte('\\')
				}
				b.WriteRune(r)
			}
			b.WriteByte(']')
			i = end
		case '\\':
			if i+1 < len(runes) {
				i++
				b.WriteString(regexp.QuoteMeta(string(runes[i])))
			} else {
				b.WriteString(`\\`)
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	return b.String()
}

// classEnd returns the index of the "]" closing the class opened at start,
// or -1. A "]" right after "[" or "[!" is part of the class.
func classEnd(runes []rune, start int) int {
	i := start + 1
	if i < len(runes) && runes[i] == '!' {
		i++
	}
	if i < len(runes) && runes[i] == ']' {
		i++
	}
	for ; i < len(runes); i++ {
		if runes[i] == ']' {
			return i
		}
	}
	return -1
}
