package badger

import (
	"fmt"
	"strings"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so prefixed keys organize files and
// directories into two namespaces:
//
// Data Type   Prefix   Key Format                 Value Type
// ===========================================================
// Node        "n:"     n:<path>                   node (JSON)
// Chunk       "c:"     c:<path>\x00<gen>\x00<n>    up to chunkSize file bytes
//
// Every file and directory has exactly one node key. A file's content is
// split into numbered chunks so that no value exceeds Badger's value size
// limit (1 MiB in memory mode). Chunks belong to a write generation recorded
// in the node: a rewrite stores a new generation first and switches the node
// over in one transaction, readers never see a mix of old and new chunks.
// Paths are backend-relative, without leading or trailing slash, and never
// contain NUL.
//
// Keys sort lexically, so the children of "docs" are all the node keys with
// prefix "n:docs/" and a directory listing is a single prefix scan. Parent
// directories are materialized as nodes on write, which keeps listings
// consistent without a separate children index.

const (
	prefixNode    = "n:"
	prefixContent = "c:"
)

func keyNode(p string) []byte {
	return []byte(prefixNode + p)
}

// chunkPrefix covers every chunk of every generation of p.
func chunkPrefix(p string) []byte {
	return []byte(prefixContent + p + "\x00")
}

// genPrefix covers the chunks of one generation of p.
func genPrefix(p, gen string) []byte {
	return []byte(prefixContent + p + "\x00" + gen + "\x00")
}

func keyChunk(p, gen string, n int) []byte {
	return append(genPrefix(p, gen), fmt.Sprintf("%08d", n)...)
}

// childPrefix returns the node key prefix covering everything below dir.
func childPrefix(dir string) []byte {
	if dir == "" {
		return []byte(prefixNode)
	}
	return []byte(prefixNode + dir + "/")
}

// clean normalizes a backend-relative path.
func clean(p string) string {
	p = strings.Trim(p, "/")
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		switch part {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	return strings.Join(out, "/")
}

// ancestors returns every parent directory of p, outermost first.
//
//	ancestors("a/b/c.txt") == ["a", "a/b"]
func ancestors(p string) []string {
	var dirs []string
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			dirs = append(dirs, p[:i])
		}
	}
	return dirs
}
