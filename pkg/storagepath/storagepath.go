// Package storagepath parses and builds storage-prefixed paths of the form
// "<storage>://<relative/path>".
//
// Every path handed back to the file manager client carries an explicit
// storage prefix. Paths received from the client may omit it, in which case
// the first configured storage is assumed.
package storagepath

import (
	"path"
	"regexp"
	"strings"
)

// Separator divides the storage key from the relative path.
const Separator = "://"

// invalidNameChars are the characters that can never appear in a single
// file or folder name.
const invalidNameChars = `\/?%*:|"<>`

var prefixPattern = regexp.MustCompile(`^([^:]+)://`)

// ResolveStorage returns the storage key addressed by p.
//
// If p starts with "<key>://" and key is one of keys, key is returned.
// Otherwise the first entry of keys is the default. An empty keys slice
// yields "", callers must reject that configuration before serving requests.
//
// Examples (keys = ["local", "media"]):
//
//	ResolveStorage("media://a/b.txt", keys) == "media"
//	ResolveStorage("a/b.txt", keys)         == "local"
//	ResolveStorage("other://x", keys)       == "local"
func ResolveStorage(p string, keys []string) string {
	if len(keys) == 0 {
		return ""
	}

	if m := prefixPattern.FindStringSubmatch(p); m != nil {
		for _, k := range keys {
			if k == m[1] {
				return k
			}
		}
	}

	return keys[0]
}

// Split breaks p into its storage key and relative path.
// ok is false when p has no storage prefix, in which case rel is p itself.
func Split(p string) (key, rel string, ok bool) {
	idx := strings.Index(p, Separator)
	if idx <= 0 || strings.ContainsRune(p[:idx], ':') {
		return "", p, false
	}
	return p[:idx], p[idx+len(Separator):], true
}

// Root returns the root path of a storage, "<key>://".
func Root(key string) string {
	return key + Separator
}

// Qualify prefixes a relative path with the given storage key.
// Paths that already carry a prefix are returned unchanged.
func Qualify(p, key string) string {
	if _, _, ok := Split(p); ok {
		return p
	}
	return key + Separator + strings.TrimLeft(p, "/")
}

// Join appends a name to a directory path without ever producing a double
// slash after the storage separator.
//
//	Join("local://", "a")    == "local://a"
//	Join("local://dir", "a") == "local://dir/a"
func Join(dir, name string) string {
	name = strings.TrimLeft(name, "/")
	if dir == "" {
		return name
	}
	if strings.HasSuffix(dir, Separator) || strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}

// Within reports whether p is dir itself or lies below it. Both paths are
// compared as given, storage prefix included.
//
//	Within("s://a/b", "s://a")  == true
//	Within("s://ab", "s://a")   == false
//	Within("s://x", "s://")     == true
func Within(p, dir string) bool {
	if strings.HasSuffix(dir, Separator) {
		return strings.HasPrefix(p, dir)
	}
	dir = strings.TrimRight(dir, "/")
	p = strings.TrimRight(p, "/")
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// Dirname returns the parent of p, aware of the storage prefix:
//
//	Dirname("s://a/b") == "s://a"
//	Dirname("s://a")   == "s://"
//	Dirname("s://")    == "s://"
//
// Paths without a prefix use path.Dir semantics.
func Dirname(p string) string {
	key, rel, ok := Split(p)
	if !ok {
		return path.Dir(p)
	}

	rel = strings.Trim(rel, "/")
	idx := strings.LastIndex(rel, "/")
	if idx < 0 {
		return Root(key)
	}
	return key + Separator + rel[:idx]
}

// Base returns the last element of p. The root of a storage has basename "".
func Base(p string) string {
	_, rel, _ := Split(p)
	rel = strings.TrimRight(rel, "/")
	if rel == "" {
		return ""
	}
	if idx := strings.LastIndex(rel, "/"); idx >= 0 {
		return rel[idx+1:]
	}
	return rel
}

// Ext returns the extension of the last path element without the leading dot.
func Ext(p string) string {
	return strings.TrimPrefix(path.Ext(Base(p)), ".")
}

// TrimExt returns name without its final extension.
func TrimExt(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// IsValidName reports whether name can be used as a single file or folder
// name: it must be non-empty and contain none of \ / ? % * : | " < >.
func IsValidName(name string) bool {
	return name != "" && !strings.ContainsAny(name, invalidNameChars)
}

// Rel returns p relative to base when p lies under base, or the basename of
// p otherwise. Used to name entries inside archives.
func Rel(base, p string) string {
	if base == "" {
		return strings.TrimLeft(p, "/")
	}
	prefix := base
	if !strings.HasSuffix(prefix, Separator) {
		prefix = strings.TrimRight(prefix, "/") + "/"
	}
	if strings.HasPrefix(p, prefix) {
		return strings.TrimLeft(p[len(prefix):], "/")
	}
	return Base(p)
}
