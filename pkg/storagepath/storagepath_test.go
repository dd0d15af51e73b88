package storagepath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveStorage(t *testing.T) {
	keys := []string{"local", "media"}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"Prefixed known key", "media://a/b.txt", "media"},
		{"Prefixed first key", "local://x", "local"},
		{"Bare path", "a/b.txt", "local"},
		{"Unknown prefix", "other://x", "local"},
		{"Empty path", "", "local"},
		{"Root only", "media://", "media"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveStorage(tt.path, keys); got != tt.want {
				t.Errorf("ResolveStorage(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}

	t.Run("No keys", func(t *testing.T) {
		assert.Equal(t, "", ResolveStorage("local://x", nil))
	})
}

func TestResolveStorageAlwaysReturnsMember(t *testing.T) {
	keys := []string{"a", "b", "c"}
	for _, p := range []string{"a://", "b://x/y", "zz://q", "plain", "://broken", "c:/not"} {
		got := ResolveStorage(p, keys)
		assert.Contains(t, keys, got, "path %q", p)
	}
}

func TestDirname(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"s://a/b", "s://a"},
		{"s://a/b/c.txt", "s://a/b"},
		{"s://a", "s://"},
		{"s://", "s://"},
		{"s://a/", "s://"},
		{"a/b", "a"},
	}

	for _, tt := range tests {
		if got := Dirname(tt.path); got != tt.want {
			t.Errorf("Dirname(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSplit(t *testing.T) {
	key, rel, ok := Split("local://docs/a.txt")
	assert.True(t, ok)
	assert.Equal(t, "local", key)
	assert.Equal(t, "docs/a.txt", rel)

	_, rel, ok = Split("docs/a.txt")
	assert.False(t, ok)
	assert.Equal(t, "docs/a.txt", rel)

	_, _, ok = Split("://x")
	assert.False(t, ok)
}

func TestJoinAndQualify(t *testing.T) {
	assert.Equal(t, "local://a", Join("local://", "a"))
	assert.Equal(t, "local://dir/a", Join("local://dir", "a"))
	assert.Equal(t, "local://dir/a", Join("local://dir/", "/a"))

	assert.Equal(t, "local://a/b", Qualify("a/b", "local"))
	assert.Equal(t, "local://a/b", Qualify("/a/b", "local"))
	assert.Equal(t, "media://a", Qualify("media://a", "local"))
}

func TestBaseAndExt(t *testing.T) {
	assert.Equal(t, "b.txt", Base("local://a/b.txt"))
	assert.Equal(t, "a", Base("local://a/"))
	assert.Equal(t, "", Base("local://"))
	assert.Equal(t, "txt", Ext("local://a/b.txt"))
	assert.Equal(t, "gz", Ext("local://a/b.tar.gz"))
	assert.Equal(t, "", Ext("local://a/Makefile"))
	assert.Equal(t, "report", TrimExt("report.zip"))
	assert.Equal(t, "report", TrimExt("report"))
}

func TestIsValidName(t *testing.T) {
	valid := []string{"a.txt", "folder", "my file (1).pdf", "ünïcode"}
	for _, name := range valid {
		assert.True(t, IsValidName(name), "expected %q to be valid", name)
	}

	invalid := []string{"", "a/b", `a\b`, "a?b", "100%", "a*", "c:", "a|b", `"q"`, "<x>"}
	for _, name := range invalid {
		assert.False(t, IsValidName(name), "expected %q to be invalid", name)
	}
}

func TestRel(t *testing.T) {
	assert.Equal(t, "x.txt", Rel("local://", "local://x.txt"))
	assert.Equal(t, "sub/x.txt", Rel("local://dir", "local://dir/sub/x.txt"))
	assert.Equal(t, "sub/x.txt", Rel("local://dir/", "local://dir/sub/x.txt"))
	assert.Equal(t, "x.txt", Rel("local://other", "local://dir/x.txt"))
	assert.Equal(t, "dir/x.txt", Rel("", "dir/x.txt"))
}

func TestWithin(t *testing.T) {
	assert.True(t, Within("local://docs", "local://docs"))
	assert.True(t, Within("local://docs/notes/docs", "local://docs"))
	assert.True(t, Within("local://docs/a", "local://docs/"))
	assert.True(t, Within("local://x", "local://"))
	assert.False(t, Within("local://docs2", "local://docs"))
	assert.False(t, Within("media://docs/a", "local://docs"))
	assert.False(t, Within("local://", "local://docs"))
}
