package action

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/marmos91/vfinder/pkg/node"
	"github.com/marmos91/vfinder/pkg/registry"
	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/marmos91/vfinder/pkg/storage/aferofs"
	"github.com/marmos91/vfinder/pkg/urlresolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is a handler over three in-memory storages: "local" (default),
// "media" and the read-only "archive".
type testEnv struct {
	h       *Handler
	local   *aferofs.Store
	media   *aferofs.Store
	archive *aferofs.Store
	tempDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		local:   aferofs.NewMemory(),
		media:   aferofs.NewMemory(),
		archive: aferofs.NewMemory(),
		tempDir: t.TempDir(),
	}

	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("local", env.local, registry.Options{}))
	require.NoError(t, reg.Register("media", env.media, registry.Options{}))
	require.NoError(t, reg.Register("archive", env.archive, registry.Options{ReadOnly: true}))

	urls := urlresolver.New(urlresolver.Config{AppURL: "https://files.test"}, reg)

	h, err := NewHandler(reg, urls, Config{TempDir: env.tempDir})
	require.NoError(t, err)
	env.h = h

	ctx := context.Background()
	require.NoError(t, env.local.Write(ctx, "readme.txt", []byte("hello")))
	require.NoError(t, env.local.Write(ctx, "docs/report.pdf", []byte("%PDF-1.4 report")))
	require.NoError(t, env.local.Write(ctx, "docs/notes/Todo.TXT", []byte("buy milk")))
	require.NoError(t, env.local.CreateDirectory(ctx, "empty"))
	require.NoError(t, env.archive.Write(ctx, "old.txt", []byte("frozen")))

	return env
}

func (e *testEnv) dispatch(t *testing.T, req *Request) (*Response, error) {
	t.Helper()
	resp, err := e.h.Dispatch(context.Background(), req)
	if resp != nil {
		t.Cleanup(func() { _ = resp.Close() })
	}
	return resp, err
}

func (e *testEnv) mustList(t *testing.T, req *Request) *Listing {
	t.Helper()
	resp, err := e.dispatch(t, req)
	require.NoError(t, err)
	listing, ok := resp.Body.(*Listing)
	require.True(t, ok, "expected a listing, got %T", resp.Body)
	return listing
}

func nodePaths(nodes []node.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Path)
	}
	return out
}

func exists(t *testing.T, b storage.Backend, p string) bool {
	t.Helper()
	isFile, err := b.FileExists(context.Background(), p)
	require.NoError(t, err)
	if isFile {
		return true
	}
	isDir, err := b.DirectoryExists(context.Background(), p)
	require.NoError(t, err)
	return isDir
}

func TestNewHandler_RequiresStorage(t *testing.T) {
	_, err := NewHandler(registry.NewRegistry(), nil, Config{})
	assert.Error(t, err)

	_, err = NewHandler(nil, nil, Config{})
	assert.Error(t, err)
}

func TestItem_UnmarshalJSON(t *testing.T) {
	var items []Item
	err := json.Unmarshal([]byte(`["local://a.txt", {"path": "local://dir", "type": "dir"}]`), &items)
	require.NoError(t, err)

	assert.Equal(t, []Item{
		{Path: "local://a.txt"},
		{Path: "local://dir", Type: storage.TypeDir},
	}, items)

	assert.Error(t, json.Unmarshal([]byte(`[42]`), &items))
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "on", " true "} {
		assert.True(t, ParseBool(v), v)
	}
	for _, v := range []string{"", "0", "false", "no", "maybe"} {
		assert.False(t, ParseBool(v), v)
	}
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 128, ParseInt("128"))
	assert.Equal(t, 0, ParseInt(""))
	assert.Equal(t, 0, ParseInt("-4"))
	assert.Equal(t, 0, ParseInt("wide"))
}
