package action

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(action, path string, payload Payload) *Request {
	return &Request{Method: http.MethodPost, Action: action, Path: path, Payload: payload}
}

func readAll(t *testing.T, b storage.Backend, p string) string {
	t.Helper()
	r, err := b.ReadStream(context.Background(), p)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestCreateFolder(t *testing.T) {
	env := newTestEnv(t)

	listing := env.mustList(t, post("create-folder", "local://docs", Payload{Name: "drafts"}))
	assert.Equal(t, "local://docs", listing.Dirname)
	assert.Contains(t, nodePaths(listing.Files), "local://docs/drafts")
	assert.True(t, exists(t, env.local, "docs/drafts"))

	// Listing afterwards shows it too.
	listing = env.mustList(t, &Request{Method: http.MethodGet, Action: "index", Path: "local://docs"})
	assert.Contains(t, nodePaths(listing.Files), "local://docs/drafts")
}

func TestCreateFolder_AtRoot(t *testing.T) {
	env := newTestEnv(t)

	listing := env.mustList(t, post("newfolder", "", Payload{Name: "fresh"}))
	assert.Equal(t, "local://", listing.Dirname)
	assert.Contains(t, nodePaths(listing.Files), "local://fresh")
}

func TestCreateFolder_Exists(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.dispatch(t, post("create-folder", "local://", Payload{Name: "docs"}))
	assert.ErrorIs(t, err, ErrFileExists)

	_, err = env.dispatch(t, post("create-folder", "local://", Payload{Name: "readme.txt"}))
	assert.ErrorIs(t, err, ErrFileExists)
}

func TestCreate_InvalidName(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"", "a/b", `a\b`, "what?", "100%", "*", "c:", "a|b", `"q"`, "<x>"} {
		for _, verb := range []string{"create-folder", "create-file"} {
			_, err := env.dispatch(t, post(verb, "local://", Payload{Name: name}))
			assert.ErrorIs(t, err, ErrInvalidFilename, "%s %q", verb, name)
		}
	}
}

func TestCreateFile(t *testing.T) {
	env := newTestEnv(t)

	listing := env.mustList(t, post("newfile", "local://docs", Payload{Name: "todo.md"}))
	assert.Contains(t, nodePaths(listing.Files), "local://docs/todo.md")
	assert.Equal(t, "", readAll(t, env.local, "docs/todo.md"))

	_, err := env.dispatch(t, post("create-file", "local://docs", Payload{Name: "todo.md"}))
	assert.ErrorIs(t, err, ErrFileExists)
}

func TestRename(t *testing.T) {
	env := newTestEnv(t)

	listing := env.mustList(t, post("rename", "local://", Payload{Name: "README.md", Item: "local://readme.txt"}))
	assert.Contains(t, nodePaths(listing.Files), "local://README.md")
	assert.False(t, exists(t, env.local, "readme.txt"))
	assert.Equal(t, "hello", readAll(t, env.local, "README.md"))
}

func TestRename_Collision(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.local.Write(context.Background(), "other.txt", []byte("other")))

	_, err := env.dispatch(t, post("rename", "local://", Payload{Name: "other.txt", Item: "local://readme.txt"}))
	assert.ErrorIs(t, err, ErrFileExists)
	assert.Equal(t, http.StatusConflict, StatusCode(err))

	assert.Equal(t, "hello", readAll(t, env.local, "readme.txt"))
	assert.Equal(t, "other", readAll(t, env.local, "other.txt"))
}

func TestRename_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.dispatch(t, post("rename", "local://", Payload{Name: "../x", Item: "local://readme.txt"}))
	assert.ErrorIs(t, err, ErrInvalidFilename)

	_, err = env.dispatch(t, post("rename", "local://", Payload{Name: "x.txt"}))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestMove(t *testing.T) {
	env := newTestEnv(t)

	listing := env.mustList(t, post("move", "local://", Payload{
		Destination: "local://empty",
		Items: []Item{
			{Path: "local://readme.txt", Type: storage.TypeFile},
			{Path: "local://docs", Type: storage.TypeDir},
		},
	}))

	assert.Equal(t, []string{"local://empty"}, nodePaths(listing.Files))
	assert.Equal(t, "hello", readAll(t, env.local, "empty/readme.txt"))
	assert.Equal(t, "buy milk", readAll(t, env.local, "empty/docs/notes/Todo.TXT"))
	assert.False(t, exists(t, env.local, "docs"))
}

func TestMove_BatchCollisionTouchesNothing(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.local.Write(context.Background(), "empty/report.pdf", []byte("taken")))

	_, err := env.dispatch(t, post("move", "local://", Payload{
		Destination: "local://empty",
		Sources: []Item{
			{Path: "local://readme.txt"},
			{Path: "local://docs/report.pdf"},
		},
	}))
	assert.ErrorIs(t, err, ErrFileExists)

	// The first source would have been fine but must not have moved.
	assert.True(t, exists(t, env.local, "readme.txt"))
	assert.False(t, exists(t, env.local, "empty/readme.txt"))
	assert.Equal(t, "taken", readAll(t, env.local, "empty/report.pdf"))
}

func TestMove_IntoOwnSubdirectory(t *testing.T) {
	env := newTestEnv(t)

	for _, dest := range []string{"local://docs/notes", "local://docs"} {
		_, err := env.dispatch(t, post("move", "local://", Payload{
			Destination: dest,
			Items:       []Item{{Path: "local://docs", Type: storage.TypeDir}},
		}))
		assert.ErrorIs(t, err, ErrInvalidRequest, dest)
	}

	assert.Equal(t, "%PDF-1.4 report", readAll(t, env.local, "docs/report.pdf"))
	assert.Equal(t, "buy milk", readAll(t, env.local, "docs/notes/Todo.TXT"))
	assert.False(t, exists(t, env.local, "docs/notes/docs"))
}

func TestCopy_IntoOwnSubdirectory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.dispatch(t, post("copy", "local://", Payload{
		Destination: "local://docs/notes",
		Items:       []Item{{Path: "local://readme.txt"}, {Path: "local://docs", Type: storage.TypeDir}},
	}))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	// Rejected before the first item was copied
	assert.False(t, exists(t, env.local, "docs/notes/readme.txt"))
}

func TestMove_DuplicateBasenames(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.local.Write(context.Background(), "docs/readme.txt", []byte("inner")))

	_, err := env.dispatch(t, post("move", "local://", Payload{
		Destination: "local://empty",
		Items:       []Item{{Path: "local://readme.txt"}, {Path: "local://docs/readme.txt"}},
	}))
	assert.ErrorIs(t, err, ErrFileExists)
	assert.True(t, exists(t, env.local, "readme.txt"))
	assert.True(t, exists(t, env.local, "docs/readme.txt"))
}

func TestMove_LegacyItemDestination(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.dispatch(t, post("move", "local://", Payload{
		Item:  "local://empty",
		Items: []Item{{Path: "local://readme.txt"}},
	}))
	require.NoError(t, err)
	assert.True(t, exists(t, env.local, "empty/readme.txt"))
}

func TestMove_MissingArguments(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.dispatch(t, post("move", "local://", Payload{Items: []Item{{Path: "local://readme.txt"}}}))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = env.dispatch(t, post("copy", "local://", Payload{Destination: "local://empty"}))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCopy_AcrossStorages(t *testing.T) {
	env := newTestEnv(t)

	listing := env.mustList(t, post("copy", "local://", Payload{
		Destination: "media://",
		Items: []Item{
			{Path: "local://readme.txt", Type: storage.TypeFile},
			{Path: "local://docs", Type: storage.TypeDir},
		},
	}))

	// The listing is the request's directory, unchanged.
	assert.Contains(t, nodePaths(listing.Files), "local://readme.txt")

	assert.Equal(t, "hello", readAll(t, env.media, "readme.txt"))
	assert.Equal(t, "buy milk", readAll(t, env.media, "docs/notes/Todo.TXT"))
	assert.True(t, exists(t, env.local, "docs/notes/Todo.TXT"))
}

func TestCopy_Collision(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.dispatch(t, post("copy", "local://", Payload{
		Destination: "local://",
		Items:       []Item{{Path: "local://readme.txt"}},
	}))
	assert.ErrorIs(t, err, ErrFileExists)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)

	listing := env.mustList(t, post("delete", "local://", Payload{Items: []Item{
		{Path: "local://readme.txt", Type: storage.TypeFile},
		{Path: "local://docs", Type: storage.TypeDir},
	}}))

	assert.Equal(t, []string{"local://empty"}, nodePaths(listing.Files))
	assert.False(t, exists(t, env.local, "docs/notes/Todo.TXT"))
}

func TestDelete_Missing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.dispatch(t, post("delete", "local://", Payload{Items: []Item{{Path: "local://ghost.txt"}}}))
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.dispatch(t, &Request{
		Method: http.MethodPost,
		Action: "upload",
		Path:   "local://docs",
		File:   &UploadedFile{Filename: "photo.jpg", Size: 3, Reader: bytes.NewReader([]byte("abc"))},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ok": true}, resp.Body)
	assert.Equal(t, "abc", readAll(t, env.local, "docs/photo.jpg"))
}

func TestUpload_NameAndFolders(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.dispatch(t, &Request{
		Method:  http.MethodPost,
		Action:  "upload",
		Path:    "media://",
		Payload: Payload{Name: "../../album/cover.png"},
		File:    &UploadedFile{Filename: "ignored.png", Reader: bytes.NewReader([]byte("png"))},
	})
	require.NoError(t, err)
	assert.Equal(t, "png", readAll(t, env.media, "album/cover.png"))
}

func TestUpload_NoFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.dispatch(t, &Request{Method: http.MethodPost, Action: "upload", Path: "local://", Payload: Payload{Name: "x.txt"}})
	assert.ErrorIs(t, err, ErrInvalidFilename)
	assert.False(t, exists(t, env.local, "x.txt"))
}
