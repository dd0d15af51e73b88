package mount

import (
	"context"
	"io"
	"testing"

	"github.com/marmos91/vfinder/pkg/registry"
	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/marmos91/vfinder/pkg/storage/aferofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("local", aferofs.NewMemory(), registry.Options{}))
	require.NoError(t, reg.Register("media", aferofs.NewMemory(), registry.Options{}))
	require.NoError(t, reg.Register("archive", aferofs.NewMemory(), registry.Options{ReadOnly: true}))
	return NewManager(reg)
}

func read(t *testing.T, m *Manager, p string) string {
	t.Helper()
	r, err := m.ReadStream(context.Background(), p)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestListContents_QualifiesPaths(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	require.NoError(t, m.Write(ctx, "media://pics/a.png", []byte("x")))

	entries, err := m.ListContents(ctx, "media://", false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "media://pics", entries[0].Path)
	assert.Equal(t, storage.TypeDir, entries[0].Type)

	entries, err = m.ListContents(ctx, "media://pics", false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "media://pics/a.png", entries[0].Path)
}

func TestBarePathUsesDefaultStorage(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	require.NoError(t, m.Write(ctx, "notes.txt", []byte("hi")))

	exists, err := m.FileExists(ctx, "local://notes.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUnknownStorage(t *testing.T) {
	m := newTestManager(t)
	_, err := m.FileExists(context.Background(), "nowhere://file.txt")
	assert.ErrorIs(t, err, storage.ErrUnknownStorage)
}

func TestReadOnlyStorage(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	assert.ErrorIs(t, m.Write(ctx, "archive://x.txt", []byte("x")), storage.ErrReadOnly)
	assert.ErrorIs(t, m.CreateDirectory(ctx, "archive://dir"), storage.ErrReadOnly)

	require.NoError(t, m.Write(ctx, "local://src.txt", []byte("x")))
	assert.ErrorIs(t, m.Copy(ctx, "local://src.txt", "archive://src.txt"), storage.ErrReadOnly)
	assert.ErrorIs(t, m.Move(ctx, "local://src.txt", "archive://src.txt"), storage.ErrReadOnly)

	// Reading from a read-only storage is fine
	ok, err := m.DirectoryExists(ctx, "archive://")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCopy_CrossStorageFile(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	require.NoError(t, m.Write(ctx, "local://doc.txt", []byte("content")))

	require.NoError(t, m.Copy(ctx, "local://doc.txt", "media://copied/doc.txt"))

	assert.Equal(t, "content", read(t, m, "local://doc.txt"))
	assert.Equal(t, "content", read(t, m, "media://copied/doc.txt"))
}

func TestMove_CrossStorageDirectory(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	require.NoError(t, m.Write(ctx, "local://proj/a.txt", []byte("a")))
	require.NoError(t, m.Write(ctx, "local://proj/src/b.txt", []byte("b")))
	require.NoError(t, m.CreateDirectory(ctx, "local://proj/empty"))

	require.NoError(t, m.Move(ctx, "local://proj", "media://moved"))

	exists, err := m.Exists(ctx, "local://proj")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Equal(t, "a", read(t, m, "media://moved/a.txt"))
	assert.Equal(t, "b", read(t, m, "media://moved/src/b.txt"))

	isDir, err := m.DirectoryExists(ctx, "media://moved/empty")
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestMove_SameStorage(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	require.NoError(t, m.Write(ctx, "local://a.txt", []byte("a")))

	require.NoError(t, m.Move(ctx, "local://a.txt", "local://b.txt"))

	exists, err := m.FileExists(ctx, "local://a.txt")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, "a", read(t, m, "local://b.txt"))
}

func TestCopy_CrossStorageMissingSource(t *testing.T) {
	m := newTestManager(t)
	err := m.Copy(context.Background(), "local://ghost", "media://ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
