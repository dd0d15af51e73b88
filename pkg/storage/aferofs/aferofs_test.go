package aferofs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/vfinder/pkg/storage"
	storagetest "github.com/marmos91/vfinder/pkg/storage/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	suite := &storagetest.BackendTestSuite{
		NewBackend: func(t *testing.T) storage.Backend {
			return NewMemory()
		},
	}
	suite.Run(t)
}

func TestLocalStore(t *testing.T) {
	suite := &storagetest.BackendTestSuite{
		NewBackend: func(t *testing.T) storage.Backend {
			store, err := NewLocal(t.TempDir())
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestLocalStore_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "root")

	_, err := NewLocal(root)
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStore_RequiresRoot(t *testing.T) {
	_, err := NewLocal("")
	assert.Error(t, err)
}

func TestLocalStore_StaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "jail")

	store, err := NewLocal(root)
	require.NoError(t, err)

	ctx := t.Context()
	require.NoError(t, store.Write(ctx, "../escape.txt", []byte("x")))

	_, err = os.Stat(filepath.Join(parent, "escape.txt"))
	assert.True(t, os.IsNotExist(err), "write escaped the storage root")

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.NoError(t, err)
}

func TestStore_DeleteRootRejected(t *testing.T) {
	store := NewMemory()
	assert.Error(t, store.DeleteDirectory(t.Context(), ""))
	assert.Error(t, store.DeleteDirectory(t.Context(), "/"))
}

func TestStore_ListFileIsNotDirectory(t *testing.T) {
	store := NewMemory()
	require.NoError(t, store.Write(t.Context(), "f.txt", []byte("x")))

	_, err := store.ListContents(t.Context(), "f.txt", false)
	storagetest.AssertErrorIs(t, storage.ErrNotDirectory, err)
}
