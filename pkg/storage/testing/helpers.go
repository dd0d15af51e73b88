package testing

import (
	"errors"
	"io"
	"testing"

	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/stretchr/testify/require"
)

// AssertErrorIs checks that actual wraps expected.
func AssertErrorIs(t *testing.T, expected error, actual error) {
	t.Helper()
	if !errors.Is(actual, expected) {
		t.Fatalf("expected error %v, got %v", expected, actual)
	}
}

func mustWrite(t *testing.T, b storage.Backend, path string, data []byte) {
	t.Helper()
	require.NoError(t, b.Write(testContext(), path, data), "write %s", path)
}

func mustRead(t *testing.T, b storage.Backend, path string) []byte {
	t.Helper()
	r, err := b.ReadStream(testContext(), path)
	require.NoError(t, err, "open %s", path)
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	require.NoError(t, err, "read %s", path)
	return data
}

func mustMkdir(t *testing.T, b storage.Backend, path string) {
	t.Helper()
	require.NoError(t, b.CreateDirectory(testContext(), path), "mkdir %s", path)
}

func assertFileExists(t *testing.T, b storage.Backend, path string, expected bool) {
	t.Helper()
	exists, err := b.FileExists(testContext(), path)
	require.NoError(t, err)
	require.Equal(t, expected, exists, "FileExists(%s)", path)
}

func assertDirExists(t *testing.T, b storage.Backend, path string, expected bool) {
	t.Helper()
	exists, err := b.DirectoryExists(testContext(), path)
	require.NoError(t, err)
	require.Equal(t, expected, exists, "DirectoryExists(%s)", path)
}

// listPaths returns the entry paths of a listing, directories suffixed with "/".
func listPaths(t *testing.T, b storage.Backend, path string, deep bool) []string {
	t.Helper()
	entries, err := b.ListContents(testContext(), path, deep)
	require.NoError(t, err)

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			paths = append(paths, e.Path+"/")
		} else {
			paths = append(paths, e.Path)
		}
	}
	return paths
}

// generateTestData creates deterministic data of the given size.
func generateTestData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}
