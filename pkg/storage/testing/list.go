package testing

import (
	"testing"

	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunListTests executes the directory listing tests.
func (suite *BackendTestSuite) RunListTests(t *testing.T) {
	t.Run("ListContents_EmptyRoot", suite.testListEmptyRoot)
	t.Run("ListContents_Shallow", suite.testListShallow)
	t.Run("ListContents_Deep", suite.testListDeep)
	t.Run("ListContents_Subdirectory", suite.testListSubdirectory)
	t.Run("ListContents_EmptyDirectory", suite.testListEmptyDirectory)
	t.Run("ListContents_EntryFields", suite.testListEntryFields)
}

func (suite *BackendTestSuite) seedTree(t *testing.T, b storage.Backend) {
	mustWrite(t, b, "top.txt", []byte("top"))
	mustWrite(t, b, "docs/a.txt", []byte("a"))
	mustWrite(t, b, "docs/sub/b.txt", []byte("bb"))
	mustMkdir(t, b, "empty")
}

func (suite *BackendTestSuite) testListEmptyRoot(t *testing.T) {
	b := suite.newBackend(t)
	assert.Empty(t, listPaths(t, b, "", false))
}

func (suite *BackendTestSuite) testListShallow(t *testing.T) {
	b := suite.newBackend(t)
	suite.seedTree(t, b)

	assert.ElementsMatch(t, []string{"top.txt", "docs/", "empty/"}, listPaths(t, b, "", false))
}

func (suite *BackendTestSuite) testListDeep(t *testing.T) {
	b := suite.newBackend(t)
	suite.seedTree(t, b)

	assert.ElementsMatch(t,
		[]string{"top.txt", "docs/", "docs/a.txt", "docs/sub/", "docs/sub/b.txt", "empty/"},
		listPaths(t, b, "", true))
}

func (suite *BackendTestSuite) testListSubdirectory(t *testing.T) {
	b := suite.newBackend(t)
	suite.seedTree(t, b)

	assert.ElementsMatch(t, []string{"docs/a.txt", "docs/sub/"}, listPaths(t, b, "docs", false))
	assert.ElementsMatch(t, []string{"docs/sub/b.txt"}, listPaths(t, b, "docs/sub/", false))
}

func (suite *BackendTestSuite) testListEmptyDirectory(t *testing.T) {
	b := suite.newBackend(t)
	mustMkdir(t, b, "void")

	assert.Empty(t, listPaths(t, b, "void", false))
	assert.Empty(t, listPaths(t, b, "void", true))
}

func (suite *BackendTestSuite) testListEntryFields(t *testing.T) {
	b := suite.newBackend(t)
	suite.seedTree(t, b)

	entries, err := b.ListContents(testContext(), "docs/sub", false)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, storage.TypeFile, e.Type)
	assert.Equal(t, "docs/sub/b.txt", e.Path)
	require.NotNil(t, e.FileSize)
	assert.Equal(t, int64(2), *e.FileSize)

	entries, err = b.ListContents(testContext(), "docs", false)
	require.NoError(t, err)
	for _, e := range entries {
		if e.IsDir() {
			assert.Nil(t, e.FileSize, "directories carry no size")
		}
	}
}
