package testing

import (
	"testing"

	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStructureTests executes directory, move, copy and delete tests.
func (suite *BackendTestSuite) RunStructureTests(t *testing.T) {
	t.Run("CreateDirectory_Nested", suite.testCreateDirectoryNested)
	t.Run("CreateDirectory_Idempotent", suite.testCreateDirectoryIdempotent)
	t.Run("Move_File", suite.testMoveFile)
	t.Run("Move_Directory", suite.testMoveDirectory)
	t.Run("Move_NotFound", suite.testMoveNotFound)
	t.Run("Copy_File", suite.testCopyFile)
	t.Run("Copy_Directory", suite.testCopyDirectory)
	t.Run("Delete_File", suite.testDeleteFile)
	t.Run("Delete_NotFound", suite.testDeleteNotFound)
	t.Run("DeleteDirectory_Recursive", suite.testDeleteDirectoryRecursive)
	t.Run("DeleteDirectory_SiblingPrefix", suite.testDeleteDirectorySiblingPrefix)
}

func (suite *BackendTestSuite) testCreateDirectoryNested(t *testing.T) {
	b := suite.newBackend(t)
	mustMkdir(t, b, "x/y/z")

	assertDirExists(t, b, "x", true)
	assertDirExists(t, b, "x/y/z", true)
}

func (suite *BackendTestSuite) testCreateDirectoryIdempotent(t *testing.T) {
	b := suite.newBackend(t)
	mustMkdir(t, b, "again")
	mustMkdir(t, b, "again")

	assertDirExists(t, b, "again", true)
}

func (suite *BackendTestSuite) testMoveFile(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "from.txt", []byte("payload"))

	require.NoError(t, b.Move(testContext(), "from.txt", "dest/to.txt"))

	assertFileExists(t, b, "from.txt", false)
	assert.Equal(t, "payload", string(mustRead(t, b, "dest/to.txt")))
}

func (suite *BackendTestSuite) testMoveDirectory(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "src/one.txt", []byte("1"))
	mustWrite(t, b, "src/nested/two.txt", []byte("2"))

	require.NoError(t, b.Move(testContext(), "src", "dst"))

	assertDirExists(t, b, "src", false)
	assert.Equal(t, "1", string(mustRead(t, b, "dst/one.txt")))
	assert.Equal(t, "2", string(mustRead(t, b, "dst/nested/two.txt")))
}

func (suite *BackendTestSuite) testMoveNotFound(t *testing.T) {
	b := suite.newBackend(t)
	err := b.Move(testContext(), "ghost.txt", "other.txt")
	AssertErrorIs(t, storage.ErrNotFound, err)
}

func (suite *BackendTestSuite) testCopyFile(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "orig.txt", []byte("same"))

	require.NoError(t, b.Copy(testContext(), "orig.txt", "copies/dup.txt"))

	assert.Equal(t, "same", string(mustRead(t, b, "orig.txt")))
	assert.Equal(t, "same", string(mustRead(t, b, "copies/dup.txt")))
}

func (suite *BackendTestSuite) testCopyDirectory(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "tree/leaf.txt", []byte("leaf"))
	mustMkdir(t, b, "tree/hollow")

	require.NoError(t, b.Copy(testContext(), "tree", "clone"))

	assert.Equal(t, "leaf", string(mustRead(t, b, "tree/leaf.txt")))
	assert.Equal(t, "leaf", string(mustRead(t, b, "clone/leaf.txt")))
	assertDirExists(t, b, "clone/hollow", true)
}

func (suite *BackendTestSuite) testDeleteFile(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "doomed.txt", []byte("x"))

	require.NoError(t, b.Delete(testContext(), "doomed.txt"))
	assertFileExists(t, b, "doomed.txt", false)
}

func (suite *BackendTestSuite) testDeleteNotFound(t *testing.T) {
	b := suite.newBackend(t)
	err := b.Delete(testContext(), "never.txt")
	AssertErrorIs(t, storage.ErrNotFound, err)
}

func (suite *BackendTestSuite) testDeleteDirectoryRecursive(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "rm/a.txt", []byte("a"))
	mustWrite(t, b, "rm/deep/b.txt", []byte("b"))

	require.NoError(t, b.DeleteDirectory(testContext(), "rm"))

	assertDirExists(t, b, "rm", false)
	assertFileExists(t, b, "rm/deep/b.txt", false)
}

func (suite *BackendTestSuite) testDeleteDirectorySiblingPrefix(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "logs/a.txt", []byte("a"))
	mustWrite(t, b, "logs-old/b.txt", []byte("b"))

	require.NoError(t, b.DeleteDirectory(testContext(), "logs"))

	assertFileExists(t, b, "logs-old/b.txt", true)
}
