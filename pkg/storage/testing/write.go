package testing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWriteTests executes the content write tests.
func (suite *BackendTestSuite) RunWriteTests(t *testing.T) {
	t.Run("Write_Basic", suite.testWriteBasic)
	t.Run("Write_Overwrite", suite.testWriteOverwrite)
	t.Run("Write_Empty", suite.testWriteEmpty)
	t.Run("Write_CreatesParents", suite.testWriteCreatesParents)
	t.Run("WriteStream_Large", suite.testWriteStreamLarge)
}

func (suite *BackendTestSuite) testWriteBasic(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "hello.txt", []byte("Hello, World!"))

	assert.Equal(t, "Hello, World!", string(mustRead(t, b, "hello.txt")))
}

func (suite *BackendTestSuite) testWriteOverwrite(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "over.txt", []byte("a much longer first version"))
	mustWrite(t, b, "over.txt", []byte("short"))

	assert.Equal(t, "short", string(mustRead(t, b, "over.txt")))

	size, err := b.FileSize(testContext(), "over.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
}

func (suite *BackendTestSuite) testWriteEmpty(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "empty.txt", []byte{})

	assertFileExists(t, b, "empty.txt", true)
	assert.Empty(t, mustRead(t, b, "empty.txt"))
}

func (suite *BackendTestSuite) testWriteCreatesParents(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "a/b/c/deep.txt", []byte("deep"))

	assertDirExists(t, b, "a", true)
	assertDirExists(t, b, "a/b", true)
	assertDirExists(t, b, "a/b/c", true)
}

func (suite *BackendTestSuite) testWriteStreamLarge(t *testing.T) {
	b := suite.newBackend(t)
	data := generateTestData(6 * 1024 * 1024)

	require.NoError(t, b.WriteStream(testContext(), "large.bin", bytes.NewReader(data)))
	assert.Equal(t, data, mustRead(t, b, "large.bin"))
}
