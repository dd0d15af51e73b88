package testing

import (
	"io"
	"testing"

	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests executes the existence, size and read tests.
func (suite *BackendTestSuite) RunBasicTests(t *testing.T) {
	t.Run("FileExists_NotFound", suite.testFileExistsNotFound)
	t.Run("FileExists_Success", suite.testFileExistsSuccess)
	t.Run("DirectoryExists_Root", suite.testDirectoryExistsRoot)
	t.Run("DirectoryExists_FileIsNotDirectory", suite.testDirectoryExistsFile)
	t.Run("ReadStream_NotFound", suite.testReadStreamNotFound)
	t.Run("ReadStream_Success", suite.testReadStreamSuccess)
	t.Run("ReadStream_Seekable", suite.testReadStreamSeekable)
	t.Run("FileSize", suite.testFileSize)
	t.Run("FileSize_NotFound", suite.testFileSizeNotFound)
	t.Run("LastModified", suite.testLastModified)
	t.Run("MimeType", suite.testMimeType)
}

func (suite *BackendTestSuite) testFileExistsNotFound(t *testing.T) {
	b := suite.newBackend(t)
	assertFileExists(t, b, "missing.txt", false)
	assertDirExists(t, b, "missing", false)
}

func (suite *BackendTestSuite) testFileExistsSuccess(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "docs/a.txt", []byte("a"))

	assertFileExists(t, b, "docs/a.txt", true)
	assertDirExists(t, b, "docs", true)
	assertFileExists(t, b, "docs", false)
}

func (suite *BackendTestSuite) testDirectoryExistsRoot(t *testing.T) {
	b := suite.newBackend(t)
	assertDirExists(t, b, "", true)
	assertDirExists(t, b, "/", true)
}

func (suite *BackendTestSuite) testDirectoryExistsFile(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "a.txt", []byte("a"))
	assertDirExists(t, b, "a.txt", false)
}

func (suite *BackendTestSuite) testReadStreamNotFound(t *testing.T) {
	b := suite.newBackend(t)
	_, err := b.ReadStream(testContext(), "nope.bin")
	AssertErrorIs(t, storage.ErrNotFound, err)
}

func (suite *BackendTestSuite) testReadStreamSuccess(t *testing.T) {
	b := suite.newBackend(t)
	data := generateTestData(64 * 1024)
	mustWrite(t, b, "blob.bin", data)

	assert.Equal(t, data, mustRead(t, b, "blob.bin"))
}

func (suite *BackendTestSuite) testReadStreamSeekable(t *testing.T) {
	if suite.SkipSeekable {
		t.Skip("backend streams are not seekable")
	}

	b := suite.newBackend(t)
	mustWrite(t, b, "seek.txt", []byte("0123456789"))

	r, err := b.ReadStream(testContext(), "seek.txt")
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	seeker, ok := r.(io.ReadSeeker)
	require.True(t, ok, "stream does not implement io.Seeker")

	end, err := seeker.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(10), end)

	_, err = seeker.Seek(4, io.SeekStart)
	require.NoError(t, err)

	buf := make([]byte, 3)
	_, err = io.ReadFull(seeker, buf)
	require.NoError(t, err)
	assert.Equal(t, "456", string(buf))
}

func (suite *BackendTestSuite) testFileSize(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "sized.bin", generateTestData(1234))

	size, err := b.FileSize(testContext(), "sized.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), size)
}

func (suite *BackendTestSuite) testFileSizeNotFound(t *testing.T) {
	b := suite.newBackend(t)
	_, err := b.FileSize(testContext(), "missing.bin")
	AssertErrorIs(t, storage.ErrNotFound, err)
}

func (suite *BackendTestSuite) testLastModified(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "dated.txt", []byte("x"))

	mtime, err := b.LastModified(testContext(), "dated.txt")
	require.NoError(t, err)
	assert.False(t, mtime.IsZero())
}

func (suite *BackendTestSuite) testMimeType(t *testing.T) {
	b := suite.newBackend(t)
	mustWrite(t, b, "page.html", []byte("<!DOCTYPE html><html><body>hi</body></html>"))

	mt, err := b.MimeType(testContext(), "page.html")
	require.NoError(t, err)
	assert.Equal(t, "text/html", mt)

	_, err = b.MimeType(testContext(), "missing.html")
	assert.Error(t, err)
}
