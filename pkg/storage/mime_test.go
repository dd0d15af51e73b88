package storage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMimeType(t *testing.T) {
	t.Run("PNG by content", func(t *testing.T) {
		png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
		mt, err := DetectMimeType("noext", bytes.NewReader(png))
		require.NoError(t, err)
		assert.Equal(t, "image/png", mt)
	})

	t.Run("Plain text strips charset", func(t *testing.T) {
		mt, err := DetectMimeType("notes.txt", strings.NewReader("hello world"))
		require.NoError(t, err)
		assert.Equal(t, "text/plain", mt)
	})

	t.Run("Extension fallback for generic content", func(t *testing.T) {
		mt, err := DetectMimeType("style.css", strings.NewReader("body { color: red }"))
		require.NoError(t, err)
		assert.Equal(t, "text/css", mt)
	})

	t.Run("Empty content", func(t *testing.T) {
		mt, err := DetectMimeType("empty.bin", bytes.NewReader(nil))
		require.NoError(t, err)
		assert.NotEmpty(t, mt)
	})
}

func TestMimeTypeByExtension(t *testing.T) {
	assert.Equal(t, "text/html", MimeTypeByExtension("index.HTML"))
	assert.Equal(t, "", MimeTypeByExtension("Makefile"))
	assert.Equal(t, "", MimeTypeByExtension("file.nosuchext"))
}
