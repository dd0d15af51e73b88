package action

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/marmos91/vfinder/pkg/storagepath"
)

// Response is the result of a dispatched action: a JSON document or a byte
// stream. Exactly one of Body and Stream is set, an empty response has
// neither.
type Response struct {
	Body   any
	Stream *Stream
}

// Stream describes a file sent back to the client.
type Stream struct {
	// Reader yields the content. When it also implements io.Seeker, byte
	// ranges are served from it.
	Reader io.ReadCloser

	Path        string
	ContentType string
	Size        int64
	ModTime     time.Time

	// Attachment asks the browser to save the file instead of rendering it.
	Attachment bool
}

// JSON wraps a JSON body.
func JSON(body any) *Response {
	return &Response{Body: body}
}

// Close releases the stream, if any.
func (r *Response) Close() error {
	if r == nil || r.Stream == nil || r.Stream.Reader == nil {
		return nil
	}
	return r.Stream.Reader.Close()
}

// Write renders the response on w. The caller still owns Close.
func (r *Response) Write(w http.ResponseWriter, req *http.Request) error {
	if r == nil || (r.Body == nil && r.Stream == nil) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, err := io.WriteString(w, "{}")
		return err
	}

	if r.Stream != nil {
		return r.Stream.write(w, req)
	}

	return WriteJSON(w, http.StatusOK, r.Body)
}

// WriteJSON encodes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}

// WriteError encodes err as {"status": false, "message": ...}.
func WriteError(w http.ResponseWriter, err error) error {
	return WriteJSON(w, StatusCode(err), map[string]any{
		"status":  false,
		"message": Message(err),
	})
}

func (s *Stream) write(w http.ResponseWriter, req *http.Request) error {
	h := w.Header()

	contentType := s.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", "must-revalidate, post-check=0, pre-check=0")
	h.Set("Content-Transfer-Encoding", "binary")

	if s.Attachment {
		h.Set("Content-Disposition", attachmentDisposition(s.Path))
	}

	if rs, ok := s.Reader.(io.ReadSeeker); ok {
		// ServeContent handles Range, If-Range and Content-Length.
		http.ServeContent(w, req, "", s.ModTime, rs)
		return nil
	}

	h.Set("Content-Length", strconv.FormatInt(s.Size, 10))
	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodHead {
		return nil
	}
	_, err := io.Copy(w, s.Reader)
	return err
}

// attachmentDisposition builds a Content-Disposition header carrying the
// real basename in RFC 5987 form plus an ASCII fallback made of the md5 of
// the path and the original extension.
func attachmentDisposition(p string) string {
	name := storagepath.Base(p)

	sum := md5.Sum([]byte(p))
	fallback := hex.EncodeToString(sum[:])
	if ext := storagepath.Ext(p); ext != "" {
		fallback += "." + ext
	}

	header := mime.FormatMediaType("attachment", map[string]string{"filename": fallback})
	return header + "; filename*=UTF-8''" + encodeRFC5987(name)
}

// encodeRFC5987 percent-encodes everything outside the attr-char set.
func encodeRFC5987(s string) string {
	const hexDigits = "0123456789ABCDEF"
	out := make([]byte, 0, len(s)*3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			out = append(out, c)
			continue
		}
		out = append(out, '%', hexDigits[c>>4], hexDigits[c&0x0f])
	}
	return string(out)
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '&', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
