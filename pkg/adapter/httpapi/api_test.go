package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/marmos91/vfinder/internal/action"
	"github.com/marmos91/vfinder/pkg/registry"
	"github.com/marmos91/vfinder/pkg/storage/aferofs"
	"github.com/marmos91/vfinder/pkg/urlresolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiEnv struct {
	api     *API
	local   *aferofs.Store
	archive *aferofs.Store
}

func newAPIEnv(t *testing.T, cfg APIConfig) *apiEnv {
	t.Helper()

	env := &apiEnv{local: aferofs.NewMemory(), archive: aferofs.NewMemory()}

	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("local", env.local, registry.Options{}))
	require.NoError(t, reg.Register("archive", env.archive, registry.Options{ReadOnly: true}))

	// No AppURL: node URLs are built from the request host.
	urls := urlresolver.New(urlresolver.Config{}, reg)
	h, err := action.NewHandler(reg, urls, action.Config{TempDir: t.TempDir()})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, env.local.Write(ctx, "readme.txt", []byte("hello")))
	require.NoError(t, env.local.CreateDirectory(ctx, "docs"))
	require.NoError(t, env.archive.Write(ctx, "old.txt", []byte("frozen")))

	env.api = NewAPI(h, cfg, nil)
	return env
}

func (e *apiEnv) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.api.ServeHTTP(rec, r)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func filePaths(t *testing.T, body map[string]any) []string {
	t.Helper()
	files, ok := body["files"].([]any)
	require.True(t, ok, "files missing in %v", body)
	var out []string
	for _, f := range files {
		out = append(out, f.(map[string]any)["path"].(string))
	}
	return out
}

func TestServeHTTP_Index(t *testing.T) {
	env := newAPIEnv(t, APIConfig{BasePath: "/api"})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api?q=index&path=local://", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	body := decodeJSON(t, rec)
	assert.Equal(t, "local://", body["dirname"])
	assert.Equal(t, []string{"local://docs", "local://readme.txt"}, filePaths(t, body))
	assert.Equal(t, []any{"local", "archive"}, body["storages"])

	files := body["files"].([]any)
	readme := files[1].(map[string]any)
	assert.Equal(t, "http://example.com/storage/local/readme.txt", readme["url"])
}

func TestServeHTTP_VerbFromPath(t *testing.T) {
	env := newAPIEnv(t, APIConfig{BasePath: "/api/"})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/subfolders?path=local://", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decodeJSON(t, rec), "folders")
}

func TestServeHTTP_OutsideBasePath(t *testing.T) {
	env := newAPIEnv(t, APIConfig{BasePath: "/api"})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/other?q=index", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/apiary?q=index", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeHTTP_RequestID(t *testing.T) {
	env := newAPIEnv(t, APIConfig{})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/?q=index", nil))
	_, err := uuid.Parse(rec.Header().Get("X-Request-Id"))
	assert.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/?q=index", nil)
	r.Header.Set("X-Request-Id", "550e8400-e29b-41d4-a716-446655440000")
	rec = env.do(r)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", rec.Header().Get("X-Request-Id"))

	r = httptest.NewRequest(http.MethodGet, "/?q=index", nil)
	r.Header.Set("X-Request-Id", "not-a-uuid")
	rec = env.do(r)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get("X-Request-Id"))
}

func TestServeHTTP_Options(t *testing.T) {
	env := newAPIEnv(t, APIConfig{CORSOrigin: "https://app.test"})

	rec := env.do(httptest.NewRequest(http.MethodOptions, "/?q=upload", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "{}", rec.Body.String())
}

func TestServeHTTP_Errors(t *testing.T) {
	env := newAPIEnv(t, APIConfig{})

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"unknown verb", httptest.NewRequest(http.MethodGet, "/?q=format", nil), http.StatusMethodNotAllowed},
		{"wrong method", httptest.NewRequest(http.MethodGet, "/?q=delete", nil), http.StatusMethodNotAllowed},
		{"missing path", httptest.NewRequest(http.MethodGet, "/?q=index&path=local://nope", nil), http.StatusNotFound},
		{
			"read only",
			jsonRequest("/?q=create-folder&path=archive://", `{"name":"x"}`),
			http.StatusForbidden,
		},
		{"bad json", jsonRequest("/?q=create-folder", `{"name":`), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decodeJSON(t, rec)
			assert.Equal(t, false, body["status"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func jsonRequest(target, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestServeHTTP_JSONBody(t *testing.T) {
	env := newAPIEnv(t, APIConfig{})

	// The path may travel in the body only.
	rec := env.do(jsonRequest("/?q=newfolder", `{"path":"local://docs","name":"reports"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, filePaths(t, decodeJSON(t, rec)), "local://docs/reports")

	ok, err := env.local.DirectoryExists(context.Background(), "docs/reports")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestServeHTTP_FormBody(t *testing.T) {
	env := newAPIEnv(t, APIConfig{})

	form := url.Values{}
	form.Set("destination", "local://docs")
	form.Set("items", `[{"path":"local://readme.txt","type":"file"}]`)

	r := httptest.NewRequest(http.MethodPost, "/?q=move&path=local://", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := env.do(r)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ok, err := env.local.FileExists(context.Background(), "docs/readme.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFormItems(t *testing.T) {
	items, err := formItems([]string{`["local://a", {"path":"local://b","type":"dir"}]`})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "local://a", items[0].Path)
	assert.Equal(t, "dir", string(items[1].Type))

	items, err = formItems([]string{"local://a", "", "local://b"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = formItems([]string{"[oops"})
	assert.ErrorIs(t, err, action.ErrInvalidRequest)
}

func multipartUpload(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", filename))
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, target, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestServeHTTP_Upload(t *testing.T) {
	env := newAPIEnv(t, APIConfig{})

	rec := env.do(multipartUpload(t, "/?q=upload&path=local://docs", "song.mp3", "ID3 data"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rc, err := env.local.ReadStream(context.Background(), "docs/song.mp3")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "ID3 data", string(data))
}

func TestServeHTTP_UploadTooLarge(t *testing.T) {
	env := newAPIEnv(t, APIConfig{MaxUploadSize: 64})

	rec := env.do(multipartUpload(t, "/?q=upload&path=local://", "big.bin", strings.Repeat("x", 4096)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	ok, err := env.local.FileExists(context.Background(), "big.bin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServeHTTP_Download(t *testing.T) {
	env := newAPIEnv(t, APIConfig{})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/?q=download&path=archive://old.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "frozen", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
}

func TestServeHTTP_RateLimit(t *testing.T) {
	env := newAPIEnv(t, APIConfig{RateLimit: 1, RateBurst: 2})

	send := func(addr string) int {
		r := httptest.NewRequest(http.MethodGet, "/?q=index", nil)
		r.RemoteAddr = addr
		return env.do(r).Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:5002"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:5000"))
}

func TestRequestBase(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "http://example.com", requestBase(r))

	r.Header.Set("X-Forwarded-Proto", "https, http")
	r.Header.Set("X-Forwarded-Host", "files.example.org")
	assert.Equal(t, "https://files.example.org", requestBase(r))
}

func TestVerbFromPath(t *testing.T) {
	api := NewAPI(nil, APIConfig{BasePath: "/api"}, nil)

	assert.Equal(t, "index", api.verbFromPath("/api/index"))
	assert.Equal(t, "", api.verbFromPath("/api"))
	assert.Equal(t, "", api.verbFromPath("/api/a/b"))
}
