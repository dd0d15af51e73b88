// Package httpapi serves the file manager actions over HTTP.
//
// The API accepts the VueFinder calling convention: the verb travels in the
// "q" query parameter (or as the last URL segment below the base path),
// arguments in the query string and in a JSON, urlencoded or multipart body.
package httpapi

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/vfinder/internal/action"
	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/internal/ratelimiter"
	"github.com/marmos91/vfinder/pkg/metrics"
	"github.com/marmos91/vfinder/pkg/urlresolver"
)

// APIConfig tunes request handling.
type APIConfig struct {
	// BasePath is the URL prefix the API is mounted under, e.g. "/api".
	BasePath string

	// MaxUploadSize caps request bodies in bytes, 0 for no limit.
	MaxUploadSize int64

	// CORSOrigin is sent as Access-Control-Allow-Origin. Default "*".
	CORSOrigin string

	// RateLimit is the sustained number of requests per second allowed per
	// client address, 0 for no limit. RateBurst is the bucket size.
	RateLimit uint
	RateBurst uint
}

// API is the http.Handler in front of an action.Handler.
//
// Thread Safety:
// Safe for concurrent use.
type API struct {
	handler *action.Handler
	config  APIConfig
	metrics metrics.ActionMetrics
	limiter *ratelimiter.Limiter
}

// NewAPI creates the HTTP front end. m may be nil.
func NewAPI(h *action.Handler, config APIConfig, m metrics.ActionMetrics) *API {
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}
	config.BasePath = "/" + strings.Trim(config.BasePath, "/")
	if m == nil {
		m = metrics.NewNoopActionMetrics()
	}
	return &API{
		handler: h,
		config:  config,
		metrics: m,
		limiter: ratelimiter.New(config.RateLimit, config.RateBurst),
	}
}

// SetHandler replaces the action handler. Must not race with ServeHTTP.
func (a *API) SetHandler(h *action.Handler) {
	a.handler = h
}

// HasHandler reports whether an action handler is configured.
func (a *API) HasHandler() bool {
	return a.handler != nil
}

// ServeHTTP parses, dispatches and renders one action.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	h := w.Header()
	id := requestID(r)
	h.Set("X-Request-Id", id)
	h.Set("Access-Control-Allow-Origin", a.config.CORSOrigin)
	h.Set("Access-Control-Allow-Headers", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

	if !a.underBasePath(r.URL.Path) {
		http.NotFound(w, r)
		return
	}

	if a.handler == nil {
		_ = action.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": false, "message": "not ready"})
		return
	}

	if !a.limiter.Allow(clientAddr(r)) {
		logger.Debug("Rate limited %s %s from %s", r.Method, r.URL.Path, clientAddr(r))
		w.Header().Set("Retry-After", "1")
		_ = action.WriteJSON(w, http.StatusTooManyRequests, map[string]any{"status": false, "message": "too many requests"})
		return
	}

	if a.config.MaxUploadSize > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxUploadSize)
	}

	req, cleanup, err := a.parseRequest(r)
	defer cleanup()
	if err != nil {
		a.fail(w, id, "", "", err, start)
		return
	}

	verb := strings.ToLower(req.Action)
	if !action.IsVerb(verb) && req.Method != http.MethodOptions {
		// Keeps arbitrary client input out of the metric labels.
		verb = "unknown"
	}
	key := a.handler.StorageKey(req)

	a.metrics.RecordActionStart(verb)
	defer a.metrics.RecordActionEnd(verb)

	ctx := urlresolver.WithRequestBase(r.Context(), requestBase(r))

	resp, err := a.handler.Dispatch(ctx, req)
	if err != nil {
		a.fail(w, id, verb, key, err, start)
		return
	}
	defer func() { _ = resp.Close() }()

	if req.File != nil {
		a.metrics.RecordBytesTransferred("upload", req.File.Size)
	}
	if resp.Stream != nil {
		a.metrics.RecordBytesTransferred("download", resp.Stream.Size)
	}

	if err := resp.Write(w, r); err != nil {
		logger.Debug("Failed to write %s response: %v", verb, err)
	}

	a.metrics.RecordAction(verb, key, http.StatusOK, time.Since(start))
	logger.Debug("[%s] %s %s on %s completed in %v", id, r.Method, verb, key, time.Since(start))
}

func (a *API) fail(w http.ResponseWriter, id, verb, key string, err error, start time.Time) {
	var maxBytes *http.MaxBytesError
	status := action.StatusCode(err)
	if errors.As(err, &maxBytes) {
		status = http.StatusRequestEntityTooLarge
	}

	if status >= http.StatusInternalServerError {
		logger.Error("[%s] Action %q on %q failed: %v", id, verb, key, err)
	} else {
		logger.Warn("[%s] Action %q on %q rejected: %v", id, verb, key, err)
	}

	if verb != "" {
		a.metrics.RecordAction(verb, key, status, time.Since(start))
	}

	if status == http.StatusRequestEntityTooLarge {
		_ = action.WriteJSON(w, status, map[string]any{"status": false, "message": "request body too large"})
		return
	}
	_ = action.WriteError(w, err)
}

func (a *API) underBasePath(p string) bool {
	if a.config.BasePath == "/" {
		return true
	}
	return p == a.config.BasePath || strings.HasPrefix(p, a.config.BasePath+"/")
}

// verbFromPath returns the URL segment following the base path, if any.
func (a *API) verbFromPath(p string) string {
	rest := strings.Trim(strings.TrimPrefix(p, a.config.BasePath), "/")
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

// requestBase returns "scheme://host" of r, honoring the usual proxy
// headers.
func requestBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}

	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host == "" {
		return ""
	}
	return scheme + "://" + host
}

// requestID returns the caller's X-Request-Id when it is a UUID, a fresh
// one otherwise.
func requestID(r *http.Request) string {
	if id, err := uuid.Parse(r.Header.Get("X-Request-Id")); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// clientAddr returns the host part of the remote address.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
