// Package lambda serves the file manager actions from AWS Lambda behind an
// API Gateway REST (v1 proxy) integration.
//
// Each event is turned into an *http.Request and run through the same
// httpapi.API the standalone server uses, so both transports behave the same
// way. Binary responses (downloads, thumbnails, archives) are returned base64
// encoded, which requires binary media types to be enabled on the gateway.
package lambda

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/dustin/go-humanize"
	"github.com/marmos91/vfinder/internal/action"
	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/adapter/httpapi"
	"github.com/marmos91/vfinder/pkg/metrics"
)

// maxResponseSize is the API Gateway payload limit for Lambda proxy
// responses, after base64 encoding.
const maxResponseSize = 10 << 20

// Config holds configuration parameters for the Lambda adapter.
type Config struct {
	// Enabled controls whether the Lambda adapter is active. It is
	// normally only enabled in the Lambda build.
	Enabled bool `mapstructure:"enabled"`

	// BasePath is the resource path the API is mounted under.
	BasePath string `mapstructure:"base_path"`

	// MaxUploadSize caps request bodies. Default "6MB", the synchronous
	// invocation payload limit.
	MaxUploadSize string `mapstructure:"max_upload_size"`

	// CORSOrigin is the Access-Control-Allow-Origin value. Default "*".
	CORSOrigin string `mapstructure:"cors_origin"`
}

func (c *Config) applyDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "6MB"
	}
}

// LambdaAdapter implements the adapter.Adapter interface for API Gateway
// proxy events.
//
// Thread safety:
// HandleRequest is safe for concurrent use once SetHandler was called.
type LambdaAdapter struct {
	config Config
	api    *httpapi.API
}

// New creates a Lambda adapter. m may be nil.
func New(config Config, m metrics.ActionMetrics) (*LambdaAdapter, error) {
	config.applyDefaults()

	limit, err := humanize.ParseBytes(config.MaxUploadSize)
	if err != nil {
		return nil, fmt.Errorf("invalid Lambda config: max_upload_size %q: %w", config.MaxUploadSize, err)
	}

	return &LambdaAdapter{
		config: config,
		api: httpapi.NewAPI(nil, httpapi.APIConfig{
			BasePath:      config.BasePath,
			MaxUploadSize: int64(limit),
			CORSOrigin:    config.CORSOrigin,
		}, m),
	}, nil
}

// SetHandler injects the shared action handler.
func (a *LambdaAdapter) SetHandler(h *action.Handler) {
	a.api.SetHandler(h)
	logger.Debug("Lambda action handler configured")
}

// Serve hands control to the Lambda runtime. It only returns when the
// runtime does, which in practice means the process is being torn down.
func (a *LambdaAdapter) Serve(ctx context.Context) error {
	if !a.api.HasHandler() {
		return fmt.Errorf("lambda adapter has no action handler")
	}
	logger.Info("Lambda adapter waiting for API Gateway events (base path %s)", a.config.BasePath)
	awslambda.StartWithOptions(a.HandleRequest, awslambda.WithContext(ctx))
	return nil
}

// Stop is a no-op: the Lambda runtime owns the process lifecycle.
func (a *LambdaAdapter) Stop(ctx context.Context) error {
	return nil
}

// Protocol returns "Lambda".
func (a *LambdaAdapter) Protocol() string {
	return "Lambda"
}

// Port returns 0, the adapter has no listener.
func (a *LambdaAdapter) Port() int {
	return 0
}

// HandleRequest serves one API Gateway proxy event.
func (a *LambdaAdapter) HandleRequest(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	r, err := toHTTPRequest(ctx, event)
	if err != nil {
		logger.Warn("Rejecting malformed Lambda event: %v", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"status":false,"message":"invalid request"}`,
		}, nil
	}

	rec := newResponseBuffer()
	a.api.ServeHTTP(rec, r)
	return rec.toProxyResponse(), nil
}

// toHTTPRequest rebuilds the original HTTP request from a proxy event.
func toHTTPRequest(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("decode base64 body: %w", err)
		}
		body = decoded
	}

	query := url.Values{}
	if len(event.MultiValueQueryStringParameters) > 0 {
		for k, vs := range event.MultiValueQueryStringParameters {
			query[k] = append([]string(nil), vs...)
		}
	} else {
		for k, v := range event.QueryStringParameters {
			query.Set(k, v)
		}
	}

	u := &url.URL{Path: event.Path, RawQuery: query.Encode()}
	if u.Path == "" {
		u.Path = "/"
	}

	r, err := http.NewRequestWithContext(ctx, event.HTTPMethod, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	if len(event.MultiValueHeaders) > 0 {
		for k, vs := range event.MultiValueHeaders {
			for _, v := range vs {
				r.Header.Add(k, v)
			}
		}
	} else {
		for k, v := range event.Headers {
			r.Header.Set(k, v)
		}
	}

	r.Host = r.Header.Get("Host")
	if r.Header.Get("X-Forwarded-Proto") == "" {
		r.Header.Set("X-Forwarded-Proto", "https")
	}
	r.RemoteAddr = event.RequestContext.Identity.SourceIP
	r.ContentLength = int64(len(body))
	return r, nil
}

// responseBuffer is the http.ResponseWriter handed to the API.
//
// A body that would not fit in a proxy response is not sent truncated: the
// buffer records the overflow and toProxyResponse replaces the whole
// response with an error.
type responseBuffer struct {
	header   http.Header
	status   int
	body     bytes.Buffer
	overflow bool
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: make(http.Header)}
}

func (b *responseBuffer) Header() http.Header {
	return b.header
}

func (b *responseBuffer) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	if b.overflow {
		return 0, errResponseTooLarge
	}
	if b.wireSize(b.body.Len()+len(p)) > maxResponseSize {
		b.overflow = true
		b.body.Reset()
		return 0, errResponseTooLarge
	}
	return b.body.Write(p)
}

var errResponseTooLarge = fmt.Errorf("response exceeds the %s Lambda payload limit", humanize.IBytes(maxResponseSize))

// wireSize is the size of an n byte body once encoded for API Gateway.
func (b *responseBuffer) wireSize(n int) int {
	if isTextual(b.header.Get("Content-Type")) {
		return n
	}
	return base64.StdEncoding.EncodedLen(n)
}

// tooLarge is the response sent instead of an overflowing one. CORS and
// request ID headers are kept, content headers are not.
func (b *responseBuffer) tooLarge() events.APIGatewayProxyResponse {
	resp := events.APIGatewayProxyResponse{
		StatusCode: http.StatusRequestEntityTooLarge,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       `{"status":false,"message":"` + errResponseTooLarge.Error() + `"}`,
	}
	for k, vs := range b.header {
		if len(vs) > 0 && (strings.HasPrefix(k, "Access-Control-") || k == "X-Request-Id") {
			resp.Headers[k] = vs[0]
		}
	}
	return resp
}

func (b *responseBuffer) toProxyResponse() events.APIGatewayProxyResponse {
	if b.overflow {
		logger.Warn("Lambda response dropped: %v", errResponseTooLarge)
		return b.tooLarge()
	}

	status := b.status
	if status == 0 {
		status = http.StatusOK
	}

	resp := events.APIGatewayProxyResponse{
		StatusCode:        status,
		Headers:           make(map[string]string, len(b.header)),
		MultiValueHeaders: make(map[string][]string, len(b.header)),
	}
	for k, vs := range b.header {
		if len(vs) == 0 {
			continue
		}
		resp.Headers[k] = vs[0]
		resp.MultiValueHeaders[k] = vs
	}

	if isTextual(b.header.Get("Content-Type")) {
		resp.Body = b.body.String()
	} else {
		resp.Body = base64.StdEncoding.EncodeToString(b.body.Bytes())
		resp.IsBase64Encoded = true
	}
	return resp
}

// isTextual reports whether a body of contentType can travel as a plain
// string through API Gateway.
func isTextual(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "text/"),
		strings.HasPrefix(ct, "application/json"),
		strings.HasPrefix(ct, "application/xml"),
		strings.HasPrefix(ct, "application/javascript"),
		strings.HasSuffix(strings.SplitN(ct, ";", 2)[0], "+json"),
		strings.HasSuffix(strings.SplitN(ct, ";", 2)[0], "+xml"):
		return true
	}
	return false
}
