// Package s3 implements storage.Backend on Amazon S3 or any S3-compatible
// object store (MinIO, Localstack, Cubbit DS3).
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/marmos91/vfinder/pkg/storage"
)

// Store implements storage.Backend using Amazon S3 or S3-compatible storage.
//
// Path-Based Key Design:
//   - Backend paths map directly to object keys (with optional prefix)
//   - Format: "<prefix>path/to/file" (e.g., "vfinder/docs/report.pdf")
//   - The bucket mirrors the tree shown in the file manager
//
// Directories:
// S3 has no directories. A directory exists when any key starts with
// "<dir>/". Explicitly created directories are stored as zero-length marker
// objects whose key ends with "/", the same convention the AWS console uses.
//
// Thread Safety:
// This implementation is safe for concurrent use by multiple goroutines.
// Concurrent writes to the same key follow S3's last-writer-wins semantics.
type Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	partSize  int64
}

// Config contains configuration for the S3 storage.
type Config struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	// Example: "vfinder/" results in keys like "vfinder/docs/a.txt"
	KeyPrefix string

	// PartSize is the size of each part for multipart uploads (default: 10MB)
	// Must be between 5MB and 5GB
	PartSize int64
}

const (
	defaultPartSize = 10 * 1024 * 1024
	minPartSize     = 5 * 1024 * 1024
	maxPartSize     = 5 * 1024 * 1024 * 1024

	// S3 allows max 1000 objects per delete request
	maxDeleteBatch = 1000
)

// New creates a new S3-based storage.
//
// This verifies bucket access. The bucket must already exist, this function
// does not create it.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *Store: Initialized S3 storage
//   - error: Returns error if bucket access fails or context is cancelled
func New(ctx context.Context, cfg Config) (*Store, error) {
	// ========================================================================
	// Step 1: Check context before S3 operations
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Validate configuration
	// ========================================================================

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	partSize := cfg.PartSize
	if partSize == 0 {
		partSize = defaultPartSize
	}
	if partSize < minPartSize {
		return nil, fmt.Errorf("part size must be at least 5MB, got %d bytes", partSize)
	}
	if partSize > maxPartSize {
		return nil, fmt.Errorf("part size must be at most 5GB, got %d bytes", partSize)
	}

	prefix := strings.TrimLeft(cfg.KeyPrefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	// ========================================================================
	// Step 3: Verify bucket access
	// ========================================================================

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
		partSize:  partSize,
	}, nil
}

// ============================================================================
// Key mapping
// ============================================================================

// clean normalizes a backend path: no leading, trailing or repeated slashes.
func clean(p string) string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		switch part {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	return strings.Join(out, "/")
}

// objectKey returns the full object key for a file path.
func (s *Store) objectKey(p string) string {
	return s.keyPrefix + clean(p)
}

// dirKey returns the key prefix covering everything inside a directory.
// The root directory maps to the bare key prefix.
func (s *Store) dirKey(p string) string {
	p = clean(p)
	if p == "" {
		return s.keyPrefix
	}
	return s.keyPrefix + p + "/"
}

// relPath strips the key prefix from an object key.
func (s *Store) relPath(key string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, s.keyPrefix), "/")
}

// copySource builds the URL-encoded "bucket/key" CopySource value.
func (s *Store) copySource(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.bucket + "/" + strings.Join(segments, "/")
}

// isNotFound reports whether err is an S3 "no such key" style error.
// HeadObject reports NotFound, GetObject reports NoSuchKey.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	return false
}

// ============================================================================
// Queries
// ============================================================================

func (s *Store) head(ctx context.Context, p string) (*s3.HeadObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if clean(p) == "" {
		return nil, fmt.Errorf("storage root is a directory: %w", storage.ErrNotFound)
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(p)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("file %s: %w", p, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to head %s: %w", p, err)
	}
	return out, nil
}

func (s *Store) FileExists(ctx context.Context, p string) (bool, error) {
	if clean(p) == "" {
		return false, ctx.Err()
	}

	_, err := s.head(ctx, p)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) DirectoryExists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if clean(p) == "" {
		return true, nil
	}

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.dirKey(p)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("failed to list %s: %w", p, err)
	}
	return len(out.Contents) > 0, nil
}

func (s *Store) FileSize(ctx context.Context, p string) (int64, error) {
	out, err := s.head(ctx, p)
	if err != nil {
		return 0, err
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *Store) LastModified(ctx context.Context, p string) (time.Time, error) {
	out, err := s.head(ctx, p)
	if err != nil {
		return time.Time{}, err
	}
	return aws.ToTime(out.LastModified), nil
}

// MimeType returns the stored Content-Type when it is meaningful, otherwise
// it sniffs the first bytes of the object.
func (s *Store) MimeType(ctx context.Context, p string) (string, error) {
	out, err := s.head(ctx, p)
	if err != nil {
		return "", err
	}

	if ct := aws.ToString(out.ContentType); ct != "" && ct != "application/octet-stream" && ct != "binary/octet-stream" {
		if idx := strings.IndexByte(ct, ';'); idx >= 0 {
			ct = strings.TrimSpace(ct[:idx])
		}
		return ct, nil
	}

	r := newObjectReader(ctx, s, s.objectKey(p), aws.ToInt64(out.ContentLength))
	defer func() { _ = r.Close() }()

	return storage.DetectMimeType(p, r)
}
