package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/vfinder/pkg/storage"
)

// ReadStream returns a seekable reader for the object at p.
//
// The object is not downloaded up front. Each Seek discards the current
// response body and the next Read issues a ranged GetObject from the new
// offset, so http.ServeContent can serve byte ranges without fetching the
// whole object.
func (s *Store) ReadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	out, err := s.head(ctx, p)
	if err != nil {
		return nil, err
	}

	return newObjectReader(ctx, s, s.objectKey(p), aws.ToInt64(out.ContentLength)), nil
}

// objectReader is a lazy io.ReadSeekCloser over a single S3 object.
type objectReader struct {
	ctx    context.Context
	store  *Store
	key    string
	size   int64
	offset int64
	body   io.ReadCloser
}

func newObjectReader(ctx context.Context, s *Store, key string, size int64) *objectReader {
	return &objectReader{ctx: ctx, store: s, key: key, size: size}
}

func (r *objectReader) Read(p []byte) (int, error) {
	if r.offset >= r.size {
		return 0, io.EOF
	}

	if r.body == nil {
		out, err := r.store.client.GetObject(r.ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.store.bucket),
			Key:    aws.String(r.key),
			Range:  aws.String(fmt.Sprintf("bytes=%d-", r.offset)),
		})
		if err != nil {
			if isNotFound(err) {
				return 0, fmt.Errorf("object %s: %w", r.key, storage.ErrNotFound)
			}
			return 0, fmt.Errorf("failed to get object %s: %w", r.key, err)
		}
		r.body = out.Body
	}

	n, err := r.body.Read(p)
	r.offset += int64(n)
	return n, err
}

func (r *objectReader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.offset + offset
	case io.SeekEnd:
		target = r.size + offset
	default:
		return 0, errors.New("invalid whence")
	}

	if target < 0 {
		return 0, errors.New("negative position")
	}

	if target != r.offset && r.body != nil {
		_ = r.body.Close()
		r.body = nil
	}
	r.offset = target
	return target, nil
}

func (r *objectReader) Close() error {
	if r.body == nil {
		return nil
	}
	err := r.body.Close()
	r.body = nil
	return err
}
