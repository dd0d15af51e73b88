package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/vfinder/pkg/storage"
)

// Write uploads data with a single PutObject.
func (s *Store) Write(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clean(p) == "" {
		return fmt.Errorf("cannot write to storage root")
	}

	return s.putObject(ctx, s.objectKey(p), data, contentTypeFor(p))
}

// WriteStream uploads the content of r.
//
// Content that fits in one part is sent with PutObject. Larger content is
// streamed part by part with a multipart upload, so memory use is bounded
// by the part size regardless of the file size.
func (s *Store) WriteStream(ctx context.Context, p string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clean(p) == "" {
		return fmt.Errorf("cannot write to storage root")
	}

	key := s.objectKey(p)
	contentType := contentTypeFor(p)

	first, err := readPart(r, s.partSize)
	if err != nil {
		return fmt.Errorf("failed to read content for %s: %w", p, err)
	}
	if int64(len(first)) < s.partSize {
		return s.putObject(ctx, key, first, contentType)
	}

	return s.multipartUpload(ctx, key, contentType, first, r)
}

func (s *Store) putObject(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

// multipartUpload streams r as a multipart upload whose first part has
// already been read. The upload is aborted on any failure so no orphaned
// parts are left behind.
func (s *Store) multipartUpload(ctx context.Context, key, contentType string, first []byte, r io.Reader) (err error) {
	// ========================================================================
	// Step 1: Begin the upload session
	// ========================================================================

	createInput := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		createInput.ContentType = aws.String(contentType)
	}

	created, err := s.client.CreateMultipartUpload(ctx, createInput)
	if err != nil {
		return fmt.Errorf("failed to create multipart upload: %w", err)
	}
	uploadID := created.UploadId

	defer func() {
		if err != nil {
			_, _ = s.client.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
				Bucket:   aws.String(s.bucket),
				Key:      aws.String(key),
				UploadId: uploadID,
			})
		}
	}()

	// ========================================================================
	// Step 2: Upload parts sequentially
	// ========================================================================

	var completed []types.CompletedPart
	part := first
	for partNumber := int32(1); len(part) > 0; partNumber++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(s.bucket),
			Key:        aws.String(key),
			UploadId:   uploadID,
			PartNumber: aws.Int32(partNumber),
			Body:       bytes.NewReader(part),
		})
		if err != nil {
			return fmt.Errorf("failed to upload part %d: %w", partNumber, err)
		}

		completed = append(completed, types.CompletedPart{
			ETag:       out.ETag,
			PartNumber: aws.Int32(partNumber),
		})

		part, err = readPart(r, s.partSize)
		if err != nil {
			return fmt.Errorf("failed to read part %d: %w", partNumber+1, err)
		}
	}

	// ========================================================================
	// Step 3: Complete the upload
	// ========================================================================

	_, err = s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		UploadId:        uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	return nil
}

// readPart reads up to size bytes. A short or empty result means r is drained.
func readPart(r io.Reader, size int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, size))
}

func contentTypeFor(p string) string {
	return storage.MimeTypeByExtension(p)
}
