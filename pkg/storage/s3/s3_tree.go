package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/vfinder/pkg/storage"
)

// CreateDirectory writes a zero-length "<dir>/" marker object.
func (s *Store) CreateDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clean(p) == "" {
		return nil
	}

	return s.putObject(ctx, s.dirKey(p), nil, "")
}

// Copy duplicates a file, or every object below a directory, server side.
func (s *Store) Copy(ctx context.Context, src, dst string) error {
	isFile, err := s.FileExists(ctx, src)
	if err != nil {
		return err
	}
	if isFile {
		return s.copyObject(ctx, s.objectKey(src), s.objectKey(dst))
	}

	keys, err := s.directoryKeys(ctx, src)
	if err != nil {
		return err
	}

	srcPrefix, dstPrefix := s.dirKey(src), s.dirKey(dst)
	for _, key := range keys {
		if err := s.copyObject(ctx, key, dstPrefix+strings.TrimPrefix(key, srcPrefix)); err != nil {
			return err
		}
	}

	// Keep the destination visible even when the source only had a marker
	return s.CreateDirectory(ctx, dst)
}

// Move copies then deletes the source. S3 has no rename.
func (s *Store) Move(ctx context.Context, src, dst string) error {
	isFile, err := s.FileExists(ctx, src)
	if err != nil {
		return err
	}

	if err := s.Copy(ctx, src, dst); err != nil {
		return err
	}

	if isFile {
		return s.deleteKeys(ctx, []string{s.objectKey(src)})
	}
	return s.DeleteDirectory(ctx, src)
}

func (s *Store) copyObject(ctx context.Context, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(s.copySource(srcKey)),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("object %s: %w", srcKey, storage.ErrNotFound)
		}
		return fmt.Errorf("failed to copy %s to %s: %w", srcKey, dstKey, err)
	}
	return nil
}

// Delete removes a single file.
func (s *Store) Delete(ctx context.Context, p string) error {
	if _, err := s.head(ctx, p); err != nil {
		return err
	}
	return s.deleteKeys(ctx, []string{s.objectKey(p)})
}

// DeleteDirectory removes every object below the directory, marker included.
func (s *Store) DeleteDirectory(ctx context.Context, p string) error {
	if clean(p) == "" {
		return fmt.Errorf("cannot delete storage root")
	}

	keys, err := s.directoryKeys(ctx, p)
	if err != nil {
		return err
	}
	return s.deleteKeys(ctx, keys)
}

// directoryKeys lists every key below an existing directory.
func (s *Store) directoryKeys(ctx context.Context, p string) ([]string, error) {
	keys, err := s.listKeys(ctx, s.dirKey(p))
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("directory %s: %w", p, storage.ErrNotFound)
	}
	return keys, nil
}

// deleteKeys removes objects in batches of at most 1000 keys.
func (s *Store) deleteKeys(ctx context.Context, keys []string) error {
	var errs []error

	for i := 0; i < len(keys); i += maxDeleteBatch {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(i+maxDeleteBatch, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-i)
		for _, key := range keys[i:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects: %w", err)
		}

		for _, deleteErr := range result.Errors {
			errs = append(errs, fmt.Errorf("%s: %s: %s",
				aws.ToString(deleteErr.Key), aws.ToString(deleteErr.Code), aws.ToString(deleteErr.Message)))
		}
	}

	return errors.Join(errs...)
}

// Close is a no-op, the S3 client holds no per-store resources.
func (s *Store) Close() error {
	return nil
}
