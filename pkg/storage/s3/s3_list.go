package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/vfinder/pkg/storage"
)

// ListContents lists a directory.
//
// Shallow listings use the "/" delimiter so S3 folds nested keys into
// CommonPrefixes, which become directory entries. Deep listings scan every
// key under the prefix and synthesize entries for intermediate directories
// that only exist implicitly.
func (s *Store) ListContents(ctx context.Context, p string, deep bool) ([]storage.Entry, error) {
	if err := s.requireDirectory(ctx, p); err != nil {
		return nil, err
	}

	prefix := s.dirKey(p)
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	if !deep {
		input.Delimiter = aws.String("/")
	}

	entries := []storage.Entry{}
	seenDirs := make(map[string]bool)

	addDir := func(rel string) {
		if rel == "" || seenDirs[rel] {
			return
		}
		seenDirs[rel] = true
		entries = append(entries, storage.Entry{Type: storage.TypeDir, Path: rel})
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", p, err)
		}

		for _, cp := range page.CommonPrefixes {
			addDir(s.relPath(aws.ToString(cp.Prefix)))
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				// The directory's own marker
				continue
			}

			rel := s.relPath(key)
			if deep {
				// Implicit parents between the listed directory and the key
				base := clean(p)
				for _, dir := range intermediateDirs(base, rel) {
					addDir(dir)
				}
			}

			if strings.HasSuffix(key, "/") {
				addDir(rel)
				continue
			}

			entries = append(entries, storage.Entry{
				Type:         storage.TypeFile,
				Path:         rel,
				FileSize:     storage.Int64(aws.ToInt64(obj.Size)),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	return entries, nil
}

// intermediateDirs returns the directories strictly between base and rel.
//
//	intermediateDirs("a", "a/b/c/d.txt") == ["a/b", "a/b/c"]
func intermediateDirs(base, rel string) []string {
	rest := rel
	offset := 0
	if base != "" {
		rest = strings.TrimPrefix(rel, base+"/")
		offset = len(base) + 1
	}

	var dirs []string
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			dirs = append(dirs, rel[:offset+i])
		}
	}
	return dirs
}

// requireDirectory fails with ErrNotFound or ErrNotDirectory unless p is an
// existing directory.
func (s *Store) requireDirectory(ctx context.Context, p string) error {
	isDir, err := s.DirectoryExists(ctx, p)
	if err != nil {
		return err
	}
	if isDir {
		return nil
	}

	isFile, err := s.FileExists(ctx, p)
	if err != nil {
		return err
	}
	if isFile {
		return fmt.Errorf("%s: %w", p, storage.ErrNotDirectory)
	}
	return fmt.Errorf("directory %s: %w", p, storage.ErrNotFound)
}

// listKeys returns every object key below a directory prefix, markers included.
func (s *Store) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}

	return keys, nil
}
