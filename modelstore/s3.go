package modelstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"clipsim/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client abstracts the S3 API operations used by [S3Store].
// The [s3.Client] type satisfies this interface.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store fetches model files from Amazon S3 or any S3-compatible object
// store and caches them under a local directory.
type S3Store struct {
	client   S3Client
	bucket   string
	prefix   string
	cacheDir string
}

var _ Store = (*S3Store)(nil)

// NewS3 creates an S3-backed store.
// Prefix is prepended to all object keys; pass "" for no prefix.
func NewS3(client S3Client, bucket, prefix, cacheDir string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix, cacheDir: cacheDir}
}

// key builds the full S3 object key for the given model path.
func (s *S3Store) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

// Fetch returns the cached copy of path, downloading it first if needed
func (s *S3Store) Fetch(ctx context.Context, path string) (string, error) {
	local := filepath.Join(s.cacheDir, s.bucket, filepath.FromSlash(s.key(path)))
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		logging.DebugLog("Using cached model file %s", local)
		return local, nil
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return "", fmt.Errorf("modelstore: s3://%s/%s: %w", s.bucket, s.key(path), os.ErrNotExist)
		}
		return "", fmt.Errorf("modelstore: get s3://%s/%s: %w", s.bucket, s.key(path), err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return "", fmt.Errorf("modelstore: create cache dir: %w", err)
	}

	// Write to a temp file first so an interrupted download never
	// leaves a truncated file behind the cache path.
	tmp, err := os.CreateTemp(filepath.Dir(local), filepath.Base(local)+".part-*")
	if err != nil {
		return "", fmt.Errorf("modelstore: create temp file: %w", err)
	}
	n, copyErr := io.Copy(tmp, out.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("modelstore: download %s: %w", path, errors.Join(copyErr, closeErr))
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("modelstore: install %s: %w", path, err)
	}

	logging.LogInfo("Downloaded s3://%s/%s (%d bytes)", s.bucket, s.key(path), n)
	return local, nil
}

// isS3NotFound reports whether err indicates the S3 object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
