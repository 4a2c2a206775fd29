// Package modelstore locates pretrained model files.
//
// A [Store] maps a slash-separated file path such as "ViT-L-14/visual.onnx"
// to a file on local disk. [Local] reads straight from a directory; [S3Store]
// downloads from a bucket once and serves later requests from a local cache.
//
//	store, err := modelstore.Open(ctx, "s3://models/clip", cacheDir)
//	path, err := store.Fetch(ctx, "ViT-B-32/visual.onnx")
package modelstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store resolves a model file to a readable local path.
// Missing files yield an error wrapping os.ErrNotExist.
type Store interface {
	Fetch(ctx context.Context, path string) (string, error)
}

// Local serves model files from a directory tree
type Local struct {
	Root string
}

// NewLocal creates a store rooted at dir
func NewLocal(dir string) *Local {
	return &Local{Root: dir}
}

// Fetch returns the on-disk path of the requested file
func (l *Local) Fetch(_ context.Context, path string) (string, error) {
	full := filepath.Join(l.Root, filepath.FromSlash(path))
	info, err := os.Stat(full)
	if err != nil {
		return "", fmt.Errorf("modelstore: %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("modelstore: %s is a directory", path)
	}
	return full, nil
}

// Open returns an S3Store for s3://bucket/prefix URIs and a Local store otherwise.
// S3 credentials and region come from the default AWS configuration chain.
func Open(ctx context.Context, uri, cacheDir string) (Store, error) {
	bucket, prefix, ok := ParseS3URI(uri)
	if !ok {
		return NewLocal(uri), nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("modelstore: load AWS config: %w", err)
	}
	return NewS3(s3.NewFromConfig(cfg), bucket, prefix, cacheDir), nil
}

// ParseS3URI splits s3://bucket/prefix into its parts
func ParseS3URI(uri string) (bucket, prefix string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found || rest == "" {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", false
	}
	return bucket, strings.Trim(prefix, "/"), true
}
