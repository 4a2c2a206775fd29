package modelstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	objects map[string][]byte
	gets    int
	err     error
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "not found"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestLocalFetch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ViT-B-32"), 0755))
	want := filepath.Join(root, "ViT-B-32", "visual.onnx")
	require.NoError(t, os.WriteFile(want, []byte("onnx"), 0644))

	store := NewLocal(root)
	got, err := store.Fetch(context.Background(), "ViT-B-32/visual.onnx")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = store.Fetch(context.Background(), "ViT-B-32/textual.onnx")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = store.Fetch(context.Background(), "ViT-B-32")
	assert.Error(t, err)
}

func TestS3FetchDownloadsOnceThenCaches(t *testing.T) {
	client := &mockS3{objects: map[string][]byte{
		"models/clip/RN50/visual.onnx": []byte("weights"),
	}}
	cache := t.TempDir()
	store := NewS3(client, "models", "clip", cache)

	path, err := store.Fetch(context.Background(), "RN50/visual.onnx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "models", "clip", "RN50", "visual.onnx"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "weights", string(data))

	again, err := store.Fetch(context.Background(), "RN50/visual.onnx")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, 1, client.gets)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no leftover temp files")
}

func TestS3FetchMissingObject(t *testing.T) {
	store := NewS3(&mockS3{objects: map[string][]byte{}}, "models", "", t.TempDir())

	_, err := store.Fetch(context.Background(), "RN50/textual.onnx")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestS3FetchOtherError(t *testing.T) {
	boom := errors.New("connection reset")
	store := NewS3(&mockS3{err: boom}, "models", "", t.TempDir())

	_, err := store.Fetch(context.Background(), "RN50/visual.onnx")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, os.ErrNotExist)
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri    string
		bucket string
		prefix string
		ok     bool
	}{
		{"s3://bucket/clip/models/", "bucket", "clip/models", true},
		{"s3://bucket", "bucket", "", true},
		{"s3://", "", "", false},
		{"s3:///prefix", "", "", false},
		{"/opt/models", "", "", false},
	}
	for _, tt := range tests {
		bucket, prefix, ok := ParseS3URI(tt.uri)
		assert.Equal(t, tt.ok, ok, tt.uri)
		assert.Equal(t, tt.bucket, bucket, tt.uri)
		assert.Equal(t, tt.prefix, prefix, tt.uri)
	}
}

func TestOpenLocalPath(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(context.Background(), dir, "")
	require.NoError(t, err)
	assert.IsType(t, &Local{}, store)
}
