package export

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/openmined/pagesync/internal/assets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *Record {
	return &Record{
		RunID:     "run-1",
		Project:   "my-site",
		Branch:    "main",
		Cached:    1,
		Uploaded:  1,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Manifest: assets.Manifest{
			"/index.html":   "aaaa",
			"/css/site.css": "bbbb",
		},
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://deploys/my-site/manifest.json")
	require.NoError(t, err)
	assert.Equal(t, "deploys", bucket)
	assert.Equal(t, "my-site/manifest.json", key)

	for _, raw := range []string{
		"s3://deploys",
		"s3://deploys/",
		"s3://deploys/dir/",
		"s3:///key",
		"https://deploys/key",
	} {
		_, _, err := ParseS3URL(raw)
		assert.ErrorIs(t, err, ErrInvalidS3URL, raw)
	}
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "manifest.json")

	location, err := NewFileWriter(path).Write(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Equal(t, path, location)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Record
	require.NoError(t, json.Unmarshal(data, &got))
	want := testRecord()
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.Manifest, got.Manifest)
	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Uploaded, got.Uploaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are renamed away")
}

func TestFileWriter_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	_, err := NewFileWriter(path).Write(context.Background(), testRecord())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-1"`)
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Writer(t *testing.T) {
	fake := &fakeS3{}
	w := &S3Writer{client: fake, bucket: "deploys", key: "my-site/run-1.json"}

	location, err := w.Write(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Equal(t, "s3://deploys/my-site/run-1.json", location)

	assert.Equal(t, "deploys", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "my-site/run-1.json", aws.ToString(fake.input.Key))
	assert.Equal(t, "application/json", aws.ToString(fake.input.ContentType))
	assert.Equal(t, int64(len(fake.body)), aws.ToInt64(fake.input.ContentLength))

	var got Record
	require.NoError(t, json.Unmarshal(fake.body, &got))
	assert.Equal(t, testRecord().Manifest, got.Manifest)
}

func TestS3Writer_Error(t *testing.T) {
	fake := &fakeS3{err: assert.AnError}
	w := &S3Writer{client: fake, bucket: "deploys", key: "m.json"}

	_, err := w.Write(context.Background(), testRecord())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNew(t *testing.T) {
	_, err := New(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrNoTarget)

	w, err := New(context.Background(), filepath.Join(t.TempDir(), "m.json"), nil)
	require.NoError(t, err)
	assert.IsType(t, &FileWriter{}, w)

	w, err = New(context.Background(), "s3://deploys/m.json", &S3Config{
		Region:    "us-east-1",
		AccessKey: "AKID",
		SecretKey: "SECRET",
		Endpoint:  "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	assert.IsType(t, &S3Writer{}, w)

	_, err = New(context.Background(), "s3://deploys/", nil)
	assert.ErrorIs(t, err, ErrInvalidS3URL)
}
