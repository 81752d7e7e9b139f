package export

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/openmined/pagesync/internal/assets"
)

var (
	ErrNoTarget     = errors.New("export: target missing")
	ErrInvalidS3URL = errors.New("export: s3 url must look like s3://bucket/key")
)

// Record is the artifact written after a deploy run
type Record struct {
	RunID         string          `json:"run_id"`
	Project       string          `json:"project"`
	Branch        string          `json:"branch"`
	DeploymentID  string          `json:"deployment_id,omitempty"`
	DeploymentURL string          `json:"deployment_url,omitempty"`
	DryRun        bool            `json:"dry_run"`
	Cached        int             `json:"cached"`
	Uploaded      int             `json:"uploaded"`
	CreatedAt     time.Time       `json:"created_at"`
	Manifest      assets.Manifest `json:"manifest"`
}

// Writer stores a Record and returns where it went
type Writer interface {
	Write(ctx context.Context, record *Record) (string, error)
}

// New picks a writer for target: s3://bucket/key goes to object storage,
// anything else is a local path.
func New(ctx context.Context, target string, s3cfg *S3Config) (Writer, error) {
	if target == "" {
		return nil, ErrNoTarget
	}
	if strings.HasPrefix(target, "s3://") {
		bucket, key, err := ParseS3URL(target)
		if err != nil {
			return nil, err
		}
		return NewS3Writer(ctx, bucket, key, s3cfg)
	}
	return NewFileWriter(target), nil
}

// ParseS3URL splits s3://bucket/key
func ParseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidS3URL, raw)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidS3URL, raw)
	}
	return bucket, key, nil
}

func encodeRecord(record *Record) ([]byte, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return append(data, '\n'), nil
}
