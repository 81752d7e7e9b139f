package assets

import (
	"context"
	"time"
)

// AssetFile is one local file that takes part in a deploy.
type AssetFile struct {
	Path        string // absolute path on disk
	URL         string // "/"-rooted path the file is served at
	ContentType string
	Size        int64
	Hash        string // filled in by HashFiles
}

// Manifest maps served URL to content hash for every file in the deploy,
// uploaded or not.
type Manifest map[string]string

// Bucket is one group of files uploaded in a single call.
type Bucket struct {
	Files          []*AssetFile
	RemainingBytes int64
}

func (b *Bucket) Size() int64 {
	var n int64
	for _, f := range b.Files {
		n += f.Size
	}
	return n
}

// SyncResult is what a run hands to the deployment step.
type SyncResult struct {
	Cached        int
	Uploaded      int
	UploadedBytes int64
	Buckets       int
	DryRun        bool
	Manifest      Manifest
}

// Credential is the short-lived token used for asset calls.
type Credential struct {
	Token     string
	ExpiresAt time.Time // zero when the remote did not say
}

// Expired reports whether the credential is unusable within the given margin.
func (c *Credential) Expired(now time.Time, margin time.Duration) bool {
	if c == nil || c.Token == "" {
		return true
	}
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(c.ExpiresAt)
}

// UploadMetadata travels with each uploaded asset.
type UploadMetadata struct {
	ContentType string `json:"contentType"`
}

// UploadPayload is the wire shape of one asset in an upload batch.
type UploadPayload struct {
	Key      string         `json:"key"`
	Value    string         `json:"value"`
	Metadata UploadMetadata `json:"metadata"`
	Base64   bool           `json:"base64"`
}

// Oracle is the remote content index the engine syncs against.
type Oracle interface {
	// UploadCredential returns a fresh short-lived credential.
	UploadCredential(ctx context.Context) (*Credential, error)
	// CheckMissing returns the subset of hashes the remote does not have.
	CheckMissing(ctx context.Context, cred *Credential, hashes []string) ([]string, error)
	// UploadBatch stores one bucket worth of assets.
	UploadBatch(ctx context.Context, cred *Credential, batch []*UploadPayload) error
	// CommitHashes marks hashes as durable in the remote index.
	CommitHashes(ctx context.Context, cred *Credential, hashes []string) error
}

// BucketReport describes one processed bucket.
type BucketReport struct {
	Index    int
	Files    int
	Bytes    int64
	Attempts int
	Skipped  bool
}

// Progress receives upload progress. Calls may arrive from several
// goroutines.
type Progress interface {
	Start(buckets int)
	BucketDone(report BucketReport)
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(int)               {}
func (nopProgress) BucketDone(BucketReport) {}
func (nopProgress) Finish()                 {}
