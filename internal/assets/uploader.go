package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// credentialRefreshMargin is how long before expiry a credential is replaced.
const credentialRefreshMargin = 30 * time.Second

// callRemote runs one Oracle call under its own deadline and wraps any
// failure in a RemoteError.
func callRemote(ctx context.Context, op string, timeout time.Duration, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &RemoteError{Op: op, Err: ctxErr}
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &RemoteError{Op: op, Err: &TimeoutError{Op: op, Timeout: timeout}}
	}
	return &RemoteError{Op: op, Err: err}
}

// credentialSource hands out the upload credential, fetching a new one
// when the current one is about to expire.
type credentialSource struct {
	oracle  Oracle
	timeout time.Duration
	now     func() time.Time

	mu   sync.Mutex
	cred *Credential
}

func newCredentialSource(oracle Oracle, timeout time.Duration) *credentialSource {
	return &credentialSource{oracle: oracle, timeout: timeout, now: time.Now}
}

func (c *credentialSource) Get(ctx context.Context) (*Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cred.Expired(c.now(), credentialRefreshMargin) {
		return c.cred, nil
	}

	var cred *Credential
	err := callRemote(ctx, "upload credential", c.timeout, func(ctx context.Context) (err error) {
		cred, err = c.oracle.UploadCredential(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.Token == "" {
		return nil, &RemoteError{Op: "upload credential", Err: errors.New("empty credential")}
	}

	if c.cred != nil {
		slog.Debug("assets", "op", "upload credential", "status", "refreshed", "expires", cred.ExpiresAt)
	}
	c.cred = cred
	return cred, nil
}

// uploader sends buckets to the Oracle with a fixed number of workers.
// Buckets are disjoint, so workers share nothing but the credential source.
type uploader struct {
	oracle   Oracle
	creds    *credentialSource
	retry    RetryPolicy
	timeout  time.Duration
	workers  int
	progress Progress
}

// Upload returns once every bucket is stored, or with the first bucket
// failure after its retries are spent. A failure cancels the other workers.
func (u *uploader) Upload(ctx context.Context, buckets []*Bucket) error {
	u.progress.Start(len(buckets))
	defer u.progress.Finish()

	queue := newBucketQueue(buckets)

	eg, egCtx := errgroup.WithContext(ctx)
	for range min(max(u.workers, 1), len(buckets)) {
		eg.Go(func() error {
			for {
				if err := egCtx.Err(); err != nil {
					return err
				}
				idx, ok := queue.Next()
				if !ok {
					return nil
				}
				if err := u.uploadBucket(egCtx, idx, buckets[idx]); err != nil {
					return err
				}
			}
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (u *uploader) uploadBucket(ctx context.Context, idx int, bucket *Bucket) error {
	if len(bucket.Files) == 0 {
		slog.Debug("assets", "op", "upload", "bucket", idx, "status", "SKIPPED", "reason", "empty bucket")
		u.progress.BucketDone(BucketReport{Index: idx, Skipped: true})
		return nil
	}

	payload, err := buildPayload(bucket.Files)
	if err != nil {
		return err
	}

	size := bucket.Size()
	attempts := max(u.retry.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := u.retry.backoff(attempt - 1)
			slog.Warn("assets", "op", "upload", "bucket", idx, "attempt", attempt, "backoff", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return &RemoteError{Op: "upload", Err: ctx.Err()}
			case <-time.After(wait):
			}
		}

		cred, err := u.creds.Get(ctx)
		if err != nil {
			return err
		}

		lastErr = callRemote(ctx, "upload", u.timeout, func(ctx context.Context) error {
			return u.oracle.UploadBatch(ctx, cred, payload)
		})
		if lastErr == nil {
			slog.Info("assets", "op", "upload", "bucket", idx, "files", len(bucket.Files), "size", humanize.Bytes(uint64(size)), "attempt", attempt)
			u.progress.BucketDone(BucketReport{Index: idx, Files: len(bucket.Files), Bytes: size, Attempts: attempt})
			return nil
		}
		if !isRetryable(lastErr) {
			break
		}
	}

	slog.Error("assets", "op", "upload", "bucket", idx, "error", lastErr)
	return fmt.Errorf("bucket %d: %w", idx, lastErr)
}

func buildPayload(files []*AssetFile) ([]*UploadPayload, error) {
	payload := make([]*UploadPayload, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, &FilesystemError{Op: "read", Path: f.Path, Err: err}
		}
		payload = append(payload, &UploadPayload{
			Key:      f.Hash,
			Value:    base64.StdEncoding.EncodeToString(data),
			Metadata: UploadMetadata{ContentType: f.ContentType},
			Base64:   true,
		})
	}
	return payload, nil
}
