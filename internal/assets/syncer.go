package assets

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// Syncer brings the remote content index up to date with a local directory
// and produces the deploy manifest.
type Syncer struct {
	oracle      Oracle
	limits      Limits
	retry       RetryPolicy
	callTimeout time.Duration
	progress    Progress
	dryRun      bool
	ignores     []string
}

type Option func(*Syncer)

func WithLimits(limits Limits) Option {
	return func(s *Syncer) { s.limits = limits.withDefaults() }
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(s *Syncer) { s.retry = policy }
}

func WithCallTimeout(timeout time.Duration) Option {
	return func(s *Syncer) {
		if timeout > 0 {
			s.callTimeout = timeout
		}
	}
}

func WithProgress(progress Progress) Option {
	return func(s *Syncer) {
		if progress != nil {
			s.progress = progress
		}
	}
}

// WithDryRun stops after the diff: nothing is uploaded or committed.
func WithDryRun(dryRun bool) Option {
	return func(s *Syncer) { s.dryRun = dryRun }
}

// WithIgnorePatterns adds doublestar patterns to the built-in exclusions.
func WithIgnorePatterns(patterns ...string) Option {
	return func(s *Syncer) { s.ignores = append(s.ignores, patterns...) }
}

func NewSyncer(oracle Oracle, opts ...Option) *Syncer {
	s := &Syncer{
		oracle:      oracle,
		limits:      DefaultLimits(),
		retry:       DefaultRetryPolicy(),
		callTimeout: DefaultCallTimeout,
		progress:    nopProgress{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot is the local half of a sync: every eligible file under Root,
// hashed, and the manifest built from them.
type Snapshot struct {
	Root     string
	Files    []*AssetFile
	Manifest Manifest
}

// Empty reports whether nothing under the root is deployable.
func (s *Snapshot) Empty() bool {
	return len(s.Files) == 0
}

// Sync runs Prepare and Push back to back.
func (s *Syncer) Sync(ctx context.Context, root string) (*SyncResult, error) {
	snap, err := s.Prepare(ctx, root)
	if err != nil {
		return nil, err
	}
	return s.Push(ctx, snap)
}

// Prepare enumerates and hashes root without touching the Oracle. Every
// local failure (unreadable tree, oversized asset, bad pattern) surfaces
// here.
func (s *Syncer) Prepare(ctx context.Context, root string) (*Snapshot, error) {
	ignore := NewIgnoreList(root, s.ignores...)
	if err := ignore.Load(); err != nil {
		return nil, err
	}

	files, err := NewScanner(root, ignore, s.limits).Scan()
	if err != nil {
		return nil, err
	}
	if err := HashFiles(ctx, files); err != nil {
		return nil, err
	}

	return &Snapshot{Root: root, Files: files, Manifest: BuildManifest(files)}, nil
}

// Push uploads whatever the remote is missing from snap and commits the
// uploaded hashes. The commit only happens after every bucket is stored.
func (s *Syncer) Push(ctx context.Context, snap *Snapshot) (*SyncResult, error) {
	files := snap.Files
	result := &SyncResult{
		DryRun:   s.dryRun,
		Manifest: snap.Manifest,
	}
	if snap.Empty() {
		slog.Warn("assets", "op", "sync", "status", "SKIPPED", "reason", "no files", "root", snap.Root)
		return result, nil
	}

	creds := newCredentialSource(s.oracle, s.callTimeout)
	cred, err := creds.Get(ctx)
	if err != nil {
		return nil, err
	}

	var missingHashes []string
	err = callRemote(ctx, "check missing", s.callTimeout, func(ctx context.Context) (err error) {
		missingHashes, err = s.oracle.CheckMissing(ctx, cred, uniqueHashes(files))
		return err
	})
	if err != nil {
		return nil, err
	}

	missing := FilterMissing(files, missingHashes)
	result.Cached = len(files) - len(missing)
	result.Uploaded = len(missing)
	slog.Info("assets", "op", "check missing", "files", len(files), "cached", result.Cached, "missing", result.Uploaded)

	if len(missing) == 0 {
		slog.Info("assets", "op", "upload", "status", "SKIPPED", "reason", "nothing missing")
		return result, nil
	}

	unique := uniqueByHash(missing)
	buckets := PackBuckets(unique, s.limits)
	for _, b := range buckets {
		if len(b.Files) > 0 {
			result.Buckets++
		}
		result.UploadedBytes += b.Size()
	}
	slog.Info("assets", "op", "pack", "assets", len(unique), "buckets", result.Buckets, "size", humanize.Bytes(uint64(result.UploadedBytes)))

	if s.dryRun {
		return result, nil
	}

	up := &uploader{
		oracle:   s.oracle,
		creds:    creds,
		retry:    s.retry,
		timeout:  s.callTimeout,
		workers:  s.limits.Concurrency,
		progress: s.progress,
	}
	if err := up.Upload(ctx, buckets); err != nil {
		return nil, err
	}

	if err := s.commit(ctx, creds, uniqueHashes(unique)); err != nil {
		return nil, err
	}

	slog.Info("assets", "op", "sync", "status", "completed", "cached", result.Cached, "uploaded", result.Uploaded)
	return result, nil
}

func (s *Syncer) commit(ctx context.Context, creds *credentialSource, hashes []string) error {
	cred, err := creds.Get(ctx)
	if err != nil {
		return err
	}
	return callRemote(ctx, "commit hashes", s.callTimeout, func(ctx context.Context) error {
		return s.oracle.CommitHashes(ctx, cred, hashes)
	})
}
