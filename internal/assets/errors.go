package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	ErrAssetTooLarge = errors.New("assets: asset exceeds max size")
	ErrTimeout       = errors.New("assets: remote call timed out")
	ErrNotDirectory  = errors.New("assets: not a directory")
)

// FilesystemError is returned when the deploy root or one of its entries
// cannot be read. It always aborts the run before any network activity.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("assets: %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// AssetTooLargeError aborts enumeration when a single file is over the
// per-asset limit.
type AssetTooLargeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *AssetTooLargeError) Error() string {
	return fmt.Sprintf("assets: %q is %s, max per asset is %s",
		e.Path, humanize.IBytes(uint64(e.Size)), humanize.IBytes(uint64(e.Limit)))
}

func (e *AssetTooLargeError) Is(target error) bool {
	return target == ErrAssetTooLarge
}

// RemoteError wraps every failure reported by the Oracle so callers can
// tell remote problems apart from local ones.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("assets: remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Timeout reports whether the call ran past its per-call deadline.
func (e *RemoteError) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout)
}

// TimeoutError is carried inside a RemoteError when a single Oracle call
// exceeds the per-call timeout.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout || target == context.DeadlineExceeded
}

// temporary is implemented by remote errors that know whether a retry
// could succeed.
type temporary interface {
	Temporary() bool
}

// isRetryable decides whether a failed bucket upload is worth another
// attempt. Unknown errors (transport failures, resets) are retried.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var fsErr *FilesystemError
	if errors.As(err, &fsErr) {
		return false
	}
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return true
}
