package assets

import "time"

const (
	MaxAssetSize       = 25 * 1024 * 1024 // 25MiB per file
	MaxBucketSize      = 50 * 1024 * 1024 // 50MiB per upload bucket
	MaxBucketCount     = 3                // concurrent upload buckets
	MaxBucketFileCount = 5000

	DefaultCallTimeout = 30 * time.Second
)

// Limits bounds enumeration and packing.
type Limits struct {
	MaxAssetSize       int64
	MaxBucketSize      int64
	MaxBucketFileCount int
	Concurrency        int
}

func DefaultLimits() Limits {
	return Limits{
		MaxAssetSize:       MaxAssetSize,
		MaxBucketSize:      MaxBucketSize,
		MaxBucketFileCount: MaxBucketFileCount,
		Concurrency:        MaxBucketCount,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxAssetSize <= 0 {
		l.MaxAssetSize = d.MaxAssetSize
	}
	if l.MaxBucketSize <= 0 {
		l.MaxBucketSize = d.MaxBucketSize
	}
	if l.MaxBucketFileCount <= 0 {
		l.MaxBucketFileCount = d.MaxBucketFileCount
	}
	if l.Concurrency <= 0 {
		l.Concurrency = d.Concurrency
	}
	return l
}

// RetryPolicy controls per-bucket upload retries.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
	}
}

// backoff returns the wait before the given retry (1-based).
func (p RetryPolicy) backoff(retry int) time.Duration {
	d := p.InitialInterval
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= p.MaxInterval {
			return p.MaxInterval
		}
	}
	return min(d, p.MaxInterval)
}
