package assets

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func bucketOf(sizes ...int64) *Bucket {
	b := &Bucket{}
	for _, s := range sizes {
		b.Files = append(b.Files, &AssetFile{Size: s})
	}
	return b
}

func TestBucketQueue_LargestFirst(t *testing.T) {
	q := newBucketQueue([]*Bucket{
		bucketOf(10),
		bucketOf(),
		bucketOf(30, 5),
		bucketOf(10),
		bucketOf(20),
	})
	assert.Equal(t, 5, q.Len())

	var order []int
	for {
		idx, ok := q.Next()
		if !ok {
			break
		}
		order = append(order, idx)
	}
	assert.Equal(t, []int{2, 4, 0, 3, 1}, order)
	assert.Zero(t, q.Len())
}

func TestBucketQueue_Concurrent(t *testing.T) {
	buckets := make([]*Bucket, 100)
	for i := range buckets {
		buckets[i] = bucketOf(int64(i))
	}
	q := newBucketQueue(buckets)

	var mu sync.Mutex
	seen := map[int]bool{}
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx, ok := q.Next()
				if !ok {
					return
				}
				mu.Lock()
				seen[idx] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 100)
}
