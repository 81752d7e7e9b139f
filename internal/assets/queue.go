package assets

import (
	"container/heap"
	"sync"
)

// bucketQueue hands out bucket indices largest bucket first so the
// longest uploads start early. It is safe for concurrent use.
type bucketQueue struct {
	mu    sync.Mutex
	items bucketHeap
}

type bucketItem struct {
	index int
	size  int64
}

// bucketHeap implements heap.Interface, ties keep packing order
type bucketHeap []bucketItem

func (h bucketHeap) Len() int { return len(h) }

func (h bucketHeap) Less(i, j int) bool {
	if h[i].size != h[j].size {
		return h[i].size > h[j].size
	}
	return h[i].index < h[j].index
}

func (h bucketHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *bucketHeap) Push(x any) {
	*h = append(*h, x.(bucketItem))
}

func (h *bucketHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func newBucketQueue(buckets []*Bucket) *bucketQueue {
	items := make(bucketHeap, 0, len(buckets))
	for i, b := range buckets {
		items = append(items, bucketItem{index: i, size: b.Size()})
	}
	heap.Init(&items)
	return &bucketQueue{items: items}
}

func (q *bucketQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Next returns the next bucket index, false once the queue is drained
func (q *bucketQueue) Next() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == 0 {
		return 0, false
	}
	return heap.Pop(&q.items).(bucketItem).index, true
}
