// Package syncqueue is the thread-safe priority queue the producer feeds
// and the consumer drains each tick: a container/heap priority queue
// with a dedupe set and a blocking Get, ordered by (priority, path).
package syncqueue

import (
	"container/heap"
	"sync"
)

type entry struct {
	item  Item
	index int
}

type innerHeap []*entry

func (h innerHeap) Len() int { return len(h) }

func (h innerHeap) Less(i, j int) bool {
	if h[i].item.Priority != h[j].item.Priority {
		return h[i].item.Priority < h[j].item.Priority
	}
	return h[i].item.Change.Path < h[j].item.Change.Path
}

func (h innerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *innerHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *innerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Queue is a thread-safe (priority, path) min-heap with path-level
// deduplication and a blocking Get.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	heap   innerHeap
	byPath map[string]*entry
	closed bool
}

// New creates an empty Queue.
func New() *Queue {
	q := &Queue{byPath: make(map[string]*entry)}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(&q.heap)
	return q
}

// Len reports the number of distinct paths currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byPath)
}

// Contains reports whether path has a pending entry (the dedupe set).
func (q *Queue) Contains(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.byPath[path]
	return ok
}

// Put enqueues item, unless its path is already pending — in which case it
// is a no-op, per spec: the first enqueue for a path wins until it's
// dequeued.
func (q *Queue) Put(item Item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.byPath[item.Change.Path]; exists {
		return
	}
	e := &entry{item: item}
	heap.Push(&q.heap, e)
	q.byPath[item.Change.Path] = e
	q.cond.Signal()
}

// ForcePut replaces any pending entry for item's path with item, reordering
// the heap, then inserts it. Used when a path's priority or payload must be
// refreshed regardless of what's already queued.
func (q *Queue) ForcePut(item Item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existing, ok := q.byPath[item.Change.Path]; ok {
		heap.Remove(&q.heap, existing.index)
		delete(q.byPath, item.Change.Path)
	}
	e := &entry{item: item}
	heap.Push(&q.heap, e)
	q.byPath[item.Change.Path] = e
	q.cond.Signal()
}

// Get blocks until an item is available, pops the highest-priority one,
// and returns it. Get returns false only if Close was called and the
// queue drained.
func (q *Queue) Get() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.heap.Len() == 0 {
		if q.closed {
			return Item{}, false
		}
		q.cond.Wait()
	}

	e := heap.Pop(&q.heap).(*entry)
	delete(q.byPath, e.item.Change.Path)
	return e.item, true
}

// TryGet pops the highest-priority item without blocking, returning false
// if the queue is currently empty.
func (q *Queue) TryGet() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.heap.Len() == 0 {
		return Item{}, false
	}
	e := heap.Pop(&q.heap).(*entry)
	delete(q.byPath, e.item.Change.Path)
	return e.item, true
}

// Close wakes any blocked Get calls so they can observe the queue is done
// accepting new work (used when the owning tick is shutting down).
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
