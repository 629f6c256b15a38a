// Package sequence tracks the newest version seen per key.
//
// Both sides of a placement save use it: the lineup store to ignore
// completions of superseded saves, and the memory repository to reject
// writes older than the stored version.
package sequence

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker records a monotonic version per key.
type Tracker interface {
	// Advance atomically records version for key if it is newer than the
	// recorded one. Returns true if it was recorded.
	Advance(ctx context.Context, key string, version uint64) bool

	// Latest returns the recorded version for key, or zero.
	Latest(ctx context.Context, key string) uint64

	// IsLatest reports whether version is the recorded version for key.
	IsLatest(ctx context.Context, key string, version uint64) bool

	// Forget drops key so the next Advance starts from zero.
	Forget(ctx context.Context, key string)

	Size() int64
}

// node is one key in the recency list.
type node struct {
	key     string
	version uint64
	next    *node
}

func (n *node) reset() {
	n.key = ""
	n.version = 0
	n.next = nil
}

// inMemoryTracker keeps versions in a map. In bounded mode the map values
// also form a linked list, newest first, so the oldest key can be evicted.
type inMemoryTracker struct {
	mu       sync.RWMutex
	entries  map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryTracker creates a tracker. The default is unbounded: a lineup
// has a few dozen players at most.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{}
	for _, opt := range opts {
		opt(t)
	}
	t.entries = make(map[string]*node)
	t.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return t
}

func (t *inMemoryTracker) Advance(_ context.Context, key string, version uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n, ok := t.entries[key]; ok {
		if version <= n.version {
			return false
		}
		n.version = version
		t.touch(n)
		return true
	}

	if t.maxSize > 0 && len(t.entries) >= t.maxSize {
		t.evictOldest()
	}

	n := t.nodePool.Get().(*node)
	n.key = key
	n.version = version
	n.next = t.head
	t.head = n
	t.entries[key] = n
	t.size.Add(1)
	return true
}

func (t *inMemoryTracker) Latest(_ context.Context, key string) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n, ok := t.entries[key]; ok {
		return n.version
	}
	return 0
}

func (t *inMemoryTracker) IsLatest(ctx context.Context, key string, version uint64) bool {
	return t.Latest(ctx, key) == version
}

func (t *inMemoryTracker) Forget(_ context.Context, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.entries[key]
	if !ok {
		return
	}
	delete(t.entries, key)
	t.unlink(n)
	n.reset()
	t.nodePool.Put(n)
	t.size.Add(-1)
}

func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}

// touch moves n to the head of the list. Must be called with t.mu held.
func (t *inMemoryTracker) touch(n *node) {
	if t.head == n {
		return
	}
	t.unlink(n)
	n.next = t.head
	t.head = n
}

// unlink removes n from the list. Must be called with t.mu held.
func (t *inMemoryTracker) unlink(n *node) {
	if t.head == n {
		t.head = n.next
		n.next = nil
		return
	}
	for cur := t.head; cur != nil; cur = cur.next {
		if cur.next == n {
			cur.next = n.next
			n.next = nil
			return
		}
	}
}

// evictOldest removes the tail of the list. Must be called with t.mu held.
func (t *inMemoryTracker) evictOldest() {
	if t.head == nil {
		return
	}
	var prev *node
	cur := t.head
	for cur.next != nil {
		prev = cur
		cur = cur.next
	}
	if prev == nil {
		t.head = nil
	} else {
		prev.next = nil
	}
	delete(t.entries, cur.key)
	cur.reset()
	t.nodePool.Put(cur)
	t.size.Add(-1)
}
