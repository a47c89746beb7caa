package watcher

import "sync"

// Queue is a FIFO of transaction hashes shared between one producer and one
// consumer worker. A capacity > 0 bounds the queue: pushing into a full queue
// evicts the oldest entry, so the queue models recent activity rather than
// complete history. Capacity 0 means unbounded.
type Queue struct {
	mu       sync.Mutex
	buf      []string
	head     int
	capacity int
}

// NewQueue creates a queue. capacity <= 0 means unbounded.
func NewQueue(capacity int) *Queue {
	return &Queue{capacity: capacity}
}

// Push appends a hash. If the queue is bounded and full, the oldest entry is
// dropped first and returned with evicted=true. An evicted hash is simply
// never resolved; that is not an error.
func (q *Queue) Push(hash string) (dropped string, evicted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.capacity > 0 && len(q.buf)-q.head >= q.capacity {
		dropped = q.buf[q.head]
		q.head++
		evicted = true
	}
	q.buf = append(q.buf, hash)
	q.maybeCompact()
	return dropped, evicted
}

// Front returns the oldest hash without removing it.
func (q *Queue) Front() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.buf) {
		return "", false
	}
	return q.buf[q.head], true
}

// Pop removes and returns the oldest hash.
func (q *Queue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.buf) {
		return "", false
	}
	v := q.buf[q.head]
	q.head++
	q.maybeCompact()
	return v, true
}

// Len returns the number of queued hashes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) - q.head
}

// maybeCompact reclaims the popped prefix once it dominates the buffer.
// Caller must hold q.mu.
func (q *Queue) maybeCompact() {
	if q.head < 1024 || q.head*2 < len(q.buf) {
		return
	}
	n := len(q.buf) - q.head
	newBuf := make([]string, n)
	copy(newBuf, q.buf[q.head:])
	q.buf = newBuf
	q.head = 0
}
