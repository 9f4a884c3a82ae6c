package reverse

import (
	"time"

	"github.com/agentix/droidportal/internal/rpc"
)

const (
	// queueMax bounds the pending queue; arrivals beyond it are rejected
	// with a queue-full error rather than silently dropped.
	queueMax = 10
	// pendingTTL is how long a queued request stays eligible for drain.
	pendingTTL = 30 * time.Second
)

// pending is one tool-call request held until the handshake completes.
type pending struct {
	req        rpc.Request
	enqueuedAt time.Time
}

func (p pending) expired(now time.Time) bool {
	return now.Sub(p.enqueuedAt) > pendingTTL
}

// pendingQueue is the bounded FIFO of requests that arrived before Ready.
// Not goroutine-safe; the client touches it only from the read loop.
type pendingQueue struct {
	items []pending
	now   func() time.Time
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{now: time.Now}
}

// Push enqueues a request. Expired entries are purged first, so a queue
// full of stale requests still accepts new arrivals. It reports false when
// the queue is at capacity, in which case nothing is stored.
func (q *pendingQueue) Push(req rpc.Request) bool {
	q.purge()
	if len(q.items) >= queueMax {
		return false
	}
	q.items = append(q.items, pending{req: req, enqueuedAt: q.now()})
	return true
}

// purge drops expired entries in place, preserving order.
func (q *pendingQueue) purge() {
	now := q.now()
	kept := q.items[:0]
	for _, p := range q.items {
		if !p.expired(now) {
			kept = append(kept, p)
		}
	}
	q.items = kept
}

// Drain empties the queue in arrival order, dropping expired entries
// without answering them, and returns the survivors.
func (q *pendingQueue) Drain() []rpc.Request {
	now := q.now()
	var out []rpc.Request
	for _, p := range q.items {
		if p.expired(now) {
			continue
		}
		out = append(out, p.req)
	}
	q.items = nil
	return out
}

func (q *pendingQueue) Len() int {
	return len(q.items)
}
