package engine

import (
	"context"
	"errors"
	"sync"
)

// DefaultQueueSize is how many undelivered announcements a Queue holds.
const DefaultQueueSize = 32

var (
	// ErrHeld reports that an announcement waits in a Queue for a client.
	ErrHeld = errors.New("announcement held for collection")
	// ErrQueueFull leaves the occurrence pending so the next tick retries it.
	ErrQueueFull = errors.New("announcement queue full")
)

// Queue holds announcements until a client collects them. Nothing is
// acknowledged until then, and a full queue refuses new announcements
// rather than dropping held ones.
type Queue struct {
	mu    sync.Mutex
	items []Announcement
	max   int
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{max: size}
}

// Deliver queues a and returns ErrHeld. A redelivered occurrence that is
// already queued is not queued twice.
func (q *Queue) Deliver(_ context.Context, a Announcement) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, held := range q.items {
		if held.EventID == a.EventID {
			return ErrHeld
		}
	}
	if len(q.items) >= q.max {
		return ErrQueueFull
	}
	q.items = append(q.items, a)
	return ErrHeld
}

// Drain returns every queued announcement, oldest first, and empties the
// queue.
func (q *Queue) Drain() []Announcement {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
