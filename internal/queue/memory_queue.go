package queue

import (
	"context"
	"sync"
)

// MemoryQueue collects messages in memory. Used in local development and
// tests where no SQS queue is configured.
type MemoryQueue struct {
	mu       sync.Mutex
	messages []string
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

// Send appends the body to the in-memory log.
func (q *MemoryQueue) Send(_ context.Context, body string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, body)
	return nil
}

// Messages returns a copy of everything sent so far.
func (q *MemoryQueue) Messages() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.messages))
	copy(out, q.messages)
	return out
}
