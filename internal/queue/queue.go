// Package queue holds collected items until an emitter forwards them.
package queue

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/yairfalse/awslimits/pkg/sample"
)

// DefaultSize is used when a non-positive size is requested.
const DefaultSize = 1024

var (
	// ErrFull is returned by Put when the queue has no free slot.
	ErrFull = errors.New("queue full")
	// ErrClosed is returned by Put after Close.
	ErrClosed = errors.New("queue closed")
)

// Queue is a bounded FIFO of items. Put never blocks: when the buffer is full
// the item is dropped and counted.
type Queue struct {
	items chan sample.Item

	mu     sync.RWMutex
	closed bool

	enqueued atomic.Int64
	dropped  atomic.Int64
}

// New creates a queue holding up to size items.
func New(size int) *Queue {
	if size <= 0 {
		size = DefaultSize
	}
	return &Queue{items: make(chan sample.Item, size)}
}

// Put offers item to the queue without blocking.
func (q *Queue) Put(item sample.Item) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.dropped.Add(1)
		return ErrClosed
	}

	select {
	case q.items <- item:
		q.enqueued.Add(1)
		return nil
	default:
		q.dropped.Add(1)
		return ErrFull
	}
}

// Items returns the receive side. It is closed by Close.
func (q *Queue) Items() <-chan sample.Item {
	return q.items
}

// Len returns the number of buffered items.
func (q *Queue) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.items)
}

// Enqueued returns the total number of accepted items.
func (q *Queue) Enqueued() int64 {
	return q.enqueued.Load()
}

// Dropped returns the total number of rejected items.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops accepting items. Buffered items stay readable from Items.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.items)
}
