package emitter

import (
	"sync"

	"github.com/yairfalse/awslimits/pkg/sample"
)

// Change is a value difference between two emissions of the same key.
type Change struct {
	Key          string
	Host         string
	Previous     int64
	Current      int64
	PreviousText string
	CurrentText  string
}

// ChangeTracker remembers the last emitted value of every key and host.
type ChangeTracker struct {
	mu       sync.Mutex
	previous map[string]sample.Item
}

// NewChangeTracker creates a new change tracker.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{
		previous: make(map[string]sample.Item),
	}
}

// Observe records item and reports whether its value differs from the last
// observation. The first observation of a key is a baseline, not a change.
func (t *ChangeTracker) Observe(item sample.Item) (Change, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := itemID(item)
	prev, seen := t.previous[id]
	t.previous[id] = item

	if !seen || (prev.Value == item.Value && prev.Text == item.Text) {
		return Change{}, false
	}
	return Change{
		Key:          item.Key,
		Host:         item.Host,
		Previous:     prev.Value,
		Current:      item.Value,
		PreviousText: prev.Text,
		CurrentText:  item.Text,
	}, true
}

// Len returns the number of tracked keys.
func (t *ChangeTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.previous)
}

func itemID(item sample.Item) string {
	return item.Host + "/" + item.Key
}
