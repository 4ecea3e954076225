package agent

import (
	"sync"
	"time"
)

// DefaultHistoryCapacity bounds the per-monitor analysis window.
const DefaultHistoryCapacity = 100

// Entry is one cycle's analysis summary kept in the sliding window.
type Entry struct {
	Timestamp time.Time
	Score     float64
	Degraded  bool
}

// History is a monitor-owned bounded FIFO window of analysis entries. When
// full, pushing evicts the oldest entry. There is no process-wide shared
// history.
type History struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
}

// NewHistory returns a window holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity}
}

// Push appends an entry, evicting the oldest when the window is full.
func (h *History) Push(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) >= h.capacity {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, e)
}

// Len reports the current number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Entries returns a copy of the window, oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}
