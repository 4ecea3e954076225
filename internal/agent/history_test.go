package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryBoundedEviction(t *testing.T) {
	h := NewHistory(DefaultHistoryCapacity)

	base := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; i < DefaultHistoryCapacity+1; i++ {
		h.Push(Entry{Timestamp: base.Add(time.Duration(i) * time.Minute), Score: float64(i)})
	}

	require.Equal(t, DefaultHistoryCapacity, h.Len())
	entries := h.Entries()
	// Pushing the 101st entry evicted the oldest.
	assert.Equal(t, 1.0, entries[0].Score)
	assert.Equal(t, float64(DefaultHistoryCapacity), entries[len(entries)-1].Score)
}

func TestHistoryZeroCapacityUsesDefault(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < DefaultHistoryCapacity*2; i++ {
		h.Push(Entry{Score: float64(i)})
	}
	assert.Equal(t, DefaultHistoryCapacity, h.Len())
}

func TestHistoryEntriesReturnsCopy(t *testing.T) {
	h := NewHistory(10)
	h.Push(Entry{Score: 42})

	entries := h.Entries()
	entries[0].Score = 0
	assert.Equal(t, 42.0, h.Entries()[0].Score)
}
