package sink

import (
	"sync"

	"LighthouseIS/internal/model"
)

// Ring is a fixed-capacity buffer of the most recent stream entries,
// oldest-first eviction. It replaces the unbounded "all packets seen"
// accumulation dashboards would otherwise need.
type Ring struct {
	mu      sync.Mutex
	entries []model.LogEntry
	start   int
	count   int
}

// NewRing creates a ring with the given capacity; non-positive capacities
// fall back to DefaultRecentCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	return &Ring{entries: make([]model.LogEntry, capacity)}
}

// Add appends an entry, evicting the oldest when full.
func (r *Ring) Add(e model.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := (r.start + r.count) % len(r.entries)
	r.entries[idx] = e
	if r.count < len(r.entries) {
		r.count++
	} else {
		r.start = (r.start + 1) % len(r.entries)
	}
}

// Snapshot returns the retained entries in insertion order.
func (r *Ring) Snapshot() []model.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.LogEntry, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return out
}

// Len returns the number of retained entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
