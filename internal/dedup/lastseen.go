package dedup

import (
	"sync"
	"time"
)

// lastSeenMaxKeys caps the cache before an eviction pass runs.
const lastSeenMaxKeys = 50000

// LastSeen is the forwarding-side duplicate check: a key is a duplicate if
// the same normalized packet was seen within the trailing window, from any
// origin. This is a deliberately different definition of duplication than
// WindowIndex's cross-origin match; the two are not interchangeable.
type LastSeen struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
}

// NewLastSeen creates a last-seen cache. A non-positive window falls back to
// DefaultWindow.
func NewLastSeen(window time.Duration) *LastSeen {
	if window <= 0 {
		window = DefaultWindow
	}
	return &LastSeen{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

// Fresh reports whether the key has not been seen within the trailing
// window, and records now as the key's latest timestamp either way.
func (c *LastSeen) Fresh(key string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.seen[key]
	fresh := !ok || now.Sub(last) >= c.window
	if !ok || now.After(last) {
		c.seen[key] = now
	}
	if len(c.seen) > lastSeenMaxKeys {
		c.evictLocked(now)
	}
	return fresh
}

// Size returns the number of tracked keys.
func (c *LastSeen) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *LastSeen) evictLocked(now time.Time) {
	for k, t := range c.seen {
		if now.Sub(t) >= c.window {
			delete(c.seen, k)
		}
	}
}
