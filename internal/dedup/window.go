package dedup

import (
	"sync"
	"time"

	"LighthouseIS/internal/model"
)

// DefaultWindow is the maximum time separation for two packets to count as
// the same transmission.
const DefaultWindow = time.Second

// sweepEvery bounds how often Insert walks the whole key space to drop keys
// whose entries have all aged out.
const sweepEvery = 1024

type observation struct {
	ts     time.Time
	origin string
}

// WindowIndex answers whether an equivalent packet from a different origin
// was seen within +-window of a given packet. It keeps every observation
// still inside the retention horizon, not just the most recent one per key:
// duplicates can arrive out of strict chronological order across clients, so
// matching is a set-membership test over the window, not a last-seen check.
//
// Insert-and-match is a read-then-write operation; the mutex keeps it atomic
// so two concurrent duplicates cannot both classify as unique.
type WindowIndex struct {
	mu      sync.Mutex
	window  time.Duration
	retain  time.Duration
	entries map[string][]observation
	latest  time.Time
	inserts int
}

// NewWindowIndex creates an index that matches within the given window and
// retains observations no longer than the window itself. A non-positive
// window falls back to DefaultWindow.
func NewWindowIndex(window time.Duration) *WindowIndex {
	return NewWindowIndexRetaining(window, window)
}

// NewWindowIndexRetaining creates an index that matches within window but
// keeps observations for the longer retain horizon. The correlation reporter
// uses this form: it loads a whole lookback range and then classifies each
// record read-only, so eviction must not discard records the batch still
// needs.
func NewWindowIndexRetaining(window, retain time.Duration) *WindowIndex {
	if window <= 0 {
		window = DefaultWindow
	}
	if retain < window {
		retain = window
	}
	return &WindowIndex{
		window:  window,
		retain:  retain,
		entries: make(map[string][]observation),
	}
}

// Insert records the packet and reports whether an equivalent packet from a
// different origin is already inside the match window. The classification
// returned here is final: later eviction never revisits it.
func (ix *WindowIndex) Insert(rec model.PacketRecord) model.MatchResult {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if rec.Timestamp.After(ix.latest) {
		ix.latest = rec.Timestamp
	}

	key := rec.Normalized
	list := ix.evictKeyLocked(key)
	result := ix.matchLocked(list, rec)

	ix.entries[key] = append(list, observation{ts: rec.Timestamp, origin: rec.Origin})

	ix.inserts++
	if ix.inserts%sweepEvery == 0 {
		ix.sweepLocked()
	}
	return result
}

// Classify reports the packet's match result without recording it. The
// packet itself may already be in the index; same-origin observations never
// match, so a record never counts as a duplicate of itself.
func (ix *WindowIndex) Classify(rec model.PacketRecord) model.MatchResult {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.matchLocked(ix.entries[rec.Normalized], rec)
}

// Size returns the number of retained observations.
func (ix *WindowIndex) Size() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	n := 0
	for _, list := range ix.entries {
		n += len(list)
	}
	return n
}

func (ix *WindowIndex) matchLocked(list []observation, rec model.PacketRecord) model.MatchResult {
	for _, obs := range list {
		if obs.origin == rec.Origin {
			continue
		}
		delta := rec.Timestamp.Sub(obs.ts)
		if delta < 0 {
			delta = -delta
		}
		if delta <= ix.window {
			return model.Identical
		}
	}
	return model.Unique
}

// evictKeyLocked drops observations older than the retention horizon
// relative to the newest inserted timestamp and returns the surviving list.
func (ix *WindowIndex) evictKeyLocked(key string) []observation {
	list, ok := ix.entries[key]
	if !ok {
		return nil
	}
	cutoff := ix.latest.Add(-ix.retain)
	kept := list[:0]
	for _, obs := range list {
		if !obs.ts.Before(cutoff) {
			kept = append(kept, obs)
		}
	}
	if len(kept) == 0 {
		delete(ix.entries, key)
		return nil
	}
	return kept
}

func (ix *WindowIndex) sweepLocked() {
	cutoff := ix.latest.Add(-ix.retain)
	for key, list := range ix.entries {
		kept := list[:0]
		for _, obs := range list {
			if !obs.ts.Before(cutoff) {
				kept = append(kept, obs)
			}
		}
		if len(kept) == 0 {
			delete(ix.entries, key)
		} else {
			ix.entries[key] = kept
		}
	}
}
