package window

import (
	"sync"
	"time"
)

// Counter tracks event timestamps per key over a trailing time window.
// Timestamps older than the window are trimmed lazily on each access.
type Counter struct {
	mu     sync.RWMutex
	window time.Duration
	keys   map[string]*keyEntry
}

type keyEntry struct {
	mu         sync.Mutex
	timestamps []time.Time
}

func NewCounter(window time.Duration) *Counter {
	return &Counter{
		window: window,
		keys:   make(map[string]*keyEntry),
	}
}

// Record appends a timestamp for key, drops timestamps older than the window
// and returns the resulting count. A timestamp exactly at the window boundary
// is still counted.
func (c *Counter) Record(key string, now time.Time) int {
	entry := c.entry(key)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.timestamps = trim(entry.timestamps, now.Add(-c.window))
	entry.timestamps = append(entry.timestamps, now)
	return len(entry.timestamps)
}

// Count returns the number of recorded timestamps within the window without
// recording a new one.
func (c *Counter) Count(key string, now time.Time) int {
	c.mu.RLock()
	entry, exists := c.keys[key]
	c.mu.RUnlock()
	if !exists {
		return 0
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.timestamps = trim(entry.timestamps, now.Add(-c.window))
	return len(entry.timestamps)
}

func (c *Counter) Reset(key string) {
	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
}

func (c *Counter) Window() time.Duration {
	return c.window
}

func (c *Counter) entry(key string) *keyEntry {
	c.mu.RLock()
	entry, exists := c.keys[key]
	c.mu.RUnlock()
	if exists {
		return entry
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, exists = c.keys[key]; exists {
		return entry
	}
	entry = &keyEntry{}
	c.keys[key] = entry
	return entry
}

func trim(timestamps []time.Time, cutoff time.Time) []time.Time {
	kept := timestamps[:0]
	for _, t := range timestamps {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
