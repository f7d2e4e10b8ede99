package engine

import (
	"sync"
	"time"
)

// revertTimers holds pending timed reverts (lockdown expiry, slowmode reset)
// keyed by what they revert. Scheduling again replaces the pending timer;
// cancelling stops it.
type revertTimers struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newRevertTimers() *revertTimers {
	return &revertTimers{timers: make(map[string]*time.Timer)}
}

func (rt *revertTimers) schedule(key string, d time.Duration, fn func()) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if t, ok := rt.timers[key]; ok {
		t.Stop()
	}
	rt.timers[key] = time.AfterFunc(d, func() {
		rt.mu.Lock()
		delete(rt.timers, key)
		rt.mu.Unlock()
		fn()
	})
}

func (rt *revertTimers) cancel(key string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	t, ok := rt.timers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(rt.timers, key)
	return true
}
