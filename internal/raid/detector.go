package raid

import (
	"sync"
	"time"

	"github.com/AegisGuard-sahil/AegisGuard/internal/window"
)

// Detector flags a join surge when threshold joins land inside the window for
// one community. Lockdown state is tracked so a surge triggers a lockdown only
// once until the community is unlocked.
type Detector struct {
	mu        sync.Mutex
	joins     *window.Counter
	threshold int
	locked    map[string]bool
}

func NewDetector(windowDur time.Duration, threshold int) *Detector {
	return &Detector{
		joins:     window.NewCounter(windowDur),
		threshold: threshold,
		locked:    make(map[string]bool),
	}
}

// OnJoin records a join and reports whether the surge threshold was reached.
func (d *Detector) OnJoin(communityID string, now time.Time) bool {
	return d.joins.Record(communityID, now) >= d.threshold
}

// TryLock transitions the community into lockdown. Returns false when already
// locked so the caller acts only once per surge.
func (d *Detector) TryLock(communityID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locked[communityID] {
		return false
	}
	d.locked[communityID] = true
	return true
}

// Unlock clears the lockdown state. Returns false when the community was not
// locked.
func (d *Detector) Unlock(communityID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.locked[communityID] {
		return false
	}
	delete(d.locked, communityID)
	return true
}

// Locked reports whether the community is under lockdown.
func (d *Detector) Locked(communityID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.locked[communityID]
}
