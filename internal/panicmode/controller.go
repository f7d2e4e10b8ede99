package panicmode

import (
	"fmt"
	"sync"
	"time"

	"github.com/AegisGuard-sahil/AegisGuard/internal/models"
	"github.com/AegisGuard-sahil/AegisGuard/internal/window"
)

// Controller tracks privileged-action bursts per actor and holds the panic
// state for each community. Panic auto-deactivates after the hold duration
// unless deactivated manually first.
type Controller struct {
	mu        sync.Mutex
	actions   *window.Counter
	threshold int
	hold      time.Duration
	active    map[string]bool
	timers    map[string]*time.Timer

	// OnDeactivate fires when a panic ends, manual or timed. Optional.
	OnDeactivate func(communityID string)
}

func NewController(windowDur time.Duration, threshold int, hold time.Duration) *Controller {
	return &Controller{
		actions:   window.NewCounter(windowDur),
		threshold: threshold,
		hold:      hold,
		active:    make(map[string]bool),
		timers:    make(map[string]*time.Timer),
	}
}

// RecordAction counts one privileged action for an actor and reports whether
// the burst threshold was reached. Counting is keyed per actor and kind so
// two actors deleting channels do not pool into one burst.
func (c *Controller) RecordAction(communityID, actorID string, kind models.EventKind, now time.Time) bool {
	key := fmt.Sprintf("%s|%s|%s", communityID, actorID, kind)
	return c.actions.Record(key, now) >= c.threshold
}

// Activate transitions the community into panic. Returns false when already
// in panic, so enforcement runs once per burst.
func (c *Controller) Activate(communityID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active[communityID] {
		return false
	}
	c.active[communityID] = true

	if c.hold > 0 {
		c.timers[communityID] = time.AfterFunc(c.hold, func() {
			c.expire(communityID)
		})
	}
	return true
}

// Deactivate ends a panic manually and cancels the pending auto-deactivate.
// Returns false when the community was not in panic.
func (c *Controller) Deactivate(communityID string) bool {
	c.mu.Lock()
	if !c.active[communityID] {
		c.mu.Unlock()
		return false
	}
	delete(c.active, communityID)
	if t, ok := c.timers[communityID]; ok {
		t.Stop()
		delete(c.timers, communityID)
	}
	cb := c.OnDeactivate
	c.mu.Unlock()

	if cb != nil {
		cb(communityID)
	}
	return true
}

// expire is the timer path. A manual Deactivate that raced the timer wins.
func (c *Controller) expire(communityID string) {
	c.mu.Lock()
	if !c.active[communityID] {
		c.mu.Unlock()
		return
	}
	delete(c.active, communityID)
	delete(c.timers, communityID)
	cb := c.OnDeactivate
	c.mu.Unlock()

	if cb != nil {
		cb(communityID)
	}
}

// Active reports whether the community is in panic.
func (c *Controller) Active(communityID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[communityID]
}
