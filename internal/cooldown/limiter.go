package cooldown

import (
	"sync"
	"time"

	"github.com/AegisGuard-sahil/AegisGuard/pkg/util"
)

// Limiter enforces at most one automated action per (subject, action kind)
// within the cooldown period. It prevents response storms when several rule
// evaluations fire on the same message.
type Limiter struct {
	mu        sync.Mutex
	cooldowns map[string]map[string]time.Time
	period    time.Duration
	clock     util.Clock
}

func NewLimiter(period time.Duration, clock util.Clock) *Limiter {
	return &Limiter{
		cooldowns: make(map[string]map[string]time.Time),
		period:    period,
		clock:     clock,
	}
}

// TryAcquire returns true and records the acquisition iff no prior acquisition
// for (subjectID, action) exists within the cooldown period. The check and the
// record happen under one lock so concurrent callers cannot both acquire.
func (l *Limiter) TryAcquire(subjectID, action string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	actions, exists := l.cooldowns[subjectID]
	if !exists {
		actions = make(map[string]time.Time)
		l.cooldowns[subjectID] = actions
	}

	if last, exists := actions[action]; exists && now.Sub(last) < l.period {
		return false
	}

	actions[action] = now
	return true
}

// Remaining reports how long until (subjectID, action) can acquire again.
func (l *Limiter) Remaining(subjectID, action string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	actions, exists := l.cooldowns[subjectID]
	if !exists {
		return 0
	}
	last, exists := actions[action]
	if !exists {
		return 0
	}

	remaining := l.period - l.clock.Now().Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears all cooldowns for a subject.
func (l *Limiter) Reset(subjectID string) {
	l.mu.Lock()
	delete(l.cooldowns, subjectID)
	l.mu.Unlock()
}
