package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// actorCache remembers recent audit-log attributions so a burst of events
// from one attacker does not trigger a REST lookup per event.
type actorCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]actorEntry
}

type actorEntry struct {
	actorID string
	addedAt time.Time
}

func newActorCache(ttl time.Duration) *actorCache {
	return &actorCache{
		ttl:     ttl,
		entries: make(map[string]actorEntry),
	}
}

func cacheKey(guildID string, action discordgo.AuditLogAction, targetID string) string {
	return fmt.Sprintf("%s|%d|%s", guildID, int(action), targetID)
}

func (c *actorCache) get(guildID string, action discordgo.AuditLogAction, targetID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[cacheKey(guildID, action, targetID)]
	if !ok {
		return "", false
	}
	if time.Since(e.addedAt) > c.ttl {
		delete(c.entries, cacheKey(guildID, action, targetID))
		return "", false
	}
	return e.actorID, true
}

func (c *actorCache) put(guildID string, action discordgo.AuditLogAction, targetID, actorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(guildID, action, targetID)] = actorEntry{
		actorID: actorID,
		addedAt: time.Now(),
	}
}
