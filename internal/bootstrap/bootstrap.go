package bootstrap

import (
	"time"

	"github.com/AegisGuard-sahil/AegisGuard/internal/backup"
	"github.com/AegisGuard-sahil/AegisGuard/internal/config"
	"github.com/AegisGuard-sahil/AegisGuard/internal/dispatcher"
	"github.com/AegisGuard-sahil/AegisGuard/internal/engine"
	"github.com/AegisGuard-sahil/AegisGuard/internal/gateway"
	"github.com/AegisGuard-sahil/AegisGuard/internal/metrics"
	"github.com/AegisGuard-sahil/AegisGuard/internal/store"
)

// App holds every wired component. Construction happens in Wire; lifecycle in
// StartAll and Shutdown.
type App struct {
	Config     *config.Config
	Store      *store.Store
	Session    *gateway.Session
	Engine     *engine.Engine
	Backups    *backup.Service
	Dispatcher *dispatcher.Dispatcher
	Stats      *metrics.Registry
	Reporter   *metrics.Reporter
}

// countingEnforcer forwards to the dispatcher and counts queued work.
type countingEnforcer struct {
	inner *dispatcher.Dispatcher
	stats *metrics.Registry
}

func (c *countingEnforcer) QueueBan(communityID, targetID, reason string, priority dispatcher.JobPriority) {
	c.stats.IncActionsQueued()
	c.inner.QueueBan(communityID, targetID, reason, priority)
}

func (c *countingEnforcer) QueueKick(communityID, targetID, reason string, priority dispatcher.JobPriority) {
	c.stats.IncActionsQueued()
	c.inner.QueueKick(communityID, targetID, reason, priority)
}

const reporterInterval = 60 * time.Second
