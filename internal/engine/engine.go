package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AegisGuard-sahil/AegisGuard/internal/classifier"
	"github.com/AegisGuard-sahil/AegisGuard/internal/config"
	"github.com/AegisGuard-sahil/AegisGuard/internal/cooldown"
	"github.com/AegisGuard-sahil/AegisGuard/internal/dispatcher"
	"github.com/AegisGuard-sahil/AegisGuard/internal/ledger"
	"github.com/AegisGuard-sahil/AegisGuard/internal/logging"
	"github.com/AegisGuard-sahil/AegisGuard/internal/massmod"
	"github.com/AegisGuard-sahil/AegisGuard/internal/models"
	"github.com/AegisGuard-sahil/AegisGuard/internal/notifier"
	"github.com/AegisGuard-sahil/AegisGuard/internal/panicmode"
	"github.com/AegisGuard-sahil/AegisGuard/internal/platform"
	"github.com/AegisGuard-sahil/AegisGuard/internal/quarantine"
	"github.com/AegisGuard-sahil/AegisGuard/internal/raid"
	"github.com/AegisGuard-sahil/AegisGuard/internal/store"
	"github.com/AegisGuard-sahil/AegisGuard/internal/window"
	"github.com/AegisGuard-sahil/AegisGuard/pkg/util"
)

const systemActor = "automod"

// Enforcer schedules bans and kicks for asynchronous execution.
type Enforcer interface {
	QueueBan(communityID, targetID, reason string, priority dispatcher.JobPriority)
	QueueKick(communityID, targetID, reason string, priority dispatcher.JobPriority)
}

// MessageEvent is an inbound message for moderation.
type MessageEvent struct {
	CommunityID string
	ChannelID   string
	MessageID   string
	AuthorID    string
	Content     string
}

// Engine is the policy layer. Detectors decide, the engine sequences the
// response: delete, warn, punish, record, alert.
type Engine struct {
	cfg *config.Config

	rules       *classifier.Classifier
	spam        *window.Counter
	cooldowns   *cooldown.Limiter
	raids       *raid.Detector
	panics      *panicmode.Controller
	quarantines *quarantine.Manager
	ledger      *ledger.Ledger
	bulk        *massmod.Service
	alerts      *notifier.Notifier

	exec  platform.Executor
	perms platform.PermissionSource
	bans  Enforcer
	clock util.Clock

	settings   *store.Store
	settingsMu sync.Mutex
	detection  map[string]bool

	timers *revertTimers
}

type Deps struct {
	Config      *config.Config
	Classifier  *classifier.Classifier
	Cooldowns   *cooldown.Limiter
	Raids       *raid.Detector
	Panics      *panicmode.Controller
	Quarantines *quarantine.Manager
	Ledger      *ledger.Ledger
	Bulk        *massmod.Service
	Alerts      *notifier.Notifier
	Executor    platform.Executor
	Permissions platform.PermissionSource
	Enforcer    Enforcer
	Store       *store.Store
	Clock       util.Clock
}

func New(d Deps) *Engine {
	return &Engine{
		cfg:         d.Config,
		rules:       d.Classifier,
		spam:        window.NewCounter(time.Duration(d.Config.Detection.SpamWindowSec) * time.Second),
		cooldowns:   d.Cooldowns,
		raids:       d.Raids,
		panics:      d.Panics,
		quarantines: d.Quarantines,
		ledger:      d.Ledger,
		bulk:        d.Bulk,
		alerts:      d.Alerts,
		exec:        d.Executor,
		perms:       d.Permissions,
		bans:        d.Enforcer,
		clock:       d.Clock,
		settings:    d.Store,
		detection:   make(map[string]bool),
		timers:      newRevertTimers(),
	}
}

// HandleMessage runs spam and content rules against a message. Spam wins over
// content rules; among content rules the first hit in classifier order is
// remediated.
func (e *Engine) HandleMessage(ctx context.Context, msg MessageEvent) error {
	if !e.detectionEnabled(msg.CommunityID) {
		return nil
	}
	if e.perms.IsImmune(ctx, msg.CommunityID, msg.AuthorID) {
		return nil
	}

	count := e.spam.Record(msg.CommunityID+"|"+msg.AuthorID, e.clock.Now())
	if count >= e.cfg.Detection.SpamThreshold {
		return e.remediate(ctx, msg, classifier.Violation{Kind: classifier.ViolationSpam})
	}

	violations := e.rules.Classify(msg.Content)
	if len(violations) == 0 {
		return nil
	}
	return e.remediate(ctx, msg, violations[0])
}

// remediate deletes the message, then applies the gated response: one warning
// plus DM per subject, action and cooldown period. Spam additionally purges
// the author's recent messages and times them out.
func (e *Engine) remediate(ctx context.Context, msg MessageEvent, v classifier.Violation) error {
	if err := e.exec.DeleteMessage(ctx, msg.ChannelID, msg.MessageID); err != nil {
		logging.Debug("delete of %s failed: %v", msg.MessageID, err)
	}

	if !e.cooldowns.TryAcquire(msg.CommunityID+"|"+msg.AuthorID, v.Kind.String()) {
		return nil
	}

	reason := violationReason(v)

	if _, err := e.ledger.AddWarning(msg.CommunityID, msg.AuthorID, systemActor, reason); err != nil {
		return err
	}
	if err := e.ledger.LogAction(msg.CommunityID, msg.AuthorID, v.Kind.String(), reason, systemActor); err != nil {
		return err
	}

	if err := e.exec.SendDirectMessage(ctx, msg.AuthorID, "Your message was removed: "+reason); err != nil {
		logging.Debug("DM to %s failed: %v", msg.AuthorID, err)
	}

	if v.Kind == classifier.ViolationSpam {
		if _, err := e.bulk.Purge(ctx, msg.ChannelID, msg.AuthorID, e.cfg.Detection.SpamThreshold); err != nil {
			logging.Warn("spam purge in %s failed: %v", msg.ChannelID, err)
		}
		until := e.clock.Now().Add(time.Duration(e.cfg.Detection.SpamTimeoutMin) * time.Minute)
		if err := e.exec.TimeoutUser(ctx, msg.CommunityID, msg.AuthorID, until, reason); err != nil {
			return fmt.Errorf("failed to timeout %s: %w", msg.AuthorID, err)
		}
	}

	return nil
}

// HandleJoin feeds the raid detector. The first join to cross the surge
// threshold locks the community down once; joiners during an active surge are
// kicked when configured.
func (e *Engine) HandleJoin(ctx context.Context, communityID, subjectID string) error {
	if !e.detectionEnabled(communityID) {
		return nil
	}

	surge := e.raids.OnJoin(communityID, e.clock.Now())
	if !surge && !e.raids.Locked(communityID) {
		return nil
	}

	if surge && e.raids.TryLock(communityID) {
		if e.cfg.Detection.LockChannelsOnRaid {
			locked, failed := e.lockAllChannels(ctx, communityID)
			logging.Info("raid lockdown in %s: %d locked, %d failed", communityID, locked, failed)
		}
		if err := e.ledger.LogAction(communityID, subjectID, "lockdown", "join surge", systemActor); err != nil {
			logging.Error("failed to record lockdown: %v", err)
		}
		if e.cfg.Detection.NotifyStaff {
			if err := e.alerts.Alert(ctx, communityID, "Join surge detected, community locked down."); err != nil {
				logging.Warn("staff alert for %s failed: %v", communityID, err)
			}
		}
	}

	if e.cfg.Detection.KickRaidJoiners {
		e.bans.QueueKick(communityID, subjectID, "join surge", dispatcher.PriorityHigh)
	}
	return nil
}

// HandlePrivilegedAction feeds the burst detector behind panic mode. An actor
// crossing the burst threshold is quarantined and the community enters panic.
func (e *Engine) HandlePrivilegedAction(ctx context.Context, ev models.Event) error {
	if !e.detectionEnabled(ev.CommunityID) || !ev.Kind.Privileged() {
		return nil
	}
	if e.perms.IsImmune(ctx, ev.CommunityID, ev.SubjectID) {
		return nil
	}

	if !e.panics.RecordAction(ev.CommunityID, ev.SubjectID, ev.Kind, ev.Timestamp) {
		return nil
	}

	reason := fmt.Sprintf("privileged action burst: %s", ev.Kind)

	if _, err := e.quarantines.Quarantine(ctx, ev.CommunityID, ev.SubjectID, reason); err != nil {
		if err != quarantine.ErrAlreadyQuarantined {
			logging.Error("failed to quarantine %s: %v", ev.SubjectID, err)
		}
	} else {
		if err := e.ledger.LogAction(ev.CommunityID, ev.SubjectID, "quarantine", reason, systemActor); err != nil {
			logging.Error("failed to record quarantine: %v", err)
		}
	}

	if e.panics.Activate(ev.CommunityID) {
		if err := e.ledger.LogAction(ev.CommunityID, ev.SubjectID, "panic", reason, systemActor); err != nil {
			logging.Error("failed to record panic: %v", err)
		}
		if e.cfg.Detection.NotifyStaff {
			if err := e.alerts.Alert(ctx, ev.CommunityID, "Panic mode engaged: "+reason); err != nil {
				logging.Warn("staff alert for %s failed: %v", ev.CommunityID, err)
			}
		}
	}

	return nil
}

// Status summarizes a community's protection state.
type Status struct {
	PanicActive bool
	LockedDown  bool
}

func (e *Engine) Status(communityID string) Status {
	return Status{
		PanicActive: e.panics.Active(communityID),
		LockedDown:  e.raids.Locked(communityID),
	}
}

func (e *Engine) lockAllChannels(ctx context.Context, communityID string) (locked, failed int) {
	channels, err := e.exec.TextChannels(ctx, communityID)
	if err != nil {
		logging.Error("failed to list channels in %s: %v", communityID, err)
		return 0, 0
	}
	for _, ch := range channels {
		if err := e.exec.LockChannel(ctx, communityID, ch.ID); err != nil {
			failed++
			continue
		}
		locked++
	}
	return locked, failed
}

func (e *Engine) unlockAllChannels(ctx context.Context, communityID string) (unlocked, failed int) {
	channels, err := e.exec.TextChannels(ctx, communityID)
	if err != nil {
		logging.Error("failed to list channels in %s: %v", communityID, err)
		return 0, 0
	}
	for _, ch := range channels {
		if err := e.exec.UnlockChannel(ctx, communityID, ch.ID); err != nil {
			failed++
			continue
		}
		unlocked++
	}
	return unlocked, failed
}

func violationReason(v classifier.Violation) string {
	switch v.Kind {
	case classifier.ViolationSpam:
		return "sending messages too fast"
	case classifier.ViolationInvite:
		return "posting server invites"
	case classifier.ViolationExcessiveCaps:
		return "excessive capital letters"
	case classifier.ViolationForbiddenWord:
		return "forbidden word: " + v.Word
	case classifier.ViolationUntrustedLink:
		return "untrusted link: " + v.Link
	case classifier.ViolationZalgo:
		return "corrupted text"
	case classifier.ViolationRepeatedChars:
		return "repeated character flooding"
	default:
		return "rule violation"
	}
}
