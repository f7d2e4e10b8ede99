package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/AegisGuard-sahil/AegisGuard/internal/dispatcher"
	"github.com/AegisGuard-sahil/AegisGuard/internal/logging"
	"github.com/AegisGuard-sahil/AegisGuard/internal/massmod"
	"github.com/AegisGuard-sahil/AegisGuard/internal/platform"
	"github.com/AegisGuard-sahil/AegisGuard/internal/store"
)

// escalationThreshold is the warning count at which a moderator warning also
// times the subject out.
const escalationThreshold = 3

func (e *Engine) requireLevel(ctx context.Context, communityID, actorID string, level platform.PermissionLevel) error {
	if e.perms.Level(ctx, communityID, actorID) < level {
		return fmt.Errorf("actor %s: %w", actorID, platform.ErrPermissionDenied)
	}
	return nil
}

// Warn issues a moderator warning. At escalationThreshold warnings the
// subject is also timed out.
func (e *Engine) Warn(ctx context.Context, communityID, actorID, subjectID, reason string) (*store.Warning, error) {
	if err := e.requireLevel(ctx, communityID, actorID, platform.LevelModerator); err != nil {
		return nil, err
	}

	w, err := e.ledger.AddWarning(communityID, subjectID, actorID, reason)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.LogAction(communityID, subjectID, "warn", reason, actorID); err != nil {
		return nil, err
	}

	if err := e.exec.SendDirectMessage(ctx, subjectID, "You have been warned: "+reason); err != nil {
		logging.Debug("DM to %s failed: %v", subjectID, err)
	}

	count, err := e.ledger.CountWarnings(communityID, subjectID)
	if err != nil {
		return w, err
	}
	if count >= escalationThreshold {
		until := e.clock.Now().Add(time.Duration(e.cfg.Detection.SpamTimeoutMin) * time.Minute)
		if err := e.exec.TimeoutUser(ctx, communityID, subjectID, until, "repeated warnings"); err != nil {
			return w, fmt.Errorf("failed to escalate %s: %w", subjectID, err)
		}
		if err := e.ledger.LogAction(communityID, subjectID, "timeout", "repeated warnings", systemActor); err != nil {
			return w, err
		}
	}

	return w, nil
}

// RemoveWarning deletes one warning by id.
func (e *Engine) RemoveWarning(ctx context.Context, communityID, actorID string, warningID int64) (bool, error) {
	if err := e.requireLevel(ctx, communityID, actorID, platform.LevelModerator); err != nil {
		return false, err
	}
	return e.ledger.RemoveWarning(communityID, warningID)
}

// ClearWarnings deletes every warning for a subject.
func (e *Engine) ClearWarnings(ctx context.Context, communityID, actorID, subjectID string) (int, error) {
	if err := e.requireLevel(ctx, communityID, actorID, platform.LevelModerator); err != nil {
		return 0, err
	}
	return e.ledger.ClearWarnings(communityID, subjectID)
}

// Kick removes a subject from the community via the enforcement queue.
func (e *Engine) Kick(ctx context.Context, communityID, actorID, subjectID, reason string) error {
	if err := e.requireLevel(ctx, communityID, actorID, platform.LevelModerator); err != nil {
		return err
	}
	e.bans.QueueKick(communityID, subjectID, reason, dispatcher.PriorityNormal)
	return e.ledger.LogAction(communityID, subjectID, "kick", reason, actorID)
}

// Ban permanently removes a subject. Admin only.
func (e *Engine) Ban(ctx context.Context, communityID, actorID, subjectID, reason string) error {
	if err := e.requireLevel(ctx, communityID, actorID, platform.LevelAdmin); err != nil {
		return err
	}
	e.bans.QueueBan(communityID, subjectID, reason, dispatcher.PriorityNormal)
	return e.ledger.LogAction(communityID, subjectID, "ban", reason, actorID)
}

// Mute times a subject out for the given duration.
func (e *Engine) Mute(ctx context.Context, communityID, actorID, subjectID string, d time.Duration, reason string) error {
	if err := e.requireLevel(ctx, communityID, actorID, platform.LevelModerator); err != nil {
		return err
	}
	until := e.clock.Now().Add(d)
	if err := e.exec.TimeoutUser(ctx, communityID, subjectID, until, reason); err != nil {
		return fmt.Errorf("failed to mute %s: %w", subjectID, err)
	}
	return e.ledger.LogAction(communityID, subjectID, "mute", reason, actorID)
}

// Unmute clears a subject's timeout.
func (e *Engine) Unmute(ctx context.Context, communityID, actorID, subjectID string) error {
	if err := e.requireLevel(ctx, communityID, actorID, platform.LevelModerator); err != nil {
		return err
	}
	if err := e.exec.TimeoutUser(ctx, communityID, subjectID, time.Time{}, "unmute"); err != nil {
		return fmt.Errorf("failed to unmute %s: %w", subjectID, err)
	}
	return e.ledger.LogAction(communityID, subjectID, "unmute", "", actorID)
}

// Purge deletes a subject's recent messages from a channel.
func (e *Engine) Purge(ctx context.Context, communityID, actorID, channelID, subjectID string, limit int) (*massmod.Result, error) {
	if err := e.requireLevel(ctx, communityID, actorID, platform.LevelModerator); err != nil {
		return nil, err
	}
	result, err := e.bulk.Purge(ctx, channelID, subjectID, limit)
	if err != nil {
		return nil, err
	}
	return result, e.ledger.LogAction(communityID, subjectID, "purge", fmt.Sprintf("%d messages", result.Succeeded), actorID)
}

// ReleaseQuarantine restores a quarantined subject's roles.
func (e *Engine) ReleaseQuarantine(ctx context.Context, communityID, actorID, subjectID string) (restored, skipped []string, err error) {
	if err := e.requireLevel(ctx, communityID, actorID, platform.LevelModerator); err != nil {
		return nil, nil, err
	}
	restored, skipped, err = e.quarantines.Release(ctx, communityID, subjectID)
	if err != nil {
		return nil, nil, err
	}
	return restored, skipped, e.ledger.LogAction(communityID, subjectID, "release", "", actorID)
}

// LockResult reports how many channels a lockdown touched.
type LockResult struct {
	Changed int
	Failed  int
}

// Lockdown locks every text channel. A positive duration schedules an
// automatic unlock; a later manual Unlock cancels it. Admin only.
func (e *Engine) Lockdown(ctx context.Context, communityID, actorID string, d time.Duration) (*LockResult, error) {
	if err := e.requireLevel(ctx, communityID, actorID, platform.LevelAdmin); err != nil {
		return nil, err
	}

	e.raids.TryLock(communityID)
	locked, failed := e.lockAllChannels(ctx, communityID)

	if d > 0 {
		e.timers.schedule("lockdown|"+communityID, d, func() {
			if _, err := e.Unlock(context.Background(), communityID, systemActor); err != nil {
				logging.Error("timed unlock of %s failed: %v", communityID, err)
			}
		})
	}

	return &LockResult{Changed: locked, Failed: failed}, e.ledger.LogAction(communityID, "", "lockdown", "manual", actorID)
}

// Unlock reverses a lockdown and cancels any pending timed unlock.
func (e *Engine) Unlock(ctx context.Context, communityID, actorID string) (*LockResult, error) {
	if actorID != systemActor {
		if err := e.requireLevel(ctx, communityID, actorID, platform.LevelAdmin); err != nil {
			return nil, err
		}
	}

	e.timers.cancel("lockdown|" + communityID)
	e.raids.Unlock(communityID)
	unlocked, failed := e.unlockAllChannels(ctx, communityID)

	return &LockResult{Changed: unlocked, Failed: failed}, e.ledger.LogAction(communityID, "", "unlock", "", actorID)
}

// Slowmode sets a channel's message interval. A positive duration schedules a
// revert to zero.
func (e *Engine) Slowmode(ctx context.Context, communityID, actorID, channelID string, seconds int, d time.Duration) error {
	if err := e.requireLevel(ctx, communityID, actorID, platform.LevelModerator); err != nil {
		return err
	}

	if err := e.exec.SetSlowmode(ctx, communityID, channelID, seconds); err != nil {
		return fmt.Errorf("failed to set slowmode on %s: %w", channelID, err)
	}

	if d > 0 {
		e.timers.schedule("slowmode|"+channelID, d, func() {
			if err := e.exec.SetSlowmode(context.Background(), communityID, channelID, 0); err != nil {
				logging.Error("slowmode revert on %s failed: %v", channelID, err)
			}
		})
	}

	return e.ledger.LogAction(communityID, "", "slowmode", fmt.Sprintf("%ds on %s", seconds, channelID), actorID)
}

// DeactivatePanic ends panic mode manually. Admin only.
func (e *Engine) DeactivatePanic(ctx context.Context, communityID, actorID string) (bool, error) {
	if err := e.requireLevel(ctx, communityID, actorID, platform.LevelAdmin); err != nil {
		return false, err
	}
	if !e.panics.Deactivate(communityID) {
		return false, nil
	}
	return true, e.ledger.LogAction(communityID, "", "panic_off", "", actorID)
}
