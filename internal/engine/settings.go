package engine

import (
	"context"
	"strconv"

	"github.com/AegisGuard-sahil/AegisGuard/internal/platform"
)

const detectionSettingKey = "detection_enabled"

// detectionEnabled reports whether automated detection runs for a community.
// The global config flag is the default; a persisted per-community setting
// overrides it. Lookups are cached after the first read.
func (e *Engine) detectionEnabled(communityID string) bool {
	e.settingsMu.Lock()
	defer e.settingsMu.Unlock()

	if enabled, ok := e.detection[communityID]; ok {
		return enabled
	}

	enabled := e.cfg.Detection.Enabled
	value, found, err := e.settings.GetSetting(communityID, detectionSettingKey)
	if err == nil && found {
		if parsed, perr := strconv.ParseBool(value); perr == nil {
			enabled = parsed
		}
	}
	e.detection[communityID] = enabled
	return enabled
}

// SetDetection toggles automated detection for one community. Admin only.
func (e *Engine) SetDetection(ctx context.Context, communityID, actorID string, enabled bool) error {
	if err := e.requireLevel(ctx, communityID, actorID, platform.LevelAdmin); err != nil {
		return err
	}

	if err := e.settings.SetSetting(communityID, detectionSettingKey, strconv.FormatBool(enabled)); err != nil {
		return err
	}

	e.settingsMu.Lock()
	e.detection[communityID] = enabled
	e.settingsMu.Unlock()

	return e.ledger.LogAction(communityID, "", "config", "detection "+strconv.FormatBool(enabled), actorID)
}
