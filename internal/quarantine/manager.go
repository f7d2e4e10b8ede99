package quarantine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AegisGuard-sahil/AegisGuard/internal/logging"
	"github.com/AegisGuard-sahil/AegisGuard/internal/platform"
	"github.com/AegisGuard-sahil/AegisGuard/internal/store"
	"github.com/AegisGuard-sahil/AegisGuard/pkg/util"
)

var (
	ErrAlreadyQuarantined = errors.New("subject already quarantined")
	ErrNotQuarantined     = errors.New("subject not quarantined")
)

// Manager isolates subjects by stripping their roles and applying the
// quarantine role. The role snapshot is persisted so Release can restore it,
// skipping roles deleted in the meantime.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	store *store.Store
	exec  platform.Executor
	clock util.Clock
}

func NewManager(s *store.Store, exec platform.Executor, clock util.Clock) *Manager {
	return &Manager{
		locks: make(map[string]*sync.Mutex),
		store: s,
		exec:  exec,
		clock: clock,
	}
}

// subjectLock serializes quarantine state per (community, subject). Platform
// calls for one subject must not block work on unrelated communities.
func (m *Manager) subjectLock(communityID, subjectID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := communityID + "|" + subjectID
	lk, ok := m.locks[key]
	if !ok {
		lk = &sync.Mutex{}
		m.locks[key] = lk
	}
	return lk
}

// Quarantine strips the subject's roles, applies the quarantine role and
// persists the snapshot. At most one active record exists per subject.
func (m *Manager) Quarantine(ctx context.Context, communityID, subjectID, reason string) (*store.QuarantineRecord, error) {
	rec, err := m.isolate(ctx, communityID, subjectID, reason)
	if err != nil {
		return nil, err
	}

	// Best effort; the subject may have DMs closed.
	if err := m.exec.SendDirectMessage(ctx, subjectID, "You have been quarantined: "+reason); err != nil {
		logging.Debug("quarantine DM to %s failed: %v", subjectID, err)
	}

	return rec, nil
}

func (m *Manager) isolate(ctx context.Context, communityID, subjectID, reason string) (*store.QuarantineRecord, error) {
	lk := m.subjectLock(communityID, subjectID)
	lk.Lock()
	defer lk.Unlock()

	existing, err := m.store.ActiveQuarantine(communityID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check quarantine state: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyQuarantined
	}

	stripped, err := m.exec.StripRoles(ctx, communityID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to strip roles: %w", err)
	}

	roleID, err := m.exec.EnsureQuarantineRole(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve quarantine role: %w", err)
	}
	if err := m.exec.ApplyRole(ctx, communityID, subjectID, roleID); err != nil {
		return nil, fmt.Errorf("failed to apply quarantine role: %w", err)
	}

	rec := &store.QuarantineRecord{
		CommunityID: communityID,
		SubjectID:   subjectID,
		RoleIDs:     store.JoinRoleIDs(stripped),
		Reason:      reason,
		Active:      true,
		CreatedAt:   m.clock.Now().Unix(),
	}
	id, err := m.store.InsertQuarantine(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to persist quarantine: %w", err)
	}
	rec.ID = id

	return rec, nil
}

// Release restores the subject's snapshot roles and clears the quarantine
// role. Roles deleted since the snapshot are skipped and reported.
func (m *Manager) Release(ctx context.Context, communityID, subjectID string) (restored, skipped []string, err error) {
	lk := m.subjectLock(communityID, subjectID)
	lk.Lock()
	defer lk.Unlock()

	rec, err := m.store.ActiveQuarantine(communityID, subjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check quarantine state: %w", err)
	}
	if rec == nil {
		return nil, nil, ErrNotQuarantined
	}

	roleID, err := m.exec.EnsureQuarantineRole(ctx, communityID)
	if err == nil {
		if err := m.exec.RemoveRole(ctx, communityID, subjectID, roleID); err != nil {
			logging.Warn("failed to remove quarantine role from %s: %v", subjectID, err)
		}
	}

	for _, id := range store.SplitRoleIDs(rec.RoleIDs) {
		if err := m.exec.ApplyRole(ctx, communityID, subjectID, id); err != nil {
			skipped = append(skipped, id)
			continue
		}
		restored = append(restored, id)
	}

	if err := m.store.ReleaseQuarantine(rec.ID, m.clock.Now().Unix()); err != nil {
		return restored, skipped, fmt.Errorf("failed to mark quarantine released: %w", err)
	}

	return restored, skipped, nil
}

// IsQuarantined reports whether the subject has an active record.
func (m *Manager) IsQuarantined(communityID, subjectID string) bool {
	rec, err := m.store.ActiveQuarantine(communityID, subjectID)
	return err == nil && rec != nil
}
