package ledger

import (
	"fmt"
	"sync"

	"github.com/AegisGuard-sahil/AegisGuard/internal/logging"
	"github.com/AegisGuard-sahil/AegisGuard/internal/store"
	"github.com/AegisGuard-sahil/AegisGuard/pkg/util"
)

// MaxAuditEntries caps the in-memory audit ring per community.
const MaxAuditEntries = 1000

// Ledger issues warnings with globally monotonic ids and keeps a bounded
// audit trail of enforcement actions. Writes go through to the store; reads
// are served from memory.
type Ledger struct {
	mu       sync.Mutex
	store    *store.Store
	clock    util.Clock
	nextID   int64
	audit    map[string][]*store.AuditEntry
	hydrated map[string]bool
}

// New seeds the warning id counter from the highest persisted id so ids never
// repeat across restarts.
func New(s *store.Store, clock util.Clock) (*Ledger, error) {
	max, err := s.MaxWarningID()
	if err != nil {
		return nil, fmt.Errorf("failed to seed warning ids: %w", err)
	}
	return &Ledger{
		store:    s,
		clock:    clock,
		nextID:   max + 1,
		audit:    make(map[string][]*store.AuditEntry),
		hydrated: make(map[string]bool),
	}, nil
}

// ringLocked returns a community's audit ring, loading persisted entries on
// first touch so history survives restarts. Callers hold l.mu.
func (l *Ledger) ringLocked(communityID string) []*store.AuditEntry {
	if !l.hydrated[communityID] {
		entries, err := l.store.RecentAudit(communityID, "", MaxAuditEntries)
		if err != nil {
			logging.Warn("audit hydration for %s failed: %v", communityID, err)
			return l.audit[communityID]
		}
		// RecentAudit is newest-first; the ring is oldest-first.
		ring := make([]*store.AuditEntry, 0, len(entries))
		for i := len(entries) - 1; i >= 0; i-- {
			ring = append(ring, entries[i])
		}
		l.audit[communityID] = ring
		l.hydrated[communityID] = true
	}
	return l.audit[communityID]
}

// AddWarning records a warning and returns it with its assigned id.
func (l *Ledger) AddWarning(communityID, subjectID, moderatorID, reason string) (*store.Warning, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := &store.Warning{
		ID:          l.nextID,
		CommunityID: communityID,
		SubjectID:   subjectID,
		ModeratorID: moderatorID,
		Reason:      reason,
		CreatedAt:   l.clock.Now().Unix(),
	}
	if err := l.store.InsertWarning(w); err != nil {
		return nil, fmt.Errorf("failed to persist warning: %w", err)
	}
	l.nextID++
	return w, nil
}

// Warnings returns all warnings for a subject, oldest first.
func (l *Ledger) Warnings(communityID, subjectID string) ([]*store.Warning, error) {
	return l.store.WarningsForSubject(communityID, subjectID)
}

// CountWarnings returns how many warnings a subject has on record.
func (l *Ledger) CountWarnings(communityID, subjectID string) (int, error) {
	return l.store.CountWarnings(communityID, subjectID)
}

// RemoveWarning deletes one warning by id. Returns false when the id does not
// exist in the community.
func (l *Ledger) RemoveWarning(communityID string, id int64) (bool, error) {
	return l.store.DeleteWarning(communityID, id)
}

// ClearWarnings deletes every warning for a subject and reports the count.
func (l *Ledger) ClearWarnings(communityID, subjectID string) (int, error) {
	return l.store.ClearWarnings(communityID, subjectID)
}

// LogAction appends an enforcement record to the community's audit trail.
// The in-memory ring drops the oldest entry past MaxAuditEntries.
func (l *Ledger) LogAction(communityID, subjectID, action, reason, actorID string) error {
	entry := &store.AuditEntry{
		CommunityID: communityID,
		SubjectID:   subjectID,
		Action:      action,
		Reason:      reason,
		ActorID:     actorID,
		Timestamp:   l.clock.Now().Unix(),
	}

	l.mu.Lock()
	// Hydrate before inserting so the new row is not counted twice.
	l.ringLocked(communityID)

	if err := l.store.InsertAudit(entry); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("failed to persist audit entry: %w", err)
	}

	ring := append(l.audit[communityID], entry)
	overflow := len(ring) > MaxAuditEntries
	if overflow {
		ring = ring[len(ring)-MaxAuditEntries:]
	}
	l.audit[communityID] = ring
	l.mu.Unlock()

	if overflow {
		if err := l.store.TrimAudit(communityID, MaxAuditEntries); err != nil {
			return fmt.Errorf("failed to trim audit log: %w", err)
		}
	}
	return nil
}

// RecentActions returns up to limit audit entries for a community, newest
// first. A non-empty subjectID narrows the result to one subject.
func (l *Ledger) RecentActions(communityID, subjectID string, limit int) []*store.AuditEntry {
	l.mu.Lock()
	ring := l.ringLocked(communityID)
	l.mu.Unlock()

	out := make([]*store.AuditEntry, 0, limit)
	for i := len(ring) - 1; i >= 0 && len(out) < limit; i-- {
		if subjectID != "" && ring[i].SubjectID != subjectID {
			continue
		}
		out = append(out, ring[i])
	}
	return out
}

// SubjectStats summarizes a subject's enforcement history.
type SubjectStats struct {
	Warnings     int
	ActionCounts map[string]int
}

// StatsFor aggregates warning count and per-action totals for a subject.
func (l *Ledger) StatsFor(communityID, subjectID string) (*SubjectStats, error) {
	warnings, err := l.store.CountWarnings(communityID, subjectID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	ring := l.ringLocked(communityID)
	counts := make(map[string]int)
	for _, e := range ring {
		if e.SubjectID == subjectID {
			counts[e.Action]++
		}
	}
	l.mu.Unlock()

	return &SubjectStats{Warnings: warnings, ActionCounts: counts}, nil
}
