package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AegisGuard-sahil/AegisGuard/internal/store"
	"github.com/AegisGuard-sahil/AegisGuard/pkg/util"
)

func newTestLedger(t *testing.T) (*Ledger, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := util.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	l, err := New(s, clock)
	require.NoError(t, err)
	return l, s
}

func TestAddWarningAssignsMonotonicIDs(t *testing.T) {
	l, _ := newTestLedger(t)

	w1, err := l.AddWarning("c1", "u1", "m1", "spam")
	require.NoError(t, err)
	w2, err := l.AddWarning("c1", "u2", "m1", "caps")
	require.NoError(t, err)

	assert.Equal(t, int64(1), w1.ID)
	assert.Equal(t, int64(2), w2.ID)
}

func TestWarningIDsSeededFromStore(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.InsertWarning(&store.Warning{ID: 41, CommunityID: "c1", SubjectID: "u1", ModeratorID: "m1", Reason: "old"}))

	clock := util.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	l, err := New(s, clock)
	require.NoError(t, err)

	w, err := l.AddWarning("c1", "u1", "m1", "new")
	require.NoError(t, err)
	assert.Equal(t, int64(42), w.ID)
}

func TestConcurrentWarningsUniqueIncreasingIDs(t *testing.T) {
	l, _ := newTestLedger(t)

	const n = 100
	var wg sync.WaitGroup
	ids := make(chan int64, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := l.AddWarning("c1", "u1", "m1", "spam")
			if err == nil {
				ids <- w.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	count := 0
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
		count++
	}
	assert.Equal(t, n, count)
}

func TestRemoveAndClearWarnings(t *testing.T) {
	l, _ := newTestLedger(t)

	w, err := l.AddWarning("c1", "u1", "m1", "spam")
	require.NoError(t, err)
	_, err = l.AddWarning("c1", "u1", "m1", "caps")
	require.NoError(t, err)

	ok, err := l.RemoveWarning("c1", w.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.RemoveWarning("c1", 9999)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := l.ClearWarnings("c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := l.CountWarnings("c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAuditRingCapped(t *testing.T) {
	l, _ := newTestLedger(t)

	for i := 0; i < MaxAuditEntries+5; i++ {
		require.NoError(t, l.LogAction("c1", "u1", "timeout", "spam", ""))
	}

	got := l.RecentActions("c1", "", MaxAuditEntries+100)
	assert.Len(t, got, MaxAuditEntries)
}

func TestRecentActionsFilterAndOrder(t *testing.T) {
	l, _ := newTestLedger(t)

	require.NoError(t, l.LogAction("c1", "u1", "warn", "first", "m1"))
	require.NoError(t, l.LogAction("c1", "u2", "ban", "second", "m1"))
	require.NoError(t, l.LogAction("c1", "u1", "kick", "third", "m1"))

	all := l.RecentActions("c1", "", 10)
	require.Len(t, all, 3)
	assert.Equal(t, "kick", all[0].Action)
	assert.Equal(t, "warn", all[2].Action)

	only := l.RecentActions("c1", "u1", 10)
	require.Len(t, only, 2)
	assert.Equal(t, "kick", only[0].Action)
	assert.Equal(t, "warn", only[1].Action)

	assert.Empty(t, l.RecentActions("c2", "", 10))
}

func TestAuditSurvivesRestart(t *testing.T) {
	l, s := newTestLedger(t)

	require.NoError(t, l.LogAction("c1", "u1", "quarantine", "burst", ""))
	require.NoError(t, l.LogAction("c1", "u2", "ban", "raid", "m1"))

	// A new ledger over the same store sees the persisted trail.
	clock := util.NewFakeClock(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))
	l2, err := New(s, clock)
	require.NoError(t, err)

	got := l2.RecentActions("c1", "", 10)
	require.Len(t, got, 2)
	assert.Equal(t, "ban", got[0].Action)
	assert.Equal(t, "quarantine", got[1].Action)

	stats, err := l2.StatsFor("c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActionCounts["quarantine"])

	// New entries land after the hydrated history.
	require.NoError(t, l2.LogAction("c1", "u1", "release", "", "m1"))
	got = l2.RecentActions("c1", "", 10)
	require.Len(t, got, 3)
	assert.Equal(t, "release", got[0].Action)
}

func TestStatsFor(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.AddWarning("c1", "u1", "m1", "spam")
	require.NoError(t, err)
	require.NoError(t, l.LogAction("c1", "u1", "timeout", "spam", ""))
	require.NoError(t, l.LogAction("c1", "u1", "timeout", "caps", ""))
	require.NoError(t, l.LogAction("c1", "u1", "ban", "repeat offender", "m1"))
	require.NoError(t, l.LogAction("c1", "u2", "kick", "raid", ""))

	stats, err := l.StatsFor("c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Warnings)
	assert.Equal(t, 2, stats.ActionCounts["timeout"])
	assert.Equal(t, 1, stats.ActionCounts["ban"])
	assert.Zero(t, stats.ActionCounts["kick"])
}
