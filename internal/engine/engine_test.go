package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AegisGuard-sahil/AegisGuard/internal/classifier"
	"github.com/AegisGuard-sahil/AegisGuard/internal/config"
	"github.com/AegisGuard-sahil/AegisGuard/internal/cooldown"
	"github.com/AegisGuard-sahil/AegisGuard/internal/dispatcher"
	"github.com/AegisGuard-sahil/AegisGuard/internal/ledger"
	"github.com/AegisGuard-sahil/AegisGuard/internal/massmod"
	"github.com/AegisGuard-sahil/AegisGuard/internal/models"
	"github.com/AegisGuard-sahil/AegisGuard/internal/notifier"
	"github.com/AegisGuard-sahil/AegisGuard/internal/panicmode"
	"github.com/AegisGuard-sahil/AegisGuard/internal/platform"
	"github.com/AegisGuard-sahil/AegisGuard/internal/quarantine"
	"github.com/AegisGuard-sahil/AegisGuard/internal/raid"
	"github.com/AegisGuard-sahil/AegisGuard/internal/store"
	"github.com/AegisGuard-sahil/AegisGuard/pkg/util"
)

type fakeExecutor struct {
	mu sync.Mutex

	roles    map[string][]string
	timeouts map[string]time.Time
	locked   []string
	unlocked []string
	slowmode map[string]int
	deleted  []string
	dms      []string
	notified []string
	channels []platform.Channel
	messages map[string][]platform.Message // channelID -> messages
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		roles:    make(map[string][]string),
		timeouts: make(map[string]time.Time),
		slowmode: make(map[string]int),
		messages: make(map[string][]platform.Message),
		channels: []platform.Channel{
			{ID: "ch1", Name: "staff"},
			{ID: "ch2", Name: "general"},
		},
	}
}

func (f *fakeExecutor) MemberRoles(ctx context.Context, communityID, subjectID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roles[subjectID], nil
}

func (f *fakeExecutor) StripRoles(ctx context.Context, communityID, subjectID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stripped := f.roles[subjectID]
	f.roles[subjectID] = nil
	return stripped, nil
}

func (f *fakeExecutor) ApplyRole(ctx context.Context, communityID, subjectID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[subjectID] = append(f.roles[subjectID], roleID)
	return nil
}

func (f *fakeExecutor) RemoveRole(ctx context.Context, communityID, subjectID, roleID string) error {
	return nil
}

func (f *fakeExecutor) EnsureQuarantineRole(ctx context.Context, communityID string) (string, error) {
	return "q-role", nil
}

func (f *fakeExecutor) TimeoutUser(ctx context.Context, communityID, subjectID string, until time.Time, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeouts[subjectID] = until
	return nil
}

func (f *fakeExecutor) BanUser(ctx context.Context, communityID, subjectID, reason string) error {
	return nil
}

func (f *fakeExecutor) KickUser(ctx context.Context, communityID, subjectID, reason string) error {
	return nil
}

func (f *fakeExecutor) TextChannels(ctx context.Context, communityID string) ([]platform.Channel, error) {
	return f.channels, nil
}

func (f *fakeExecutor) LockChannel(ctx context.Context, communityID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = append(f.locked, channelID)
	return nil
}

func (f *fakeExecutor) UnlockChannel(ctx context.Context, communityID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocked = append(f.unlocked, channelID)
	return nil
}

func (f *fakeExecutor) SetSlowmode(ctx context.Context, communityID, channelID string, seconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slowmode[channelID] = seconds
	return nil
}

func (f *fakeExecutor) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeExecutor) RecentMessages(ctx context.Context, channelID, authorID string, limit int) ([]platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[channelID]
	if limit < len(msgs) {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (f *fakeExecutor) SendDirectMessage(ctx context.Context, subjectID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, content)
	return nil
}

func (f *fakeExecutor) NotifyChannel(ctx context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, content)
	return nil
}

type fakePerms struct {
	immune map[string]bool
	levels map[string]platform.PermissionLevel
}

func (f *fakePerms) Level(ctx context.Context, communityID, subjectID string) platform.PermissionLevel {
	return f.levels[subjectID]
}

func (f *fakePerms) IsImmune(ctx context.Context, communityID, subjectID string) bool {
	return f.immune[subjectID]
}

type queuedJob struct {
	communityID string
	targetID    string
	reason      string
}

type fakeEnforcer struct {
	mu    sync.Mutex
	bans  []queuedJob
	kicks []queuedJob
}

func (f *fakeEnforcer) QueueBan(communityID, targetID, reason string, priority dispatcher.JobPriority) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bans = append(f.bans, queuedJob{communityID, targetID, reason})
}

func (f *fakeEnforcer) QueueKick(communityID, targetID, reason string, priority dispatcher.JobPriority) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicks = append(f.kicks, queuedJob{communityID, targetID, reason})
}

type harness struct {
	engine   *Engine
	exec     *fakeExecutor
	perms    *fakePerms
	enforcer *fakeEnforcer
	clock    *util.FakeClock
	ledger   *ledger.Ledger
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cfg := config.DefaultConfig()
	clock := util.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	exec := newFakeExecutor()
	perms := &fakePerms{
		immune: map[string]bool{"admin": true},
		levels: map[string]platform.PermissionLevel{
			"mod":   platform.LevelModerator,
			"admin": platform.LevelAdmin,
		},
	}
	enforcer := &fakeEnforcer{}

	led, err := ledger.New(s, clock)
	require.NoError(t, err)

	ccfg := classifier.DefaultConfig()
	ccfg.ForbiddenWords = []string{"badword"}

	eng := New(Deps{
		Config:      cfg,
		Classifier:  classifier.New(ccfg),
		Cooldowns:   cooldown.NewLimiter(time.Duration(cfg.Detection.ActionCooldownSec)*time.Second, clock),
		Raids:       raid.NewDetector(time.Duration(cfg.Detection.RaidWindowSec)*time.Second, cfg.Detection.RaidThreshold),
		Panics:      panicmode.NewController(time.Duration(cfg.Detection.NukeWindowSec)*time.Second, cfg.Detection.NukeThreshold, 0),
		Quarantines: quarantine.NewManager(s, exec, clock),
		Ledger:      led,
		Bulk:        massmod.NewService(exec),
		Alerts:      notifier.New(exec, cfg.Permissions.StaffChannels),
		Executor:    exec,
		Permissions: perms,
		Enforcer:    enforcer,
		Store:       s,
		Clock:       clock,
	})

	return &harness{engine: eng, exec: exec, perms: perms, enforcer: enforcer, clock: clock, ledger: led}
}

func msg(id, author, content string) MessageEvent {
	return MessageEvent{
		CommunityID: "c1",
		ChannelID:   "ch2",
		MessageID:   id,
		AuthorID:    author,
		Content:     content,
	}
}

func TestSpamTimesOutSender(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.exec.messages["ch2"] = []platform.Message{{ID: "m3"}, {ID: "m4"}}

	for i := 0; i < 5; i++ {
		require.NoError(t, h.engine.HandleMessage(ctx, msg("m5", "u1", "hello")))
		h.clock.Advance(time.Second)
	}

	until, ok := h.exec.timeouts["u1"]
	require.True(t, ok)
	assert.True(t, until.After(h.clock.Now()))

	// Offending message deleted, recent messages purged.
	assert.Contains(t, h.exec.deleted, "m5")
	assert.Contains(t, h.exec.deleted, "m3")

	count, err := h.ledger.CountWarnings("c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	actions := h.ledger.RecentActions("c1", "u1", 10)
	require.NotEmpty(t, actions)
	assert.Equal(t, "spam", actions[0].Action)
}

func TestSlowSenderNotFlagged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, h.engine.HandleMessage(ctx, msg("m1", "u1", "hello")))
		h.clock.Advance(3 * time.Second)
	}

	assert.Empty(t, h.exec.timeouts)
	assert.Empty(t, h.exec.deleted)
}

func TestImmuneAuthorSkipped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.HandleMessage(ctx, msg("m1", "admin", "discord.gg/abc123")))
	assert.Empty(t, h.exec.deleted)
}

func TestInviteDeletedAndWarned(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.HandleMessage(ctx, msg("m1", "u1", "join discord.gg/abc123")))

	assert.Equal(t, []string{"m1"}, h.exec.deleted)
	assert.Empty(t, h.exec.timeouts)

	count, err := h.ledger.CountWarnings("c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, h.exec.dms, 1)
}

func TestCooldownSuppressesRepeatWarnings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.HandleMessage(ctx, msg("m1", "u1", "discord.gg/abc123")))
	h.clock.Advance(5 * time.Second)
	require.NoError(t, h.engine.HandleMessage(ctx, msg("m2", "u1", "discord.gg/xyz987")))

	// Both messages deleted, but only one warning inside the cooldown.
	assert.Equal(t, []string{"m1", "m2"}, h.exec.deleted)
	count, err := h.ledger.CountWarnings("c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	h.clock.Advance(61 * time.Second)
	require.NoError(t, h.engine.HandleMessage(ctx, msg("m3", "u1", "discord.gg/qqq111")))
	count, err = h.ledger.CountWarnings("c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFirstViolationWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Invite outranks the forbidden word in rule order.
	require.NoError(t, h.engine.HandleMessage(ctx, msg("m1", "u1", "badword discord.gg/abc123")))

	actions := h.ledger.RecentActions("c1", "u1", 10)
	require.Len(t, actions, 1)
	assert.Equal(t, "invite", actions[0].Action)
}

func TestJoinSurgeLocksDown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, h.engine.HandleJoin(ctx, "c1", "joiner"))
	}

	assert.ElementsMatch(t, []string{"ch1", "ch2"}, h.exec.locked)
	assert.True(t, h.engine.Status("c1").LockedDown)
	require.Len(t, h.exec.notified, 1)

	// The surge joiner is kicked.
	assert.NotEmpty(t, h.enforcer.kicks)

	// A sixth join does not lock again.
	locked := len(h.exec.locked)
	require.NoError(t, h.engine.HandleJoin(ctx, "c1", "another"))
	assert.Len(t, h.exec.locked, locked)
}

func TestCalmJoinsNoLockdown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		require.NoError(t, h.engine.HandleJoin(ctx, "c1", "joiner"))
		h.clock.Advance(3 * time.Second)
	}

	assert.Empty(t, h.exec.locked)
	assert.Empty(t, h.enforcer.kicks)
}

func TestPrivilegedBurstTriggersPanic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.exec.roles["u1"] = []string{"r1"}

	ev := models.Event{SubjectID: "u1", Kind: models.KindChannelDelete, CommunityID: "c1"}
	for i := 0; i < 3; i++ {
		ev.Timestamp = h.clock.Now()
		require.NoError(t, h.engine.HandlePrivilegedAction(ctx, ev))
		h.clock.Advance(5 * time.Second)
	}

	assert.True(t, h.engine.Status("c1").PanicActive)

	// Actor quarantined: roles stripped, quarantine role applied.
	assert.Equal(t, []string{"q-role"}, h.exec.roles["u1"])
	require.NotEmpty(t, h.exec.notified)
}

func TestImmuneActorNeverPanics(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ev := models.Event{SubjectID: "admin", Kind: models.KindChannelDelete, CommunityID: "c1"}
	for i := 0; i < 10; i++ {
		ev.Timestamp = h.clock.Now()
		require.NoError(t, h.engine.HandlePrivilegedAction(ctx, ev))
	}

	assert.False(t, h.engine.Status("c1").PanicActive)
}

func TestDetectionToggle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.SetDetection(ctx, "c1", "admin", false))

	require.NoError(t, h.engine.HandleMessage(ctx, msg("m1", "u1", "discord.gg/abc123")))
	assert.Empty(t, h.exec.deleted)

	// Other communities keep the configured default.
	other := msg("m2", "u1", "discord.gg/abc123")
	other.CommunityID = "c2"
	require.NoError(t, h.engine.HandleMessage(ctx, other))
	assert.Equal(t, []string{"m2"}, h.exec.deleted)

	require.NoError(t, h.engine.SetDetection(ctx, "c1", "admin", true))
	require.NoError(t, h.engine.HandleMessage(ctx, msg("m3", "u1", "discord.gg/abc123")))
	assert.Contains(t, h.exec.deleted, "m3")
}

func TestDetectionToggleRequiresAdmin(t *testing.T) {
	h := newHarness(t)

	err := h.engine.SetDetection(context.Background(), "c1", "mod", false)
	assert.ErrorIs(t, err, platform.ErrPermissionDenied)
}

func TestUnprivilegedKindIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ev := models.Event{SubjectID: "u1", Kind: models.KindMessage, CommunityID: "c1", Timestamp: h.clock.Now()}
	for i := 0; i < 10; i++ {
		require.NoError(t, h.engine.HandlePrivilegedAction(ctx, ev))
	}

	assert.False(t, h.engine.Status("c1").PanicActive)
}
