package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AegisGuard-sahil/AegisGuard/internal/platform"
)

type fakeExecutor struct {
	platform.Executor

	channels  []platform.Channel
	sent      map[string][]string
	failOnce  map[string]bool
	listCalls int
}

func (f *fakeExecutor) TextChannels(ctx context.Context, communityID string) ([]platform.Channel, error) {
	f.listCalls++
	return f.channels, nil
}

func (f *fakeExecutor) NotifyChannel(ctx context.Context, channelID, content string) error {
	if f.failOnce[channelID] {
		delete(f.failOnce, channelID)
		return errors.New("channel deleted")
	}
	if f.sent == nil {
		f.sent = make(map[string][]string)
	}
	f.sent[channelID] = append(f.sent[channelID], content)
	return nil
}

func TestAlertPrefersNamedChannel(t *testing.T) {
	exec := &fakeExecutor{
		channels: []platform.Channel{
			{ID: "ch1", Name: "general"},
			{ID: "ch2", Name: "Mod-Chat"},
			{ID: "ch3", Name: "staff"},
		},
		failOnce: map[string]bool{},
	}
	n := New(exec, []string{"staff", "mod-chat"})

	require.NoError(t, n.Alert(context.Background(), "c1", "raid detected"))
	assert.Equal(t, []string{"raid detected"}, exec.sent["ch3"])
}

func TestAlertFallsBackToFirstChannel(t *testing.T) {
	exec := &fakeExecutor{
		channels: []platform.Channel{
			{ID: "ch1", Name: "general"},
			{ID: "ch2", Name: "random"},
		},
		failOnce: map[string]bool{},
	}
	n := New(exec, []string{"staff"})

	require.NoError(t, n.Alert(context.Background(), "c1", "hello"))
	assert.Equal(t, []string{"hello"}, exec.sent["ch1"])
}

func TestAlertCachesResolution(t *testing.T) {
	exec := &fakeExecutor{
		channels: []platform.Channel{{ID: "ch1", Name: "staff"}},
		failOnce: map[string]bool{},
	}
	n := New(exec, []string{"staff"})

	require.NoError(t, n.Alert(context.Background(), "c1", "one"))
	require.NoError(t, n.Alert(context.Background(), "c1", "two"))
	assert.Equal(t, 1, exec.listCalls)
}

func TestAlertReresolvesOnSendFailure(t *testing.T) {
	exec := &fakeExecutor{
		channels: []platform.Channel{{ID: "ch1", Name: "staff"}},
		failOnce: map[string]bool{"ch1": true},
	}
	n := New(exec, []string{"staff"})

	// Prime the cache, then make the cached channel fail once.
	require.NoError(t, n.Alert(context.Background(), "c1", "one"))
	exec.failOnce["ch1"] = true

	require.NoError(t, n.Alert(context.Background(), "c1", "two"))
	assert.Contains(t, exec.sent["ch1"], "two")
}

func TestAlertNoChannels(t *testing.T) {
	exec := &fakeExecutor{failOnce: map[string]bool{}}
	n := New(exec, []string{"staff"})

	assert.Error(t, n.Alert(context.Background(), "c1", "x"))
}
