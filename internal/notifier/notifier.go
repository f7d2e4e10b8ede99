package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/AegisGuard-sahil/AegisGuard/internal/logging"
	"github.com/AegisGuard-sahil/AegisGuard/internal/platform"
)

// Notifier delivers alerts to a community's staff channel. The channel is
// found by name from an ordered preference list, falling back to the first
// channel the bot can write to, and cached per community.
type Notifier struct {
	mu       sync.Mutex
	exec     platform.Executor
	names    []string
	resolved map[string]string // communityID -> channelID
}

func New(exec platform.Executor, channelNames []string) *Notifier {
	return &Notifier{
		exec:     exec,
		names:    channelNames,
		resolved: make(map[string]string),
	}
}

// Alert posts a message to the community's staff channel.
func (n *Notifier) Alert(ctx context.Context, communityID, content string) error {
	channelID, err := n.staffChannel(ctx, communityID)
	if err != nil {
		return err
	}

	if err := n.exec.NotifyChannel(ctx, channelID, content); err != nil {
		// The cached channel may have been deleted; resolve again once.
		n.mu.Lock()
		delete(n.resolved, communityID)
		n.mu.Unlock()

		channelID, rerr := n.staffChannel(ctx, communityID)
		if rerr != nil {
			return rerr
		}
		return n.exec.NotifyChannel(ctx, channelID, content)
	}
	return nil
}

func (n *Notifier) staffChannel(ctx context.Context, communityID string) (string, error) {
	n.mu.Lock()
	if id, ok := n.resolved[communityID]; ok {
		n.mu.Unlock()
		return id, nil
	}
	n.mu.Unlock()

	channels, err := n.exec.TextChannels(ctx, communityID)
	if err != nil {
		return "", fmt.Errorf("failed to list channels: %w", err)
	}
	if len(channels) == 0 {
		return "", fmt.Errorf("no text channels in community %s", communityID)
	}

	id := ""
	for _, name := range n.names {
		for _, ch := range channels {
			if strings.EqualFold(ch.Name, name) {
				id = ch.ID
				break
			}
		}
		if id != "" {
			break
		}
	}

	if id == "" {
		id = channels[0].ID
		logging.Debug("no staff channel match in %s, falling back to #%s", communityID, channels[0].Name)
	}

	n.mu.Lock()
	n.resolved[communityID] = id
	n.mu.Unlock()
	return id, nil
}
