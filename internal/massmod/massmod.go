package massmod

import (
	"context"

	"github.com/AegisGuard-sahil/AegisGuard/internal/platform"
)

// Result reports the outcome of a bulk operation. Failures on individual
// targets do not abort the rest.
type Result struct {
	Succeeded int
	Failed    int
	Errors    []error
}

// Service runs bulk enforcement against many targets at once.
type Service struct {
	exec platform.Executor
}

func NewService(exec platform.Executor) *Service {
	return &Service{exec: exec}
}

// MassBan bans every listed subject. Cancellation stops remaining targets.
func (s *Service) MassBan(ctx context.Context, communityID string, subjectIDs []string, reason string) (*Result, error) {
	return s.forEach(ctx, subjectIDs, "ban", func(id string) error {
		return s.exec.BanUser(ctx, communityID, id, reason)
	})
}

// MassKick kicks every listed subject.
func (s *Service) MassKick(ctx context.Context, communityID string, subjectIDs []string, reason string) (*Result, error) {
	return s.forEach(ctx, subjectIDs, "kick", func(id string) error {
		return s.exec.KickUser(ctx, communityID, id, reason)
	})
}

// Purge deletes up to limit of the author's recent messages in a channel and
// returns how many were removed.
func (s *Service) Purge(ctx context.Context, channelID, authorID string, limit int) (*Result, error) {
	messages, err := s.exec.RecentMessages(ctx, channelID, authorID, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}

	return s.forEach(ctx, ids, "delete_message", func(id string) error {
		return s.exec.DeleteMessage(ctx, channelID, id)
	})
}

func (s *Service) forEach(ctx context.Context, targets []string, action string, fn func(string) error) (*Result, error) {
	result := &Result{}
	for _, id := range targets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := fn(id); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, &platform.ActionError{Action: action, Target: id, Err: err})
			continue
		}
		result.Succeeded++
	}
	return result, nil
}
