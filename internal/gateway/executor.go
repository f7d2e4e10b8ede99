package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/AegisGuard-sahil/AegisGuard/internal/platform"
)

const quarantineRoleName = "Quarantine"

// Executor implements platform.Executor over the gateway library's REST
// client. Latency-critical bans and kicks go through the dispatcher instead.
type Executor struct {
	discord *discordgo.Session
}

func NewExecutor(discord *discordgo.Session) *Executor {
	return &Executor{discord: discord}
}

func (e *Executor) MemberRoles(ctx context.Context, communityID, subjectID string) ([]string, error) {
	member, err := e.discord.GuildMember(communityID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member %s: %w", subjectID, err)
	}
	return member.Roles, nil
}

func (e *Executor) StripRoles(ctx context.Context, communityID, subjectID string) ([]string, error) {
	roles, err := e.MemberRoles(ctx, communityID, subjectID)
	if err != nil {
		return nil, err
	}

	empty := []string{}
	_, err = e.discord.GuildMemberEdit(communityID, subjectID, &discordgo.GuildMemberParams{Roles: &empty})
	if err != nil {
		return nil, fmt.Errorf("failed to strip roles from %s: %w", subjectID, err)
	}
	return roles, nil
}

func (e *Executor) ApplyRole(ctx context.Context, communityID, subjectID, roleID string) error {
	return e.discord.GuildMemberRoleAdd(communityID, subjectID, roleID)
}

func (e *Executor) RemoveRole(ctx context.Context, communityID, subjectID, roleID string) error {
	return e.discord.GuildMemberRoleRemove(communityID, subjectID, roleID)
}

// EnsureQuarantineRole finds the quarantine role, creating a permissionless
// one on first use.
func (e *Executor) EnsureQuarantineRole(ctx context.Context, communityID string) (string, error) {
	roles, err := e.discord.GuildRoles(communityID)
	if err != nil {
		return "", fmt.Errorf("failed to list roles: %w", err)
	}
	for _, r := range roles {
		if r.Name == quarantineRoleName {
			return r.ID, nil
		}
	}

	var noPerms int64
	role, err := e.discord.GuildRoleCreate(communityID, &discordgo.RoleParams{
		Name:        quarantineRoleName,
		Permissions: &noPerms,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create quarantine role: %w", err)
	}
	return role.ID, nil
}

func (e *Executor) TimeoutUser(ctx context.Context, communityID, subjectID string, until time.Time, reason string) error {
	if until.IsZero() {
		return e.discord.GuildMemberTimeout(communityID, subjectID, nil)
	}
	return e.discord.GuildMemberTimeout(communityID, subjectID, &until)
}

func (e *Executor) BanUser(ctx context.Context, communityID, subjectID, reason string) error {
	return e.discord.GuildBanCreateWithReason(communityID, subjectID, reason, 0)
}

func (e *Executor) KickUser(ctx context.Context, communityID, subjectID, reason string) error {
	return e.discord.GuildMemberDeleteWithReason(communityID, subjectID, reason)
}

func (e *Executor) TextChannels(ctx context.Context, communityID string) ([]platform.Channel, error) {
	channels, err := e.discord.GuildChannels(communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	var out []platform.Channel
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		out = append(out, convertChannel(ch))
	}
	return out, nil
}

// LockChannel denies send permission for the everyone role. The everyone role
// shares the community's id.
func (e *Executor) LockChannel(ctx context.Context, communityID, channelID string) error {
	return e.discord.ChannelPermissionSet(
		channelID, communityID, discordgo.PermissionOverwriteTypeRole,
		0, discordgo.PermissionSendMessages,
	)
}

func (e *Executor) UnlockChannel(ctx context.Context, communityID, channelID string) error {
	return e.discord.ChannelPermissionDelete(channelID, communityID)
}

func (e *Executor) SetSlowmode(ctx context.Context, communityID, channelID string, seconds int) error {
	_, err := e.discord.ChannelEditComplex(channelID, &discordgo.ChannelEdit{
		RateLimitPerUser: &seconds,
	})
	return err
}

func (e *Executor) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return e.discord.ChannelMessageDelete(channelID, messageID)
}

func (e *Executor) RecentMessages(ctx context.Context, channelID, authorID string, limit int) ([]platform.Message, error) {
	msgs, err := e.discord.ChannelMessages(channelID, 100, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages in %s: %w", channelID, err)
	}

	var out []platform.Message
	for _, m := range msgs {
		if m.Author == nil || m.Author.ID != authorID {
			continue
		}
		out = append(out, platform.Message{
			ID:        m.ID,
			ChannelID: m.ChannelID,
			AuthorID:  m.Author.ID,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (e *Executor) SendDirectMessage(ctx context.Context, subjectID, content string) error {
	ch, err := e.discord.UserChannelCreate(subjectID)
	if err != nil {
		return fmt.Errorf("failed to open DM with %s: %w", subjectID, err)
	}
	_, err = e.discord.ChannelMessageSend(ch.ID, content)
	return err
}

func (e *Executor) NotifyChannel(ctx context.Context, channelID, content string) error {
	_, err := e.discord.ChannelMessageSend(channelID, content)
	return err
}

func convertChannel(ch *discordgo.Channel) platform.Channel {
	out := platform.Channel{
		ID:          ch.ID,
		Name:        ch.Name,
		ParentID:    ch.ParentID,
		Position:    ch.Position,
		Topic:       ch.Topic,
		SlowmodeSec: ch.RateLimitPerUser,
		NSFW:        ch.NSFW,
		Bitrate:     ch.Bitrate,
		UserLimit:   ch.UserLimit,
	}

	switch ch.Type {
	case discordgo.ChannelTypeGuildCategory:
		out.Type = platform.ChannelCategory
	case discordgo.ChannelTypeGuildVoice:
		out.Type = platform.ChannelVoice
	default:
		out.Type = platform.ChannelText
	}

	for _, ow := range ch.PermissionOverwrites {
		targetType := "role"
		if ow.Type == discordgo.PermissionOverwriteTypeMember {
			targetType = "member"
		}
		out.Overwrites = append(out.Overwrites, platform.Overwrite{
			TargetID:   ow.ID,
			TargetType: targetType,
			Allow:      ow.Allow,
			Deny:       ow.Deny,
		})
	}

	return out
}
