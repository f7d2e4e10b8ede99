package gateway

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/AegisGuard-sahil/AegisGuard/internal/platform"
)

// Directory implements platform.Directory for backups.
type Directory struct {
	discord *discordgo.Session
}

func NewDirectory(discord *discordgo.Session) *Directory {
	return &Directory{discord: discord}
}

func (d *Directory) ListRoles(ctx context.Context, communityID string) ([]platform.Role, error) {
	roles, err := d.discord.GuildRoles(communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	out := make([]platform.Role, 0, len(roles))
	for _, r := range roles {
		// The everyone role shares the community id and always exists.
		if r.ID == communityID {
			continue
		}
		out = append(out, platform.Role{
			ID:          r.ID,
			Name:        r.Name,
			Color:       r.Color,
			Position:    r.Position,
			Permissions: r.Permissions,
			Hoist:       r.Hoist,
			Mentionable: r.Mentionable,
			Managed:     r.Managed,
		})
	}
	return out, nil
}

func (d *Directory) ListChannels(ctx context.Context, communityID string) ([]platform.Channel, error) {
	channels, err := d.discord.GuildChannels(communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	out := make([]platform.Channel, 0, len(channels))
	for _, ch := range channels {
		out = append(out, convertChannel(ch))
	}
	return out, nil
}

func (d *Directory) CreateRole(ctx context.Context, communityID string, role platform.Role) (string, error) {
	created, err := d.discord.GuildRoleCreate(communityID, &discordgo.RoleParams{
		Name:        role.Name,
		Color:       &role.Color,
		Hoist:       &role.Hoist,
		Permissions: &role.Permissions,
		Mentionable: &role.Mentionable,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (d *Directory) CreateCategory(ctx context.Context, communityID string, ch platform.Channel) (string, error) {
	created, err := d.discord.GuildChannelCreateComplex(communityID, discordgo.GuildChannelCreateData{
		Name:                 ch.Name,
		Type:                 discordgo.ChannelTypeGuildCategory,
		Position:             ch.Position,
		PermissionOverwrites: convertOverwrites(ch.Overwrites),
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (d *Directory) CreateChannel(ctx context.Context, communityID string, ch platform.Channel) (string, error) {
	chType := discordgo.ChannelTypeGuildText
	if ch.Type == platform.ChannelVoice {
		chType = discordgo.ChannelTypeGuildVoice
	}

	created, err := d.discord.GuildChannelCreateComplex(communityID, discordgo.GuildChannelCreateData{
		Name:                 ch.Name,
		Type:                 chType,
		Topic:                ch.Topic,
		RateLimitPerUser:     ch.SlowmodeSec,
		NSFW:                 ch.NSFW,
		Bitrate:              ch.Bitrate,
		UserLimit:            ch.UserLimit,
		Position:             ch.Position,
		ParentID:             ch.ParentID,
		PermissionOverwrites: convertOverwrites(ch.Overwrites),
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func convertOverwrites(overwrites []platform.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(overwrites))
	for _, ow := range overwrites {
		owType := discordgo.PermissionOverwriteTypeRole
		if ow.TargetType == "member" {
			owType = discordgo.PermissionOverwriteTypeMember
		}
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    ow.TargetID,
			Type:  owType,
			Allow: ow.Allow,
			Deny:  ow.Deny,
		})
	}
	return out
}
