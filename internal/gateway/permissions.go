package gateway

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/AegisGuard-sahil/AegisGuard/internal/config"
	"github.com/AegisGuard-sahil/AegisGuard/internal/platform"
)

// Permissions resolves a member's level from configured role names and the
// community's role list. The owner and configured immune users bypass
// automated enforcement entirely.
type Permissions struct {
	discord *discordgo.Session
	cfg     config.PermissionsConfig
}

func NewPermissions(discord *discordgo.Session, cfg config.PermissionsConfig) *Permissions {
	return &Permissions{discord: discord, cfg: cfg}
}

func (p *Permissions) Level(ctx context.Context, communityID, subjectID string) platform.PermissionLevel {
	guild, err := p.discord.State.Guild(communityID)
	if err == nil && guild.OwnerID == subjectID {
		return platform.LevelOwner
	}

	names := p.roleNames(communityID, subjectID)
	if matchAny(names, p.cfg.AdminRoles) {
		return platform.LevelAdmin
	}
	if matchAny(names, p.cfg.ModeratorRoles) {
		return platform.LevelModerator
	}
	return platform.LevelMember
}

func (p *Permissions) IsImmune(ctx context.Context, communityID, subjectID string) bool {
	for _, id := range p.cfg.ImmuneUsers {
		if id == subjectID {
			return true
		}
	}

	guild, err := p.discord.State.Guild(communityID)
	if err == nil && guild.OwnerID == subjectID {
		return true
	}

	return matchAny(p.roleNames(communityID, subjectID), p.cfg.ImmuneRoles)
}

// roleNames resolves the subject's role ids to names, preferring gateway
// state over REST.
func (p *Permissions) roleNames(communityID, subjectID string) []string {
	member, err := p.discord.State.Member(communityID, subjectID)
	if err != nil {
		member, err = p.discord.GuildMember(communityID, subjectID)
		if err != nil {
			return nil
		}
	}

	roles, err := p.discord.GuildRoles(communityID)
	if err != nil {
		return nil
	}
	byID := make(map[string]string, len(roles))
	for _, r := range roles {
		byID[r.ID] = r.Name
	}

	names := make([]string, 0, len(member.Roles))
	for _, id := range member.Roles {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

func matchAny(names, wanted []string) bool {
	for _, name := range names {
		for _, w := range wanted {
			if strings.EqualFold(name, w) {
				return true
			}
		}
	}
	return false
}
