package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/AegisGuard-sahil/AegisGuard/internal/engine"
	"github.com/AegisGuard-sahil/AegisGuard/internal/logging"
	"github.com/AegisGuard-sahil/AegisGuard/internal/metrics"
	"github.com/AegisGuard-sahil/AegisGuard/internal/models"
)

// Session wraps the platform websocket connection and translates gateway
// events into engine calls.
type Session struct {
	discord *discordgo.Session
	engine  *engine.Engine
	actors  *actorCache
	stats   *metrics.Registry
	botID   string
}

func NewSession(token string, stats *metrics.Registry) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsAll
	dg.State.MaxMessageCount = 200

	return &Session{
		discord: dg,
		actors:  newActorCache(30 * time.Second),
		stats:   stats,
	}, nil
}

// AttachEngine binds the policy layer. The engine is built from the session's
// executor, so it cannot be passed at construction time.
func (s *Session) AttachEngine(eng *engine.Engine) {
	s.engine = eng
}

// Discord exposes the underlying session for the executor and directory.
func (s *Session) Discord() *discordgo.Session {
	return s.discord
}

// Connect registers handlers and opens the websocket connection.
func (s *Session) Connect() error {
	s.registerHandlers()

	if err := s.discord.Open(); err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}

	if s.discord.State.User != nil {
		s.botID = s.discord.State.User.ID
		logging.Info("connected as %s", s.discord.State.User.Username)
	}
	return nil
}

func (s *Session) Close() error {
	if s.discord != nil {
		return s.discord.Close()
	}
	return nil
}

func (s *Session) registerHandlers() {
	s.discord.AddHandler(s.onMessageCreate)
	s.discord.AddHandler(s.onMemberAdd)
	s.discord.AddHandler(s.onMemberRemove)
	s.discord.AddHandler(s.onChannelCreate)
	s.discord.AddHandler(s.onChannelDelete)
	s.discord.AddHandler(s.onRoleCreate)
	s.discord.AddHandler(s.onRoleDelete)
	s.discord.AddHandler(s.onBanAdd)
	s.discord.AddHandler(s.onWebhooksUpdate)
}

func (s *Session) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	s.stats.IncMessagesScanned()

	err := s.engine.HandleMessage(context.Background(), engine.MessageEvent{
		CommunityID: m.GuildID,
		ChannelID:   m.ChannelID,
		MessageID:   m.ID,
		AuthorID:    m.Author.ID,
		Content:     m.Content,
	})
	if err != nil {
		logging.Error("message handling failed in %s: %v", m.GuildID, err)
	}
}

func (s *Session) onMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}
	s.stats.IncJoinsTracked()
	if err := s.engine.HandleJoin(context.Background(), m.GuildID, m.User.ID); err != nil {
		logging.Error("join handling failed in %s: %v", m.GuildID, err)
	}
}

// onMemberRemove fires for kicks and voluntary leaves alike. Only removals
// with a matching kick audit entry are attributed; leaves resolve no actor
// and are dropped.
func (s *Session) onMemberRemove(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.User == nil || m.User.Bot {
		return
	}
	s.privileged(m.GuildID, models.KindKick, discordgo.AuditLogActionMemberKick, m.User.ID)
}

func (s *Session) onChannelCreate(_ *discordgo.Session, c *discordgo.ChannelCreate) {
	s.privileged(c.GuildID, models.KindChannelCreate, discordgo.AuditLogActionChannelCreate, c.ID)
}

func (s *Session) onChannelDelete(_ *discordgo.Session, c *discordgo.ChannelDelete) {
	s.privileged(c.GuildID, models.KindChannelDelete, discordgo.AuditLogActionChannelDelete, c.ID)
}

func (s *Session) onRoleCreate(_ *discordgo.Session, r *discordgo.GuildRoleCreate) {
	s.privileged(r.GuildID, models.KindRoleCreate, discordgo.AuditLogActionRoleCreate, r.Role.ID)
}

func (s *Session) onRoleDelete(_ *discordgo.Session, r *discordgo.GuildRoleDelete) {
	s.privileged(r.GuildID, models.KindRoleDelete, discordgo.AuditLogActionRoleDelete, r.RoleID)
}

func (s *Session) onBanAdd(_ *discordgo.Session, b *discordgo.GuildBanAdd) {
	s.privileged(b.GuildID, models.KindBan, discordgo.AuditLogActionMemberBanAdd, b.User.ID)
}

// onWebhooksUpdate only signals that a channel's webhooks changed; the audit
// log decides whether a webhook was created or deleted. Entries are matched
// by channel since their target is the webhook id.
func (s *Session) onWebhooksUpdate(_ *discordgo.Session, w *discordgo.WebhooksUpdate) {
	s.privileged(w.GuildID, models.KindWebhookCreate, discordgo.AuditLogActionWebhookCreate, w.ChannelID)
	s.privileged(w.GuildID, models.KindWebhookDelete, discordgo.AuditLogActionWebhookDelete, w.ChannelID)
}

// privileged resolves who performed the structural change and feeds the burst
// detector. Events whose actor cannot be attributed are dropped rather than
// blamed on the target.
func (s *Session) privileged(guildID string, kind models.EventKind, auditAction discordgo.AuditLogAction, targetID string) {
	if guildID == "" {
		return
	}

	actorID := s.resolveActor(guildID, auditAction, targetID)
	if actorID == "" || actorID == s.botID {
		return
	}

	err := s.engine.HandlePrivilegedAction(context.Background(), models.Event{
		SubjectID:   actorID,
		Kind:        kind,
		CommunityID: guildID,
		Timestamp:   time.Now(),
	})
	if err != nil {
		logging.Error("privileged action handling failed in %s: %v", guildID, err)
	}
}

func (s *Session) resolveActor(guildID string, action discordgo.AuditLogAction, targetID string) string {
	if actor, ok := s.actors.get(guildID, action, targetID); ok {
		return actor
	}

	audit, err := s.discord.GuildAuditLog(guildID, "", "", int(action), 5)
	if err != nil {
		logging.Debug("audit log lookup failed in %s: %v", guildID, err)
		return ""
	}

	for _, entry := range audit.AuditLogEntries {
		if entry.TargetID == targetID || (entry.Options != nil && entry.Options.ChannelID == targetID) {
			s.actors.put(guildID, action, targetID, entry.UserID)
			return entry.UserID
		}
	}
	return ""
}
