package platform

import (
	"context"
	"time"
)

// Executor is the platform side-effect surface. The policy layer decides what
// to do; an Executor carries it out against the chat platform.
type Executor interface {
	// Member state
	MemberRoles(ctx context.Context, communityID, subjectID string) ([]string, error)
	StripRoles(ctx context.Context, communityID, subjectID string) ([]string, error)
	ApplyRole(ctx context.Context, communityID, subjectID, roleID string) error
	RemoveRole(ctx context.Context, communityID, subjectID, roleID string) error
	EnsureQuarantineRole(ctx context.Context, communityID string) (string, error)

	// Enforcement
	TimeoutUser(ctx context.Context, communityID, subjectID string, until time.Time, reason string) error
	BanUser(ctx context.Context, communityID, subjectID, reason string) error
	KickUser(ctx context.Context, communityID, subjectID, reason string) error

	// Channels
	TextChannels(ctx context.Context, communityID string) ([]Channel, error)
	LockChannel(ctx context.Context, communityID, channelID string) error
	UnlockChannel(ctx context.Context, communityID, channelID string) error
	SetSlowmode(ctx context.Context, communityID, channelID string, seconds int) error

	// Messages
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	RecentMessages(ctx context.Context, channelID, authorID string, limit int) ([]Message, error)

	// Delivery
	SendDirectMessage(ctx context.Context, subjectID, content string) error
	NotifyChannel(ctx context.Context, channelID, content string) error
}

// Directory exposes the structural read and create calls backups need.
type Directory interface {
	ListRoles(ctx context.Context, communityID string) ([]Role, error)
	ListChannels(ctx context.Context, communityID string) ([]Channel, error)
	CreateRole(ctx context.Context, communityID string, role Role) (string, error)
	CreateCategory(ctx context.Context, communityID string, ch Channel) (string, error)
	CreateChannel(ctx context.Context, communityID string, ch Channel) (string, error)
}

type PermissionLevel uint8

const (
	LevelMember PermissionLevel = iota
	LevelModerator
	LevelAdmin
	LevelOwner
)

// PermissionSource answers who may run moderator operations and who is immune
// to automated enforcement.
type PermissionSource interface {
	Level(ctx context.Context, communityID, subjectID string) PermissionLevel
	IsImmune(ctx context.Context, communityID, subjectID string) bool
}
