package models

import "time"

type EventKind uint8

const (
	KindUnknown EventKind = iota
	KindMessage
	KindJoin
	KindChannelCreate
	KindChannelDelete
	KindRoleCreate
	KindRoleDelete
	KindBan
	KindKick
	KindWebhookCreate
	KindWebhookDelete
)

var kindNames = map[EventKind]string{
	KindUnknown:       "unknown",
	KindMessage:       "message",
	KindJoin:          "join",
	KindChannelCreate: "channel_create",
	KindChannelDelete: "channel_delete",
	KindRoleCreate:    "role_create",
	KindRoleDelete:    "role_delete",
	KindBan:           "ban",
	KindKick:          "kick",
	KindWebhookCreate: "webhook_create",
	KindWebhookDelete: "webhook_delete",
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Privileged reports whether the event kind is a privileged administrative
// action monitored by the anti-nuke detector.
func (k EventKind) Privileged() bool {
	switch k {
	case KindChannelCreate, KindChannelDelete, KindRoleCreate, KindRoleDelete,
		KindBan, KindKick, KindWebhookCreate, KindWebhookDelete:
		return true
	}
	return false
}

// Event is a single inbound user action. Events are created at ingestion and
// discarded after processing; only derived records are persisted.
type Event struct {
	SubjectID   string
	Kind        EventKind
	CommunityID string
	Timestamp   time.Time
}
