package store

// Warning is a persisted moderation warning against a subject.
type Warning struct {
	ID          int64
	CommunityID string
	SubjectID   string
	ModeratorID string
	Reason      string
	CreatedAt   int64
}

// AuditEntry is a persisted record of one enforcement action.
type AuditEntry struct {
	ID          int64
	CommunityID string
	SubjectID   string
	Action      string
	Reason      string
	ActorID     string
	Timestamp   int64
}

// QuarantineRecord captures the roles held by a subject when quarantined so
// they can be restored on release.
type QuarantineRecord struct {
	ID          int64
	CommunityID string
	SubjectID   string
	RoleIDs     string // comma-joined snapshot
	Reason      string
	Active      bool
	CreatedAt   int64
	ReleasedAt  int64
}

// BackupRecord stores a serialized structural snapshot of a community.
type BackupRecord struct {
	ID          string
	CommunityID string
	Payload     []byte
	CreatedAt   int64
}
